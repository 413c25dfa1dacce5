// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"sync"

	"golang.org/x/net/html"
)

// Mirror is the bidirectional node↔ID registry a caller supplies. The
// serializer reuses a node's existing ID across repeated snapshots instead
// of minting a new one, so the mirror is the only durable state in this
// package that must survive between calls to [Snapshot].
type Mirror interface {
	// HasNode reports whether n has already been registered.
	HasNode(n *html.Node) bool
	// GetID returns n's registered ID, or 0 if it has none.
	GetID(n *html.Node) int
	// Add registers the association between n and its serialized record.
	Add(n *html.Node, s *SerializedNode)
}

// MemoryMirror is the default, process-local [Mirror] implementation: a
// mutex-guarded map keyed by live node pointer identity.
type MemoryMirror struct {
	mu    sync.RWMutex
	ids   map[*html.Node]int
	nodes map[int]*SerializedNode
}

// NewMemoryMirror returns an empty, ready-to-use [MemoryMirror].
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{
		ids:   make(map[*html.Node]int),
		nodes: make(map[int]*SerializedNode),
	}
}

// HasNode implements [Mirror].
func (m *MemoryMirror) HasNode(n *html.Node) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[n]
	return ok
}

// GetID implements [Mirror]; it returns 0 when n is unregistered.
func (m *MemoryMirror) GetID(n *html.Node) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ids[n]
}

// Add implements [Mirror].
func (m *MemoryMirror) Add(n *html.Node, s *SerializedNode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[n] = s.ID
	m.nodes[s.ID] = s
}

// GetNode returns the serialized record for id, if any. Not part of the
// [Mirror] interface proper; it's a convenience used by replay-side
// collaborators that hold onto a MemoryMirror concretely.
func (m *MemoryMirror) GetNode(id int) (*SerializedNode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.nodes[id]
	return s, ok
}

// Reset clears every registered association, mirroring cleanupSnapshot's
// effect on the mirror half of global snapshot state.
func (m *MemoryMirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = make(map[*html.Node]int)
	m.nodes = make(map[int]*SerializedNode)
}
