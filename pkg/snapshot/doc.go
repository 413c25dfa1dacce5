// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package snapshot walks a live document tree built on top of
// golang.org/x/net/html and produces a
// self-contained, replay-ready tree of [SerializedNode] values: it
// normalizes URLs, captures form and media state, inlines stylesheets, and
// assigns stable integer identifiers that a downstream record/replay
// system can use to address nodes without holding a live reference.
//
// The package queries no live browser; the caller supplies a
// [livedom.Document] holding the live state, and may supply a [Mirror]
// that tracks node identity across repeated snapshots of the same mutable
// tree (a fresh [MemoryMirror] is used when none is set).
package snapshot
