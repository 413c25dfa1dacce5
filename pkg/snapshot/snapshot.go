// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"io"
	"net/url"
	"time"

	"golang.org/x/net/html"

	"github.com/neokraft-labs/domsnap/pkg/livedom"
)

const defaultAsyncTimeout = 5 * time.Second

// Snapshot is the public entry point: a nil opts means [DefaultOptions];
// otherwise an unset Mirror, MaskInputOptions, KeepIframeSrcFn or async
// timeout is filled with its default and every other field is used as
// given (callers that already hold an *Options from [DefaultOptions] get
// their own overrides respected). It then runs a fresh [Walker] over doc. The returned tree's root carries ID 1 when the ID
// allocator is fresh.
//
// Async resource hooks (iframe/stylesheet loads) are scheduled before
// Snapshot returns but fire their callbacks afterward, on their own
// goroutines; a caller that needs every hook to have already fired —
// tests, primarily — should keep the Walker around via [NewWalker]
// instead and call its Wait method.
func Snapshot(doc *livedom.Document, opts *Options) *SerializedNode {
	opts = resolveOptions(opts)
	w := NewWalker(opts)
	return w.SerializeNodeWithId(doc.Root, doc, 0)
}

// SnapshotAndWait is Snapshot plus a blocking wait for every scheduled
// async hook to fire, for callers (tests, the CLI tool) that want a single
// deterministic call instead of managing a Walker themselves.
func SnapshotAndWait(doc *livedom.Document, opts *Options) (*SerializedNode, error) {
	opts = resolveOptions(opts)
	w := NewWalker(opts)
	sn := w.SerializeNodeWithId(doc.Root, doc, 0)
	if err := w.Wait(); err != nil {
		return sn, err
	}
	return sn, nil
}

func resolveOptions(opts *Options) *Options {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Mirror == nil {
		opts.Mirror = NewMemoryMirror()
	}
	if opts.MaskInputOptions == nil {
		opts.MaskInputOptions = opts.maskInputOptions()
	}
	if opts.KeepIframeSrcFn == nil {
		opts.KeepIframeSrcFn = func(string) bool { return false }
	}
	if opts.IframeLoadTimeout == 0 {
		opts.IframeLoadTimeout = defaultAsyncTimeout
	}
	if opts.StylesheetLoadTimeout == 0 {
		opts.StylesheetLoadTimeout = defaultAsyncTimeout
	}
	return opts
}

// ParseDocument parses raw HTML into a [livedom.Document] rooted at the
// parsed document node, the entry point a caller without its own live DOM
// representation (the CLI tool, tests) uses to get something [Snapshot]
// can walk.
func ParseDocument(r io.Reader, base *url.URL) (*livedom.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return livedom.NewDocument(root, base), nil
}
