// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import "errors"

// Sentinel errors surfaced only through [Options.OnError]; none of them
// ever reach a caller of [Snapshot] or [SerializeNode] directly, since a
// failed capture degrades to a benign fallback rather than aborting the
// walk.
var (
	// ErrCrossOrigin marks a capture abandoned because the live document
	// refused access the way a cross-origin frame or stylesheet would.
	ErrCrossOrigin = errors.New("snapshot: cross-origin access refused")
	// ErrPolicyCheck marks a block/mask policy test that failed to
	// evaluate (bad selector, bad regexp) and was treated as non-matching.
	ErrPolicyCheck = errors.New("snapshot: policy check failed")
	// ErrUnknownNode marks a node whose type has no serialization.
	ErrUnknownNode = errors.New("snapshot: unknown node type")
	// ErrCanvasTainted marks a canvas capture abandoned after the one-shot
	// crossOrigin=anonymous retry also failed.
	ErrCanvasTainted = errors.New("snapshot: canvas is tainted")
	// ErrAsyncTimeout marks an async resource hook that fired on its
	// deadline rather than on the underlying load event.
	ErrAsyncTimeout = errors.New("snapshot: async hook timed out")
)

// reportError forwards err tagged with site to opts.OnError when set; it
// is the single choke point every swallow site in this package reports
// through.
func reportError(opts *Options, site string, err error) {
	if opts == nil || opts.OnError == nil || err == nil {
		return
	}
	opts.OnError(site, err)
}
