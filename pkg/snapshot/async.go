// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/neokraft-labs/domsnap/pkg/livedom"
)

// maxPendingAsyncHooks bounds how many iframe/stylesheet load races run at
// once, mirroring archiver.fetchSemaphore: a page with hundreds of iframes
// must not spawn hundreds of unbounded timers.
const maxPendingAsyncHooks = 16

// asyncHooks holds the deferred resource captures: an
// iframe-load race and a stylesheet-load race, each firing its listener at
// most once, first-wins between the underlying load signal and a deadline
// timer. Every scheduled hook runs under group so a caller — principally
// tests, and the CLI tool — can block until every pending hook has fired
// via Wait, instead of racing a sleep against background goroutines.
type asyncHooks struct {
	opts        *Options
	sem         *semaphore.Weighted
	iframeGroup singleflight.Group
	group       errgroup.Group
}

func newAsyncHooks(opts *Options) *asyncHooks {
	return &asyncHooks{opts: opts, sem: semaphore.NewWeighted(maxPendingAsyncHooks)}
}

// Wait blocks until every hook scheduled so far has fired its listener.
func (h *asyncHooks) Wait() error {
	return h.group.Wait()
}

// raceLoad arms a single first-wins race between sig closing and timeout
// elapsing, then invokes fire exactly once. It is the shared plumbing
// behind onceIframeLoaded and onceStylesheetLoaded.
func (h *asyncHooks) raceLoad(sig <-chan struct{}, timeout time.Duration, fire func()) {
	h.group.Go(func() error {
		if err := h.sem.Acquire(context.Background(), 1); err == nil {
			defer h.sem.Release(1)
		}
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-sig:
		case <-timer.C:
			reportError(h.opts, "async.timeout", ErrAsyncTimeout)
		}
		fire()
		return nil
	})
}

// onceIframeLoaded arms the iframe hook. listener receives the
// iframe's content document once it is deemed ready; it never fires at all
// when the content document is unreachable (the cross-origin case), since
// nothing short of the out-of-scope recorder could ever make it reachable
// later.
func (h *asyncHooks) onceIframeLoaded(doc *livedom.Document, iframe *html.Node, timeout time.Duration, listener func(content *livedom.Document)) {
	content, reachable := doc.ContentDocument(iframe)
	if !reachable {
		return
	}

	state := doc.IframeReadyState(iframe)
	fire := func() { listener(content) }

	switch {
	case state.State != "complete" && state.State != "":
		h.raceLoad(doc.IframeLoadSignal(iframe), timeout, fire)
	case state.NavigationPending:
		// readyState is complete but the frame is still sitting on
		// about:blank waiting to navigate to its real src: don't fire
		// immediately, only once the pending navigation's load signal
		// closes (or the deadline elapses).
		h.raceLoad(doc.IframeLoadSignal(iframe), timeout, fire)
	default:
		h.group.Go(func() error {
			fire()
			return nil
		})
	}
}

// onceStylesheetLoaded arms the stylesheet hook. If the sheet is
// already reachable, the caller already captured its text inline during
// the synchronous walk, so the listener is never invoked — firing it again
// would just re-announce a capture the caller already has.
func (h *asyncHooks) onceStylesheetLoaded(doc *livedom.Document, link *html.Node, timeout time.Duration, listener func()) {
	if state, ok := doc.StylesheetState(link); ok && state.Reachable {
		return
	}
	h.raceLoad(doc.StylesheetLoadSignal(link), timeout, listener)
}

// dedupeIframeWalk collapses concurrent calls for the same content document
// into a single run of fn, whose result every caller shares (e.g. two
// <iframe> elements sharing one content document whose timers expire
// together), mirroring archiver.fetchGroup's use of singleflight to
// collapse duplicate concurrent fetches of one URL. A call that starts
// after an earlier one has returned runs fn again.
func (h *asyncHooks) dedupeIframeWalk(content *livedom.Document, fn func() (*SerializedNode, error)) (*SerializedNode, error) {
	key := fmt.Sprintf("%p", content.Root)
	v, err, _ := h.iframeGroup.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*SerializedNode), nil
}
