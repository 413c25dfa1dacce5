// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"log/slog"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"

	"github.com/neokraft-labs/domsnap/pkg/livedom"
)

// selfRoot is the rootID sentinel passed down from a sub-document entry
// point (an iframe's contentDocument): the Document node at the root of
// that walk takes its own freshly assigned ID as its rootId, and that same
// ID then propagates to every descendant, so rootId is omitted only for
// nodes of the single top-level document.
const selfRoot = -1

// walkState carries the options threaded through a recursive walk
// without re-deriving them at every node: the owning live document, the sub-document
// root this subtree belongs to, the inherited masking verdict, and whether
// whitespace-only text should be preserved. A true masking verdict is
// inherited by the whole subtree; a false one means every descendant tests
// itself again. maskKnown distinguishes the walk's entry node, which is
// the only one whose test climbs through ancestors.
type walkState struct {
	doc        *livedom.Document
	rootID     int
	needsMask  bool
	maskKnown  bool
	preserveWS bool
}

// Walker recursively
// serializes a live node, its children, shadow roots, and attached
// iframes/stylesheets, assigning stable IDs through opts.Mirror and
// propagating the masking verdict down a subtree without re-testing it at
// every descendant.
type Walker struct {
	opts  *Options
	hooks *asyncHooks
	log   *slog.Logger
}

// NewWalker returns a Walker configured by opts. opts.Mirror must be set;
// DefaultOptions supplies a fresh [MemoryMirror].
func NewWalker(opts *Options) *Walker {
	logger := slog.Default()
	return &Walker{opts: opts, hooks: newAsyncHooks(opts), log: logger}
}

// Wait blocks until every iframe/stylesheet async hook scheduled by this
// Walker so far has fired its listener. The synchronous walk itself never
// needs this; it exists for callers — tests, the CLI tool — that want a
// deterministic point at which every OnIframeLoad/OnStylesheetLoad
// callback is guaranteed to have already run.
func (w *Walker) Wait() error {
	return w.hooks.Wait()
}

// SerializeNodeWithId serializes n and its subtree, returning nil only
// when n itself is an unknown node kind or gets assigned [IgnoredNode] by
// the slim-DOM filter or the whitespace-only rule.
func (w *Walker) SerializeNodeWithId(n *html.Node, doc *livedom.Document, rootID int) *SerializedNode {
	return w.walk(n, walkState{doc: doc, rootID: rootID, preserveWS: w.opts.PreserveWhiteSpace})
}

func (w *Walker) walk(n *html.Node, st walkState) *SerializedNode {
	if !st.needsMask {
		st.needsMask = NeedsMaskingText(n, w.opts.MaskTextClass, w.opts.MaskTextSelector, !st.maskKnown, w.opts)
		st.maskKnown = true
	}

	sctx := &serializeContext{
		doc:        st.doc,
		needsMask:  st.needsMask,
		newlyAdded: st.doc != nil && st.doc.IsNewlyAdded(n),
	}
	sn, err := SerializeNode(n, w.opts, sctx)
	if err != nil {
		reportError(w.opts, "walker.serialize", err)
		w.log.Warn("snapshot: failed to serialize node", "error", err)
		return nil
	}

	id := w.assignID(n, sn, st)
	sn.ID = id
	switch {
	case st.rootID == selfRoot:
		sn.RootID = id
	case st.rootID != 0:
		sn.RootID = st.rootID
	}

	w.opts.Mirror.Add(n, sn)

	if id == IgnoredNode {
		return nil
	}

	if w.opts.OnSerialize != nil {
		w.opts.OnSerialize(n)
	}

	if sn.NeedBlock {
		return sn
	}

	childState := st
	if st.rootID == selfRoot {
		childState.rootID = id
	}

	switch sn.Type {
	case NodeDocument, NodeElement:
		w.walkChildren(n, sn, childState)
	}

	if sn.Type == NodeElement {
		w.walkShadow(n, sn, childState)
		w.scheduleIframe(n, sn, st)
		w.scheduleStylesheet(n, sn, st)
		w.detectAssets(n, sn)
	}

	return sn
}

// assignID reuses a mirrored node's existing ID;
// otherwise allocate [IgnoredNode] for a slim-DOM-filtered node or (absent
// PreserveWhiteSpace) a non-style whitespace-only text node; otherwise
// mint a fresh ID.
func (w *Walker) assignID(n *html.Node, sn *SerializedNode, st walkState) int {
	if w.opts.Mirror.HasNode(n) {
		return w.opts.Mirror.GetID(n)
	}
	if ShouldIgnoreNode(n, w.opts.SlimDOM) {
		return IgnoredNode
	}
	if sn.Type == NodeText && !sn.IsStyle && !st.preserveWS && IsWhitespaceOnlyText(n) {
		return IgnoredNode
	}
	return w.opts.nextID()
}

// walkChildren recurses into childNodes in source
// order. Entering <head> clears preserveWhiteSpace for the subtree when
// slimDOM.HeadWhitespace is set (the rule only ever triggers via a
// literal <head> tag; a walk rooted inside <head> never activates it), and a
// <textarea> whose value was already captured skips its children outright
// since the attribute already holds the text.
func (w *Walker) walkChildren(n *html.Node, sn *SerializedNode, st walkState) {
	tag := dom.TagName(n)
	if tag == "head" && w.opts.SlimDOM.HeadWhitespace {
		st.preserveWS = false
	}
	if tag == "textarea" {
		if _, captured := sn.Attributes["value"]; captured {
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		child := w.walk(c, st)
		if child != nil {
			sn.ChildNodes = append(sn.ChildNodes, child)
		}
	}
}

// walkShadow inlines a host's shadow tree
// into its own childNodes, and each inlined child is marked isShadow when
// the shadow root is native rather than a library polyfill.
func (w *Walker) walkShadow(n *html.Node, sn *SerializedNode, st walkState) {
	if st.doc == nil {
		return
	}
	root, ok := st.doc.ShadowRoot(n)
	if !ok || root.Content == nil {
		return
	}
	sn.IsShadowHost = true

	for c := root.Content.FirstChild; c != nil; c = c.NextSibling {
		child := w.walk(c, st)
		if child == nil {
			continue
		}
		if root.Native {
			child.IsShadow = true
		}
		sn.ChildNodes = append(sn.ChildNodes, child)
	}
}

// scheduleIframe captures an <iframe>'s content document asynchronously
// once it's deemed loaded, deduplicating races onto the same content
// document via the async hooks' singleflight group, then hands it to
// opts.OnIframeLoad with IDs continuing from the outer walk's counter.
func (w *Walker) scheduleIframe(iframe *html.Node, sn *SerializedNode, st walkState) {
	if sn.TagName != "iframe" || st.doc == nil || w.opts.OnIframeLoad == nil {
		return
	}
	w.hooks.onceIframeLoaded(st.doc, iframe, w.opts.IframeLoadTimeout, func(content *livedom.Document) {
		serialized, err := w.hooks.dedupeIframeWalk(content, func() (*SerializedNode, error) {
			return w.walk(content.Root, walkState{
				doc:        content,
				rootID:     selfRoot,
				preserveWS: w.opts.PreserveWhiteSpace,
			}), nil
		})
		if err != nil {
			reportError(w.opts, "walker.iframe-load", err)
			return
		}
		if serialized != nil {
			w.opts.OnIframeLoad(iframe, serialized)
		}
	})
}

// scheduleStylesheet arranges that a <link rel=stylesheet> (or a
// rel=preload link whose href ends in .css) whose sheet wasn't available during the
// synchronous walk is re-serialized once it loads, now carrying _cssText,
// and handed to opts.OnStylesheetLoad.
func (w *Walker) scheduleStylesheet(link *html.Node, sn *SerializedNode, st walkState) {
	if st.doc == nil || w.opts.OnStylesheetLoad == nil || !isStylesheetLink(sn) {
		return
	}
	w.hooks.onceStylesheetLoaded(st.doc, link, w.opts.StylesheetLoadTimeout, func() {
		reserialized := w.walk(link, st)
		if reserialized != nil {
			w.opts.OnStylesheetLoad(link, reserialized)
		}
	})
}

func isStylesheetLink(sn *SerializedNode) bool {
	if sn.TagName != "link" {
		return false
	}
	rel, _ := sn.Attributes["rel"].(string)
	href, _ := sn.Attributes["href"].(string)
	switch rel {
	case "stylesheet":
		return true
	case "preload":
		return strings.HasSuffix(strings.ToLower(href), ".css")
	}
	return false
}

// detectAssets collects every absolutized URL referenced by an
// asset-cacheable element and hands them to opts.OnAssetDetected once
// per element.
func (w *Walker) detectAssets(n *html.Node, sn *SerializedNode) {
	if w.opts.OnAssetDetected == nil {
		return
	}
	urls := detectedAssetURLs(sn)
	if len(urls) == 0 {
		return
	}
	w.opts.OnAssetDetected(n, urls)
}
