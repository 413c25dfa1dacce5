// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"fmt"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"

	"github.com/neokraft-labs/domsnap/pkg/dataurl"
	"github.com/neokraft-labs/domsnap/pkg/livedom"
)

// scriptPlaceholder replaces the text content of every <script> element,
// since replaying executable script text would be both useless (no DOM
// mutations a script makes during recording are replayed) and dangerous.
const scriptPlaceholder = "SCRIPT_PLACEHOLDER"

var inputLikeTags = map[string]bool{"input": true, "textarea": true, "select": true}

var nonValueInputTypes = map[string]bool{
	"radio": true, "checkbox": true, "submit": true, "button": true,
}

// serializeContext carries the per-node state the tree walker threads
// through a single call to serializeNode: the live document a node belongs
// to, and whether the element is already known to need masking (so
// descendants inherit the verdict instead of re-testing it).
type serializeContext struct {
	doc        *livedom.Document
	needsMask  bool
	newlyAdded bool
}

// SerializeNode converts a single live node into a [SerializedNode] in
// isolation — no recursion into children, no ID assignment, no mirror
// interaction. The tree walker in walker.go is responsible for all three;
// this only translates one node kind and its element-specific state.
func SerializeNode(n *html.Node, opts *Options, ctx *serializeContext) (*SerializedNode, error) {
	switch n.Type {
	case html.DocumentNode:
		return &SerializedNode{Type: NodeDocument}, nil
	case html.DoctypeNode:
		return serializeDoctype(n), nil
	case html.ElementNode:
		return serializeElement(n, opts, ctx), nil
	case html.TextNode:
		return serializeText(n, opts, ctx), nil
	case html.CommentNode:
		return &SerializedNode{Type: NodeComment, TextContent: n.Data}, nil
	default:
		return nil, ErrUnknownNode
	}
}

func serializeDoctype(n *html.Node) *SerializedNode {
	return &SerializedNode{
		Type:     NodeDocumentType,
		Name:     n.Data,
		PublicID: attrOrEmpty(n, "public"),
		SystemID: attrOrEmpty(n, "system"),
	}
}

func attrOrEmpty(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func serializeText(n *html.Node, opts *Options, ctx *serializeContext) *SerializedNode {
	text := n.Data
	parent := n.Parent
	isStyleText := parent != nil && dom.TagName(parent) == "style" && parent.FirstChild == n && n.NextSibling == nil

	switch {
	case parent != nil && dom.TagName(parent) == "script":
		text = scriptPlaceholder
	case isStyleText:
		if cssText, ok := InlineStylesheetText(ctx.doc, parent); ok {
			text = cssText
		} else if ctx.doc != nil && ctx.doc.Base != nil {
			// No recorded CSSOM sheet; absolutize the source text itself.
			text = StringifyStylesheet(text, ctx.doc.Base.String())
		}
	case ctx.needsMask && !isBlank(text):
		text = MaskText(text, parent, opts.MaskTextFn)
	}

	return &SerializedNode{Type: NodeText, TextContent: text, IsStyle: isStyleText}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func serializeElement(n *html.Node, opts *Options, ctx *serializeContext) *SerializedNode {
	tag := dom.TagName(n)
	isForm := tag == "form"
	sn := &SerializedNode{
		Type:    NodeElement,
		TagName: normalizeTagName(tag, isForm),
		IsSVG:   isSVGElement(n),
	}

	if IsBlockedElement(n, opts.BlockClass, opts.BlockSelector, opts) {
		sn.NeedBlock = true
		sn.Attributes = blockedAttributes(n, ctx.doc)
		return sn
	}

	sn.Attributes = collectAttributes(n, opts, ctx, sn.TagName)

	if ctx.doc != nil && ctx.doc.IsCustomElement(sn.TagName) {
		sn.IsCustom = true
	}

	applyElementSpecifics(n, sn, opts, ctx)
	return sn
}

func isSVGElement(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if dom.TagName(cur) == "svg" {
			return true
		}
	}
	return false
}

// blockedAttributes reduces a blocked element's attributes: keep only
// class plus the pixel-size placeholders read from the live scroll/size
// state, since a blocked element's descendants are never recorded.
func blockedAttributes(n *html.Node, doc *livedom.Document) map[string]any {
	attrs := map[string]any{}
	if class := dom.ClassName(n); class != "" {
		attrs["class"] = class
	}
	width, height := 0, 0
	if doc != nil {
		if s, ok := doc.BoxSize(n); ok {
			width, height = s.Width, s.Height
		}
	}
	attrs["rr_width"] = fmt.Sprintf("%dpx", width)
	attrs["rr_height"] = fmt.Sprintf("%dpx", height)
	return attrs
}

func collectAttributes(n *html.Node, opts *Options, ctx *serializeContext, tagName string) map[string]any {
	attrs := make(map[string]any, len(n.Attr))
	for _, a := range n.Attr {
		name := strings.ToLower(a.Key)
		if IgnoreAttribute(tagName, name) {
			continue
		}
		value := a.Val
		if ctx.doc != nil {
			value = TransformAttribute(ctx.doc, tagName, name, value)
		}
		attrs[name] = value
	}
	return attrs
}

// applyElementSpecifics applies the per-tag capture rules that go beyond
// plain attribute absolutization.
func applyElementSpecifics(n *html.Node, sn *SerializedNode, opts *Options, ctx *serializeContext) {
	tag := sn.TagName
	switch {
	case inputLikeTags[tag]:
		applyFormControlState(n, sn, opts, ctx, tag)
	case tag == "option":
		applyOptionState(n, sn, opts, ctx)
	case tag == "canvas" && opts.RecordCanvas:
		applyCanvasState(n, sn, opts, ctx)
	case tag == "img" && opts.InlineImages:
		applyInlineImageState(n, sn, opts, ctx)
	case tag == "audio" || tag == "video":
		applyMediaState(n, sn, ctx)
	case tag == "iframe":
		applyIframeSrc(n, sn, opts, ctx)
	case tag == "link" && opts.InlineStylesheet:
		applyLinkStylesheet(n, sn, ctx)
	case tag == "style" && n.FirstChild == nil:
		// A dynamic stylesheet: the element is empty but its sheet holds
		// rules inserted through the CSSOM.
		if cssText, ok := InlineStylesheetText(ctx.doc, n); ok && cssText != "" {
			sn.Attributes["_cssText"] = cssText
		}
	}

	if ctx.doc != nil && !ctx.newlyAdded {
		if s, ok := ctx.doc.ScrollState(n); ok && !sn.NeedBlock {
			sn.Attributes["rr_scrollLeft"] = s.Left
			sn.Attributes["rr_scrollTop"] = s.Top
		}
	}
}

func applyFormControlState(n *html.Node, sn *SerializedNode, opts *Options, ctx *serializeContext, tag string) {
	if ctx.doc == nil {
		return
	}
	state, ok := ctx.doc.InputState(n)
	if !ok {
		return
	}
	inputType := strings.ToLower(dom.GetAttribute(n, "type"))
	if tag == "input" && inputType == "" {
		inputType = "text"
	}

	if !nonValueInputTypes[inputType] && state.Value != "" {
		masked := MaskInputValue(tag, inputType, state.Value, opts.maskInputOptions(), opts.MaskInputFn, n)
		sn.Attributes["value"] = masked
		return
	}
	if state.Checked {
		sn.Attributes["checked"] = true
	}
}

// applyOptionState drops the selected HTML attribute, which reflects the
// control's initial value rather than its current one, and records the live
// selection instead, unless select values are masked.
func applyOptionState(n *html.Node, sn *SerializedNode, opts *Options, ctx *serializeContext) {
	delete(sn.Attributes, "selected")
	if ctx.doc == nil || opts.maskInputOptions()["select"] {
		return
	}
	state, ok := ctx.doc.InputState(n)
	if ok && state.Selected {
		sn.Attributes["selected"] = true
	}
}

// applyCanvasState records rr_dataURL for a canvas that provably holds a
// drawing: a 2d context already known blank is skipped outright, and an
// unknown context's capture is decoded and compared against a same-size
// blank canvas, recorded only when it differs.
func applyCanvasState(n *html.Node, sn *SerializedNode, opts *Options, ctx *serializeContext) {
	if ctx.doc == nil {
		return
	}
	state, ok := ctx.doc.CanvasState(n)
	if !ok || state.DataURL == "" {
		return
	}
	if state.Context != "" && state.Context != "2d" {
		return
	}
	if state.Context == "2d" && state.Blank {
		return
	}
	blank, err := dataurl.IsBlank(state.DataURL)
	if err != nil {
		reportError(opts, "serializer.canvas", err)
		return
	}
	if blank {
		return
	}
	sn.Attributes["rr_dataURL"] = state.DataURL
}

// applyInlineImageState encodes a recorder-captured image as a data URL.
// When the first capture can't be decoded, the crossOrigin=anonymous
// refetch is tried exactly once before the capture is abandoned.
func applyInlineImageState(n *html.Node, sn *SerializedNode, opts *Options, ctx *serializeContext) {
	if ctx.doc == nil {
		return
	}
	state, ok := ctx.doc.ImageState(n)
	if !ok || len(state.Data) == 0 {
		return
	}
	u, err := dataurl.FromBytes(state.Data, opts.DataURLOptions)
	if err != nil && len(state.AnonymousData) > 0 {
		u, err = dataurl.FromBytes(state.AnonymousData, opts.DataURLOptions)
	}
	if err != nil {
		reportError(opts, "serializer.inline-image", ErrCanvasTainted)
		return
	}
	sn.Attributes["rr_dataURL"] = u
}

func applyMediaState(n *html.Node, sn *SerializedNode, ctx *serializeContext) {
	if ctx.doc == nil {
		return
	}
	state, ok := ctx.doc.MediaState(n)
	if !ok {
		return
	}
	sn.Attributes["rr_mediaState"] = mediaPlayState(state)
	sn.Attributes["rr_mediaCurrentTime"] = state.CurrentTime
	sn.Attributes["rr_mediaPlaybackRate"] = state.PlaybackRate
	sn.Attributes["rr_mediaMuted"] = state.Muted
	sn.Attributes["rr_mediaLoop"] = state.Loop
	sn.Attributes["rr_mediaVolume"] = state.Volume
}

func mediaPlayState(s livedom.MediaState) string {
	if s.Paused {
		return "paused"
	}
	return "playing"
}

// applyLinkStylesheet inlines a <link rel=stylesheet>'s captured rule text:
// rel and href are dropped so replay never fetches the sheet, and _cssText
// carries the text absolutized against the sheet's own URL. A sheet that
// was never reachable (cross-origin) leaves the link intact.
func applyLinkStylesheet(n *html.Node, sn *SerializedNode, ctx *serializeContext) {
	if ctx.doc == nil {
		return
	}
	rel, _ := sn.Attributes["rel"].(string)
	if rel != "stylesheet" {
		return
	}
	state, found := ctx.doc.StylesheetState(n)
	if !found || !state.Reachable {
		return
	}
	href, _ := sn.Attributes["href"].(string)
	delete(sn.Attributes, "rel")
	delete(sn.Attributes, "href")
	sn.Attributes["_cssText"] = StringifyStylesheet(state.CSSText, href)
}

// applyIframeSrc suppresses iframe auto-loading on replay: when the
// caller's keepIframeSrcFn declines to keep the original src, and no
// same-origin content document was reachable to inline instead, src is
// moved to rr_src so replay never re-triggers a navigation on its own.
func applyIframeSrc(n *html.Node, sn *SerializedNode, opts *Options, ctx *serializeContext) {
	src, hasSrc := sn.Attributes["src"].(string)
	if !hasSrc {
		return
	}
	if opts.KeepIframeSrcFn != nil && opts.KeepIframeSrcFn(src) {
		return
	}
	if ctx.doc != nil {
		if _, reachable := ctx.doc.ContentDocument(n); reachable {
			return
		}
	}
	delete(sn.Attributes, "src")
	sn.Attributes["rr_src"] = src
}
