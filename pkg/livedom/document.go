// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package livedom stands in for the handful of live-browser properties that
// golang.org/x/net/html.Node has no room for: shadow root attachment, input
// and media element state, canvas drawing state, custom element
// registration, and scroll offsets. A snapshot caller populates a [Document]
// once per walk; the serializer reads from it and writes only its
// URL-resolution cache (see [Document.StoreResolved]).
package livedom

import (
	"net/url"
	"sync"

	"golang.org/x/net/html"
)

// ShadowRoot records that a host element owns a shadow tree whose children
// are inlined into the host's own childNodes during serialization. Content
// is the detached fragment root whose childNodes are the actual shadow
// tree; golang.org/x/net/html has no notion of shadow attachment on its
// own, so a recorder builds this fragment the same way it would build any
// other detached subtree and registers it here.
type ShadowRoot struct {
	Host    *html.Node
	Mode    string // "open" or "closed"
	Native  bool   // false for library polyfills; only native roots get isShadow
	Content *html.Node
}

// InputState mirrors the live value of a form control. HTML attributes only
// ever reflect the control's *initial* value, so a recorder populates this
// from the control's current live property before a snapshot.
type InputState struct {
	Value    string
	Checked  bool
	Selected bool
}

// MediaState mirrors an <audio> or <video> element's live playback state.
type MediaState struct {
	CurrentTime  float64
	Volume       float64
	PlaybackRate float64
	Paused       bool
	Muted        bool
	Loop         bool
}

// CanvasState mirrors a <canvas> element's drawing context marker and
// whether its backing store currently holds only transparent/blank pixels.
type CanvasState struct {
	Context string // "2d", "webgl", "" if never acquired
	Blank   bool
	DataURL string // pre-rendered toDataURL, filled in by the recorder
}

// ImageState holds the pixel bytes a recorder captured for an <img> it
// wants inlined. Data is the image as first fetched; AnonymousData, when
// set, is the one-shot crossOrigin=anonymous refetch the serializer falls
// back to only when Data can't be decoded.
type ImageState struct {
	Data          []byte
	AnonymousData []byte
}

// ScrollState mirrors an element's live scroll offsets.
type ScrollState struct {
	Left, Top int
}

// BoxSize mirrors an element's rendered pixel dimensions, the way
// getBoundingClientRect would report them for a blocked element's
// placeholder box.
type BoxSize struct {
	Width, Height int
}

// IframeReadyState mirrors an iframe's contentDocument.readyState. The
// zero value "" is treated by the async hooks as "complete", since absent
// any live browser a freshly supplied content document is assumed already
// loaded unless the recorder says otherwise.
type IframeReadyState struct {
	State           string // "loading" or "complete"
	NavigationPending bool // true if readyState is complete but src hasn't navigated past about:blank yet
}

// StylesheetState mirrors a <link rel=stylesheet> or <style> element's
// live CSSOM sheet: whether one is reachable at all (false for a
// cross-origin stylesheet whose cssRules access would throw) and, when it
// is, its concatenated, not-yet-absolutized rule text.
type StylesheetState struct {
	Reachable bool
	CSSText   string
}

// Document is the side-channel state store for one live document tree. The
// zero value is usable; Base should be set before resolving any URL.
type Document struct {
	Root *html.Node
	Base *url.URL

	mu            sync.RWMutex
	shadowRoots   map[*html.Node]*ShadowRoot
	contentDocs   map[*html.Node]*Document
	customElems   map[string]bool
	inputs        map[*html.Node]InputState
	media         map[*html.Node]MediaState
	canvases      map[*html.Node]CanvasState
	images        map[*html.Node]ImageState
	scrolls       map[*html.Node]ScrollState
	boxes         map[*html.Node]BoxSize
	newlyAdded    map[*html.Node]bool
	stylesheets   map[*html.Node]StylesheetState
	urlResolveMap map[string]string
	iframeStates  map[*html.Node]IframeReadyState
	iframeLoad    map[*html.Node]chan struct{}
	sheetLoad     map[*html.Node]chan struct{}
}

// NewDocument wraps root as a live document resolved against base.
func NewDocument(root *html.Node, base *url.URL) *Document {
	return &Document{Root: root, Base: base}
}

func (d *Document) lazyInit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shadowRoots == nil {
		d.shadowRoots = make(map[*html.Node]*ShadowRoot)
		d.contentDocs = make(map[*html.Node]*Document)
		d.customElems = make(map[string]bool)
		d.inputs = make(map[*html.Node]InputState)
		d.media = make(map[*html.Node]MediaState)
		d.canvases = make(map[*html.Node]CanvasState)
		d.images = make(map[*html.Node]ImageState)
		d.scrolls = make(map[*html.Node]ScrollState)
		d.boxes = make(map[*html.Node]BoxSize)
		d.newlyAdded = make(map[*html.Node]bool)
		d.stylesheets = make(map[*html.Node]StylesheetState)
		d.urlResolveMap = make(map[string]string)
		d.iframeStates = make(map[*html.Node]IframeReadyState)
		d.iframeLoad = make(map[*html.Node]chan struct{})
		d.sheetLoad = make(map[*html.Node]chan struct{})
	}
}

// AttachShadowRoot registers a shadow root on host.
func (d *Document) AttachShadowRoot(host *html.Node, root *ShadowRoot) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	root.Host = host
	d.shadowRoots[host] = root
}

// ShadowRoot returns the shadow root attached to host, if any.
func (d *Document) ShadowRoot(host *html.Node) (*ShadowRoot, bool) {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.shadowRoots[host]
	return r, ok
}

// SetContentDocument associates an <iframe> node with a reachable same-origin
// content document. A cross-origin or not-yet-navigated iframe has none.
func (d *Document) SetContentDocument(iframe *html.Node, doc *Document) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contentDocs[iframe] = doc
}

// ContentDocument returns the content document of an <iframe>, if reachable.
func (d *Document) ContentDocument(iframe *html.Node) (*Document, bool) {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.contentDocs[iframe]
	return doc, ok
}

// RegisterCustomElement marks tagName as a registered custom element, the
// equivalent of a truthy customElements.get(tagName) lookup.
func (d *Document) RegisterCustomElement(tagName string) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customElems[tagName] = true
}

// IsCustomElement reports whether tagName was registered as custom.
func (d *Document) IsCustomElement(tagName string) bool {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.customElems[tagName]
}

// SetInputState records the live value of a form control node.
func (d *Document) SetInputState(n *html.Node, s InputState) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputs[n] = s
}

// InputState returns the live state of a form control node.
func (d *Document) InputState(n *html.Node) (InputState, bool) {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.inputs[n]
	return s, ok
}

// SetMediaState records the live playback state of a media element.
func (d *Document) SetMediaState(n *html.Node, s MediaState) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.media[n] = s
}

// MediaState returns the live playback state of a media element.
func (d *Document) MediaState(n *html.Node) (MediaState, bool) {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.media[n]
	return s, ok
}

// SetCanvasState records the live drawing state of a canvas element.
func (d *Document) SetCanvasState(n *html.Node, s CanvasState) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.canvases[n] = s
}

// CanvasState returns the live drawing state of a canvas element.
func (d *Document) CanvasState(n *html.Node) (CanvasState, bool) {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.canvases[n]
	return s, ok
}

// SetImageState records the captured pixel bytes of an <img> element.
func (d *Document) SetImageState(n *html.Node, s ImageState) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.images[n] = s
}

// ImageState returns the captured pixel bytes of an <img> element.
func (d *Document) ImageState(n *html.Node) (ImageState, bool) {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.images[n]
	return s, ok
}

// SetScrollState records the live scroll offsets of an element.
func (d *Document) SetScrollState(n *html.Node, s ScrollState) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrolls[n] = s
}

// ScrollState returns the live scroll offsets of an element.
func (d *Document) ScrollState(n *html.Node) (ScrollState, bool) {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.scrolls[n]
	return s, ok
}

// MarkNewlyAdded flags a node as having just entered the tree, so the
// walker skips its scroll-position capture (new nodes always scroll 0, and
// reading a freshly attached node's scroll offsets forces a layout).
func (d *Document) MarkNewlyAdded(n *html.Node) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.newlyAdded[n] = true
}

// IsNewlyAdded reports whether n was flagged via MarkNewlyAdded.
func (d *Document) IsNewlyAdded(n *html.Node) bool {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.newlyAdded[n]
}

// SetStylesheetState records the live CSSOM reachability and rule text of
// a <link> or <style> element.
func (d *Document) SetStylesheetState(n *html.Node, s StylesheetState) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stylesheets[n] = s
}

// StylesheetState returns the live CSSOM state of a <link> or <style>
// element, if one was ever recorded for it.
func (d *Document) StylesheetState(n *html.Node) (StylesheetState, bool) {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.stylesheets[n]
	return s, ok
}

// SetBoxSize records an element's rendered pixel dimensions, read once per
// blocked element the way getBoundingClientRect would be.
func (d *Document) SetBoxSize(n *html.Node, s BoxSize) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.boxes[n] = s
}

// BoxSize returns an element's recorded rendered pixel dimensions.
func (d *Document) BoxSize(n *html.Node) (BoxSize, bool) {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.boxes[n]
	return s, ok
}

// SetIframeReadyState records an iframe's live readyState, as observed by
// the recorder collaborator before a snapshot call.
func (d *Document) SetIframeReadyState(iframe *html.Node, s IframeReadyState) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.iframeStates[iframe] = s
}

// IframeReadyState returns an iframe's recorded readyState; the zero value
// ("complete", not pending) is returned when nothing was ever recorded, so
// a content document supplied without explicit state is assumed ready.
func (d *Document) IframeReadyState(iframe *html.Node) IframeReadyState {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.iframeStates[iframe]
	if !ok {
		return IframeReadyState{State: "complete"}
	}
	return s
}

// IframeLoadSignal returns the channel closed by SignalIframeLoaded when
// iframe's content document finishes navigating. It is created lazily so a
// caller can register interest before the recorder ever fires it.
func (d *Document) IframeLoadSignal(iframe *html.Node) <-chan struct{} {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.iframeLoad[iframe]
	if !ok {
		ch = make(chan struct{})
		d.iframeLoad[iframe] = ch
	}
	return ch
}

// SignalIframeLoaded closes iframe's load signal, waking every waiter
// armed via IframeLoadSignal. Safe to call at most once per iframe; a
// second call would panic on an already-closed channel, the same way a
// real "load" event firing twice would be a recorder bug, not something
// this package needs to guard against.
func (d *Document) SignalIframeLoaded(iframe *html.Node) {
	d.lazyInit()
	d.mu.Lock()
	ch, ok := d.iframeLoad[iframe]
	if !ok {
		ch = make(chan struct{})
		d.iframeLoad[iframe] = ch
	}
	d.mu.Unlock()
	close(ch)
}

// StylesheetLoadSignal returns the channel closed by
// SignalStylesheetLoaded once a <link>'s sheet becomes reachable.
func (d *Document) StylesheetLoadSignal(link *html.Node) <-chan struct{} {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.sheetLoad[link]
	if !ok {
		ch = make(chan struct{})
		d.sheetLoad[link] = ch
	}
	return ch
}

// SignalStylesheetLoaded closes link's stylesheet load signal.
func (d *Document) SignalStylesheetLoaded(link *html.Node) {
	d.lazyInit()
	d.mu.Lock()
	ch, ok := d.sheetLoad[link]
	if !ok {
		ch = make(chan struct{})
		d.sheetLoad[link] = ch
	}
	d.mu.Unlock()
	close(ch)
}

// CachedResolved returns a previously stored URL resolution for value. The
// cache is document-keyed rather than global: it lives on the Document
// itself and is released with it, the weak-map-free answer to caching a
// per-document resolver.
func (d *Document) CachedResolved(value string) (string, bool) {
	d.lazyInit()
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.urlResolveMap[value]
	return r, ok
}

// StoreResolved records the resolution of value for later CachedResolved
// calls. Async stylesheet hooks can re-enter the resolver from their own
// goroutines, so the cache is guarded like every other map here.
func (d *Document) StoreResolved(value, resolved string) {
	d.lazyInit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urlResolveMap[value] = resolved
}
