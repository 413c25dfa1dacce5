// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"time"

	"golang.org/x/net/html"

	"github.com/neokraft-labs/domsnap/pkg/dataurl"
)

// MaskInputFunc returns the redacted text to record for a form control's
// live value.
type MaskInputFunc func(value string, element *html.Node) string

// MaskTextFunc returns the redacted text to record for a text node.
type MaskTextFunc func(text string, parentElement *html.Node) string

// KeepIframeSrcFunc decides whether an <iframe>'s original src should be
// kept verbatim (true) instead of moved to rr_src and inlined.
type KeepIframeSrcFunc func(src string) bool

// OnSerializeFunc is an observational callback fired once per visited live
// node, after it has been assigned an ID.
type OnSerializeFunc func(n *html.Node)

// OnIframeLoadFunc fires once a same-origin iframe's content document has
// been (re-)serialized, asynchronously, after the initial walk returned.
type OnIframeLoadFunc func(iframe *html.Node, doc *SerializedNode)

// OnStylesheetLoadFunc fires once a <link> stylesheet's text has been
// captured asynchronously, after the initial walk returned.
type OnStylesheetLoadFunc func(link *html.Node, serialized *SerializedNode)

// OnAssetDetectedFunc fires once per element carrying asset-cacheable
// URLs, with every absolutized URL referenced by that element.
type OnAssetDetectedFunc func(n *html.Node, urls []string)

// OnErrorFunc receives every swallowed error, tagged with the call site
// that produced it, so a host application can observe degraded captures
// without the core ever returning an error itself.
type OnErrorFunc func(site string, err error)

// MaskInputOptions maps an input "type" (or "textarea"/"select") to
// whether its value should be masked. Unknown types are treated as false.
type MaskInputOptions map[string]bool

// defaultMaskInputOptions masks only password fields, matching
// maskAllInputs=false.
func defaultMaskInputOptions() MaskInputOptions {
	return MaskInputOptions{"password": true}
}

// allMaskInputOptions masks every known input-like control, matching
// maskAllInputs=true.
func allMaskInputOptions() MaskInputOptions {
	return MaskInputOptions{
		"text": true, "email": true, "tel": true, "password": true,
		"number": true, "date": true, "color": true, "range": true,
		"search": true, "url": true, "month": true, "week": true,
		"time": true, "datetime-local": true,
		"textarea": true, "select": true, "radio": true, "checkbox": true,
	}
}

// SlimDOMOptions gates which declarative slim-DOM drop rules are active.
type SlimDOMOptions struct {
	Comment             bool
	Script              bool
	HeadFavicon         bool
	HeadWhitespace      bool
	HeadMetaDescKeywords bool
	HeadMetaSocial      bool
	HeadMetaRobots      bool
	HeadMetaHTTPEquiv   bool
	HeadMetaAuthorship  bool
	HeadMetaVerification bool
}

// allSlimDOMOptions enables every category; slimDOM="all" additionally
// turns on HeadMetaDescKeywords on top of this.
func allSlimDOMOptions() SlimDOMOptions {
	return SlimDOMOptions{
		Comment: true, Script: true, HeadFavicon: true, HeadWhitespace: true,
		HeadMetaSocial: true, HeadMetaRobots: true, HeadMetaHTTPEquiv: true,
		HeadMetaAuthorship: true, HeadMetaVerification: true,
	}
}

// Options configures a call to [Snapshot] or [SerializeNode]. The zero
// value is invalid; use [DefaultOptions] and override individual fields.
type Options struct {
	Mirror Mirror

	BlockClass      PolicyMatcher
	BlockSelector   string
	MaskTextClass   PolicyMatcher
	MaskTextSelector string

	MaskAllInputs    bool
	MaskInputOptions MaskInputOptions
	MaskInputFn      MaskInputFunc
	MaskTextFn       MaskTextFunc

	InlineStylesheet bool
	InlineImages     bool
	RecordCanvas     bool
	PreserveWhiteSpace bool

	// DataURLOptions controls how captured <img> pixels are encoded into
	// rr_dataURL values; the zero value encodes PNG at the image's own
	// size. A canvas's rr_dataURL is the recorder's CanvasState.DataURL,
	// recorded as it is; these options are not applied to it.
	DataURLOptions dataurl.Options

	SlimDOM SlimDOMOptions

	IframeLoadTimeout     time.Duration
	StylesheetLoadTimeout time.Duration
	KeepIframeSrcFn       KeepIframeSrcFunc

	IDGenerator *IDGenerator

	OnSerialize     OnSerializeFunc
	OnIframeLoad    OnIframeLoadFunc
	OnStylesheetLoad OnStylesheetLoadFunc
	OnAssetDetected OnAssetDetectedFunc
	OnError         OnErrorFunc
}

// DefaultOptions returns the options described for the public entry point:
// blockClass "rr-block", maskTextClass "rr-mask", inline stylesheets on,
// inline images and canvas recording off, 5s async timeouts, and a mirror
// that is fresh to this call.
func DefaultOptions() *Options {
	return &Options{
		Mirror:                NewMemoryMirror(),
		BlockClass:            NewClassMatcher("rr-block"),
		MaskTextClass:         NewClassMatcher("rr-mask"),
		MaskInputOptions:      defaultMaskInputOptions(),
		InlineStylesheet:      true,
		IframeLoadTimeout:     5 * time.Second,
		StylesheetLoadTimeout: 5 * time.Second,
		KeepIframeSrcFn:       func(string) bool { return false },
		IDGenerator:           defaultGenerator,
	}
}

// WithMaskAllInputs switches MaskAllInputs on and expands MaskInputOptions
// to the every-type preset, matching maskAllInputs=true semantics.
func (o *Options) WithMaskAllInputs() *Options {
	o.MaskAllInputs = true
	o.MaskInputOptions = allMaskInputOptions()
	return o
}

// WithSlimDOMAll expands SlimDOM to the "all" preset (every category, plus
// description/keyword meta tags).
func (o *Options) WithSlimDOMAll() *Options {
	o.SlimDOM = allSlimDOMOptions()
	o.SlimDOM.HeadMetaDescKeywords = true
	return o
}

// WithSlimDOMDefault expands SlimDOM to the slimDOM=true preset: every
// category enabled, but without description/keyword meta tags.
func (o *Options) WithSlimDOMDefault() *Options {
	o.SlimDOM = allSlimDOMOptions()
	return o
}

func (o *Options) nextID() int {
	if o.IDGenerator == nil {
		return defaultGenerator.Next()
	}
	return o.IDGenerator.Next()
}

func (o *Options) maskInputOptions() MaskInputOptions {
	if o.MaskInputOptions != nil {
		return o.MaskInputOptions
	}
	if o.MaskAllInputs {
		return allMaskInputOptions()
	}
	return defaultMaskInputOptions()
}
