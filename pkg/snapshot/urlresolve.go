// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/neokraft-labs/domsnap/pkg/livedom"
)

// rxAbsoluteURL matches a protocol-relative or fully-qualified URL that
// should pass through CSS url() absolutization untouched.
var rxAbsoluteURL = regexp.MustCompile(`(?i)^(?:[a-z+]+:)?//|^www\.`)

// rxStyleURL extracts the raw argument of a CSS url(...) token, quoted or
// not: group 1 holds a single-quoted argument, group 2 a double-quoted one,
// group 3 an unquoted one.
var rxStyleURL = regexp.MustCompile(`(?i)url\(\s*(?:'([^']*)'|"([^"]*)"|([^'")]*?))\s*\)`)

// AbsoluteToDoc resolves value against doc's base href, returning "" for
// empty/whitespace-only input and value unchanged for blob:/data: URIs
// (those are never relative, and resolving them would be wasted work at
// best and corruption at worst). Results are cached per document, since a
// page can reference the same handful of relative paths thousands of
// times.
func AbsoluteToDoc(doc *livedom.Document, value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "blob:") || strings.HasPrefix(trimmed, "data:") {
		return value
	}
	if doc == nil || doc.Base == nil {
		return value
	}

	if cached, ok := doc.CachedResolved(value); ok {
		return cached
	}

	resolved := value
	if u, err := url.Parse(trimmed); err == nil {
		resolved = doc.Base.ResolveReference(u).String()
	}
	doc.StoreResolved(value, resolved)
	return resolved
}

// AbsoluteToStylesheet rewrites every url(...) reference in cssText against
// href, preserving each reference's original quote style. Absolute URLs,
// protocol-relative URLs, and data: URIs pass through unchanged; anything
// else is resolved relative to href.
func AbsoluteToStylesheet(cssText, href string) string {
	base, err := url.Parse(href)
	if err != nil {
		return cssText
	}
	return rxStyleURL.ReplaceAllStringFunc(cssText, func(m string) string {
		sub := rxStyleURL.FindStringSubmatch(m)
		quote, raw := "", sub[3]
		switch arg := strings.TrimSpace(m[len("url("):]); {
		case strings.HasPrefix(arg, "'"):
			quote, raw = "'", sub[1]
		case strings.HasPrefix(arg, `"`):
			quote, raw = `"`, sub[2]
		}
		resolved := resolveStylesheetURL(raw, base)
		return "url(" + quote + resolved + quote + ")"
	})
}

func resolveStylesheetURL(raw string, base *url.URL) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	if strings.HasPrefix(trimmed, "data:") || rxAbsoluteURL.MatchString(trimmed) {
		return raw
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return raw
	}
	return base.ResolveReference(u).String()
}

// TransformAttribute dispatches absolutization by (tagName, attrName).
// Attributes outside its dispatch table are returned unchanged.
func TransformAttribute(doc *livedom.Document, tagName, name, value string) string {
	switch {
	case name == "src",
		name == "href" && !(tagName == "use" && strings.HasPrefix(value, "#")),
		name == "xlink:href" && !strings.HasPrefix(value, "#"),
		name == "background" && (tagName == "table" || tagName == "td" || tagName == "th"),
		tagName == "object" && name == "data":
		return AbsoluteToDoc(doc, value)
	case name == "srcset":
		return absolutizeSrcset(doc, value)
	case name == "style":
		if doc == nil || doc.Base == nil {
			return value
		}
		return AbsoluteToStylesheet(value, doc.Base.String())
	default:
		return value
	}
}

// absolutizeSrcset rewrites a srcset attribute only when a candidate URL
// actually resolved to something new; a srcset whose URLs are all absolute
// already passes through byte-for-byte.
func absolutizeSrcset(doc *livedom.Document, value string) string {
	set := Parse(value)
	changed := false
	for i := range set {
		resolved := AbsoluteToDoc(doc, set[i].URL)
		if resolved != set[i].URL {
			set[i].URL = resolved
			changed = true
		}
	}
	if !changed {
		return value
	}
	return set.String()
}

// IgnoreAttribute reports attributes the engine never rewrites or
// reproduces faithfully: a recorded autoplay on a media element would
// cause replay to start playing audio/video on its own.
func IgnoreAttribute(tagName, name string) bool {
	return (tagName == "video" || tagName == "audio") && name == "autoplay"
}
