// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"regexp"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

var (
	rxMetaSocial       = regexp.MustCompile(`(?i)^(?:og|twitter|fb|pinterest):?`)
	rxMetaRobots       = regexp.MustCompile(`(?i)^(?:robots|googlebot|bingbot)$`)
	rxMetaAuthorship   = regexp.MustCompile(`(?i)^(?:author|generator|framework|publisher|progid)$`)
	rxMetaAuthorshipProp = regexp.MustCompile(`(?i)^(?:article|product):`)
	rxMetaVerification = regexp.MustCompile(`(?i)^(?:google-site-verification|msvalidate\.01|yandex-verification|p:domain_verify|norton-safeweb-site-verification|facebook-domain-verification)$`)
	rxFaviconRel       = regexp.MustCompile(`(?i)\bicon\b`)
)

// ShouldIgnoreNode implements the Slim-DOM Filter's declarative rules: it
// returns true when a node should be recorded in the mirror (so sibling
// traversal stays coherent) but never emitted in the serialized tree.
func ShouldIgnoreNode(n *html.Node, opts SlimDOMOptions) bool {
	switch n.Type {
	case html.CommentNode:
		return opts.Comment
	case html.ElementNode:
		return isSlimmedElement(n, opts)
	}
	return false
}

func isSlimmedElement(n *html.Node, opts SlimDOMOptions) bool {
	tag := dom.TagName(n)

	if opts.Script && isScriptLikeNode(n, tag) {
		return true
	}
	if opts.HeadFavicon && isFaviconNode(n, tag) {
		return true
	}
	if tag == "meta" && isSlimmedMeta(n, opts) {
		return true
	}
	return false
}

func isScriptLikeNode(n *html.Node, tag string) bool {
	if tag == "script" {
		return true
	}
	if tag != "link" {
		return false
	}
	rel := dom.GetAttribute(n, "rel")
	as := dom.GetAttribute(n, "as")
	href := dom.GetAttribute(n, "href")
	switch rel {
	case "preload", "modulepreload":
		return as == "script"
	case "prefetch":
		return strings.HasSuffix(strings.ToLower(href), ".js")
	}
	return false
}

func isFaviconNode(n *html.Node, tag string) bool {
	switch tag {
	case "link":
		return rxFaviconRel.MatchString(dom.GetAttribute(n, "rel"))
	case "meta":
		name := dom.GetAttribute(n, "name")
		return name == "msapplication-TileImage" || name == "msapplication-config"
	}
	return false
}

func isSlimmedMeta(n *html.Node, opts SlimDOMOptions) bool {
	name := strings.ToLower(dom.GetAttribute(n, "name"))
	property := strings.ToLower(dom.GetAttribute(n, "property"))

	if opts.HeadMetaDescKeywords && (name == "description" || name == "keywords") {
		return true
	}
	if opts.HeadMetaSocial && (rxMetaSocial.MatchString(property) || rxMetaSocial.MatchString(name)) {
		return true
	}
	if opts.HeadMetaRobots && rxMetaRobots.MatchString(name) {
		return true
	}
	if opts.HeadMetaHTTPEquiv && dom.HasAttribute(n, "http-equiv") {
		return true
	}
	if opts.HeadMetaAuthorship && (rxMetaAuthorship.MatchString(name) || rxMetaAuthorshipProp.MatchString(property)) {
		return true
	}
	if opts.HeadMetaVerification && rxMetaVerification.MatchString(name) {
		return true
	}
	return false
}

// IsWhitespaceOnlyText reports whether n is a non-empty run of only ASCII
// whitespace, the condition under which a Text node outside <style> is
// dropped unless PreserveWhiteSpace is set.
func IsWhitespaceOnlyText(n *html.Node) bool {
	if n.Type != html.TextNode || n.Data == "" {
		return false
	}
	for _, r := range n.Data {
		if !isSpace(r) {
			return false
		}
	}
	return true
}
