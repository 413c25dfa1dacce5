// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"net/url"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"

	"github.com/neokraft-labs/domsnap/pkg/livedom"
)

// StringifyStylesheet concatenates a stylesheet's rule text and rewrites
// every url(...) reference it contains against href. It never returns an
// error: a cross-origin CSSOM access failure is represented upstream by the
// caller simply not having cssText to offer in the first place, matching
// "access may throw; callers must treat a throw as no inline capture
// possible."
//
// Unlike a full CSS serializer, this doesn't re-render from a parsed rule
// tree — it token-scans the source text with tdewolff/parse's CSS lexer,
// rewriting only url() tokens in place and passing every other token
// through verbatim, so comments, vendor extensions and formatting survive
// untouched.
func StringifyStylesheet(cssText, href string) string {
	if strings.TrimSpace(cssText) == "" {
		return ""
	}
	var out strings.Builder
	lexer := css.NewLexer(parse.NewInputString(cssText))
	inURLFunc := false
	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			break
		}
		switch tt {
		case css.URLToken:
			// An unquoted url(...) arrives as a single token.
			out.WriteString(rewriteURLToken(string(data), href))
		case css.FunctionToken:
			inURLFunc = strings.EqualFold(string(data), "url(")
			out.Write(data)
			continue
		case css.StringToken:
			// A quoted url("...") argument arrives as a function token
			// followed by a plain string token.
			if inURLFunc {
				out.WriteString(rewriteQuotedURL(string(data), href))
			} else {
				out.Write(data)
			}
		case css.WhitespaceToken:
			out.Write(data)
			continue
		default:
			out.Write(data)
		}
		inURLFunc = false
	}
	return out.String()
}

// rewriteQuotedURL absolutizes a quoted string token holding a URL,
// keeping its quote character.
func rewriteQuotedURL(token, href string) string {
	if len(token) < 2 {
		return token
	}
	quote := token[0]
	if quote != '\'' && quote != '"' {
		return token
	}
	inner := token[1 : len(token)-1]

	base, err := url.Parse(href)
	if err != nil {
		return token
	}
	return string(quote) + resolveStylesheetURL(inner, base) + string(quote)
}

// rewriteURLToken absolutizes the argument of a single url(...) token,
// preserving its quote style.
func rewriteURLToken(token, href string) string {
	inner := token
	inner = strings.TrimPrefix(inner, "url(")
	inner = strings.TrimSuffix(inner, ")")
	inner = strings.TrimSpace(inner)

	quote := ""
	if len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') {
		quote = string(inner[0])
		inner = inner[1 : len(inner)-1]
	}

	base, err := url.Parse(href)
	if err != nil {
		return token
	}
	resolved := resolveStylesheetURL(inner, base)
	if resolved == inner {
		return token
	}
	return "url(" + quote + resolved + quote + ")"
}

// InlineStylesheetText returns the absolutized cssText to set on a <link
// rel=stylesheet> or <style> element, and whether a capture was possible
// at all. It is "no capture possible" (ok=false) for a sheet that is
// unreachable — the cross-origin case — mirroring stringifyStylesheet's
// throw-on-access contract without Go having anything to actually throw.
func InlineStylesheetText(doc *livedom.Document, n *html.Node) (cssText string, ok bool) {
	if doc == nil {
		return "", false
	}
	state, found := doc.StylesheetState(n)
	if !found || !state.Reachable {
		return "", false
	}
	href := ""
	if doc.Base != nil {
		href = doc.Base.String()
	}
	return StringifyStylesheet(state.CSSText, href), true
}
