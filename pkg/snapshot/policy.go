// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// PolicyMatcher decides whether an element's class list matches a block or
// mask-text rule. blockClass/maskTextClass accept either a literal class
// name or a regular expression tested against each class token; both forms
// share this one interface, selected at construction time, instead of a
// runtime type switch at every call site.
type PolicyMatcher interface {
	MatchClasses(classes []string) bool
}

type literalClassMatcher string

func (m literalClassMatcher) MatchClasses(classes []string) bool {
	for _, c := range classes {
		if c == string(m) {
			return true
		}
	}
	return false
}

type regexClassMatcher struct{ re *regexp.Regexp }

func (m regexClassMatcher) MatchClasses(classes []string) bool {
	for _, c := range classes {
		if m.re.MatchString(c) {
			return true
		}
	}
	return false
}

// NewClassMatcher returns a [PolicyMatcher] that matches an exact class
// name, the way blockClass/maskTextClass default to "rr-block"/"rr-mask".
func NewClassMatcher(class string) PolicyMatcher { return literalClassMatcher(class) }

// NewClassRegexMatcher returns a [PolicyMatcher] that matches any class
// token against re.
func NewClassRegexMatcher(re *regexp.Regexp) PolicyMatcher { return regexClassMatcher{re} }

func classTokens(n *html.Node) []string {
	return strings.Fields(dom.ClassName(n))
}

// selectorCache avoids recompiling the same CSS selector string on every
// policy check within a walk; cascadia.Compile is not free.
var selectorCache sync.Map

func compileSelector(sel string) (cascadia.Selector, error) {
	if sel == "" {
		return nil, nil
	}
	if v, ok := selectorCache.Load(sel); ok {
		if v == nil {
			return nil, errBadSelector
		}
		return v.(cascadia.Selector), nil
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		selectorCache.Store(sel, nil)
		return nil, err
	}
	selectorCache.Store(sel, s)
	return s, nil
}

var errBadSelector = errors.New("snapshot: invalid selector")

// IsBlockedElement implements the block half of the Mask/Block Policy: an
// element is blocked if its class list matches blockClass, or it matches
// blockSelector. A selector compile/match failure is swallowed and
// reported through opts, treated as not-blocked.
func IsBlockedElement(n *html.Node, blockClass PolicyMatcher, blockSelector string, opts *Options) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if blockClass != nil && blockClass.MatchClasses(classTokens(n)) {
		return true
	}
	if blockSelector == "" {
		return false
	}
	sel, err := compileSelector(blockSelector)
	if err != nil {
		reportError(opts, "policy.block-selector", ErrPolicyCheck)
		return false
	}
	return sel.Match(n)
}

// NeedsMaskingText implements the mask half of the Mask/Block Policy.
// checkAncestors=false tests only n itself (the walker uses it for each
// descendant of a node that tested false; a true verdict is inherited by
// the whole subtree without calling this again); checkAncestors=true also
// walks up through parents, which the walker does only for its entry node.
func NeedsMaskingText(n *html.Node, maskClass PolicyMatcher, maskSelector string, checkAncestors bool, opts *Options) bool {
	if n == nil {
		return false
	}
	el := n
	if el.Type != html.ElementNode {
		if el.Parent == nil {
			return false
		}
		el = el.Parent
	}
	if el.Type != html.ElementNode {
		return false
	}
	if !checkAncestors {
		return matchesMaskRule(el, maskClass, maskSelector, opts)
	}
	for cur := el; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if matchesMaskRule(cur, maskClass, maskSelector, opts) {
			return true
		}
	}
	return false
}

func matchesMaskRule(n *html.Node, maskClass PolicyMatcher, maskSelector string, opts *Options) bool {
	if maskClass != nil && maskClass.MatchClasses(classTokens(n)) {
		return true
	}
	if maskSelector == "" {
		return false
	}
	sel, err := compileSelector(maskSelector)
	if err != nil {
		reportError(opts, "policy.mask-selector", ErrPolicyCheck)
		return false
	}
	return sel.Match(n)
}

// MaskText redacts text character-by-character (non-whitespace → '*')
// unless maskTextFn is supplied, in which case it receives the original
// text and the parent element and may return arbitrary replacement text.
func MaskText(text string, parent *html.Node, fn MaskTextFunc) string {
	if fn != nil {
		return fn(text, parent)
	}
	out := []rune(text)
	for i, r := range out {
		if !isSpace(r) {
			out[i] = '*'
		}
	}
	return string(out)
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// MaskInputValue consults
// the per-type MaskInputOptions table and, when the type calls for
// masking, returns the redacted value via maskInputFn or the default
// character-redaction rule.
func MaskInputValue(tagName, inputType, value string, maskOpts MaskInputOptions, fn MaskInputFunc, element *html.Node) string {
	key := inputType
	if tagName == "textarea" || tagName == "select" {
		key = tagName
	}
	if !maskOpts[key] {
		return value
	}
	if fn != nil {
		return fn(value, element)
	}
	return MaskText(value, element, nil)
}
