// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"strconv"
	"strings"
)

// ImageSource is one candidate of a parsed srcset attribute: a URL plus at
// most one of a pixel-density or width descriptor (and, following this
// parser's own extension, a height descriptor — not part of the HTML
// Living Standard grammar, but recognized the same way a width descriptor
// is). Descriptor holds the descriptor's source text verbatim; the parsed
// numeric fields exist for validation and consumers that need the value.
type ImageSource struct {
	URL        string
	Descriptor string
	Density    float64
	Width      int
	Height     int
}

// SourceSet is a parsed srcset attribute value.
type SourceSet []ImageSource

// String reassembles the source set, normalizing only the whitespace and
// line breaks between candidates. Descriptors are emitted exactly as they
// appeared in the source text: "2.00x" stays "2.00x".
func (s SourceSet) String() string {
	parts := make([]string, len(s))
	for i, src := range s {
		if src.Descriptor != "" {
			parts[i] = src.URL + " " + src.Descriptor
		} else {
			parts[i] = src.URL
		}
	}
	return strings.Join(parts, ", ")
}

// Parse tokenizes value the way the HTML Living Standard's srcset parser
// does: leading whitespace and commas are skipped, a URL is read up to the
// next whitespace, and — unless the URL itself ends with a comma, meaning
// it has no descriptor — a descriptor is read up to the next top-level
// comma. Commas nested inside parentheses don't terminate a descriptor;
// that's the standard's forward-compatibility allowance for parenthesized
// descriptor syntax, and it means a candidate can swallow a later, otherwise
// well-formed candidate if it opens a paren it never needs to close before
// the string ends. A candidate whose descriptor fails to parse as a single
// density, width, or height value is dropped entirely; it does not abort
// the rest of the list.
func Parse(value string) SourceSet {
	out := SourceSet{}
	pos, n := 0, len(value)

	for {
		for pos < n && (isSrcsetSpace(value[pos]) || value[pos] == ',') {
			pos++
		}
		if pos >= n {
			break
		}

		start := pos
		for pos < n && !isSrcsetSpace(value[pos]) {
			pos++
		}
		url := value[start:pos]
		if url == "" {
			break
		}
		if strings.HasSuffix(url, ",") {
			url = strings.TrimRight(url, ",")
			if src, ok := parseDescriptor(url, ""); ok {
				out = append(out, src)
			}
			continue
		}

		for pos < n && isSrcsetSpace(value[pos]) {
			pos++
		}
		descStart := pos
		depth := 0
		for pos < n {
			switch value[pos] {
			case '(':
				depth++
			case ')':
				if depth > 0 {
					depth--
				}
			case ',':
				if depth == 0 {
					goto descriptorDone
				}
			}
			pos++
		}
	descriptorDone:
		descriptor := strings.TrimSpace(value[descStart:pos])
		if pos < n && value[pos] == ',' {
			pos++
		}
		if src, ok := parseDescriptor(url, descriptor); ok {
			out = append(out, src)
		}
	}
	return out
}

func isSrcsetSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// parseDescriptor accepts zero or one token of the form "<number>x",
// "<positive int>w", or "<positive int>h", keeping the token's source text
// untouched in Descriptor. Anything else — including multiple tokens, or
// parenthesized content that slipped through as a literal descriptor
// string — fails the whole candidate.
func parseDescriptor(url, descriptor string) (ImageSource, bool) {
	if descriptor == "" {
		return ImageSource{URL: url}, true
	}
	fields := strings.Fields(descriptor)
	if len(fields) != 1 {
		return ImageSource{}, false
	}
	tok := fields[0]
	suffix := tok[len(tok)-1]
	numPart := tok[:len(tok)-1]

	switch suffix {
	case 'x', 'X':
		d, err := strconv.ParseFloat(numPart, 64)
		if err != nil || d <= 0 {
			return ImageSource{}, false
		}
		return ImageSource{URL: url, Descriptor: descriptor, Density: d}, true
	case 'w', 'W':
		w, err := strconv.Atoi(numPart)
		if err != nil || w <= 0 {
			return ImageSource{}, false
		}
		return ImageSource{URL: url, Descriptor: descriptor, Width: w}, true
	case 'h', 'H':
		h, err := strconv.Atoi(numPart)
		if err != nil || h <= 0 {
			return ImageSource{}, false
		}
		return ImageSource{URL: url, Descriptor: descriptor, Height: h}, true
	default:
		return ImageSource{}, false
	}
}

// GetSourcesFromSrcset returns the deduplicated, order-preserving set of
// URLs referenced by a srcset attribute value, without rewriting them.
func GetSourcesFromSrcset(value string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, src := range Parse(value) {
		if seen[src.URL] {
			continue
		}
		seen[src.URL] = true
		out = append(out, src.URL)
	}
	return out
}
