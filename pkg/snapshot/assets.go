// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package snapshot

import (
	"github.com/google/uuid"
)

// assetCacheableTags are the elements whose src/srcset reference a media
// resource a downstream asset cache would want to know about.
var assetCacheableTags = map[string]bool{
	"img": true, "source": true, "track": true, "video": true, "audio": true,
}

// AssetRef is one URL detected on a serialized element, named with a
// stable, collision-resistant key so a downstream asset cache can
// correlate repeated detections of the same URL across a walk, the way
// uuidNamer names a downloaded resource from its URL alone.
type AssetRef struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// NameAsset derives a stable, collision-resistant name for url from the
// UUID URL namespace; the same URL always yields the same name.
func NameAsset(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// detectedAssetURLs collects every absolutized
// URL referenced by sn's src/srcset, in source order and deduplicated,
// for asset-cacheable elements plus <link rel=stylesheet> (its href, when
// the sheet wasn't inlined) and object/embed (their data/src).
func detectedAssetURLs(sn *SerializedNode) []string {
	if sn.Type != NodeElement || sn.Attributes == nil {
		return nil
	}

	cacheable := assetCacheableTags[sn.TagName] ||
		sn.TagName == "object" || sn.TagName == "embed" ||
		(sn.TagName == "link" && sn.Attributes["rel"] == "stylesheet" && sn.Attributes["_cssText"] == nil)

	if !cacheable {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	if src, ok := sn.Attributes["src"].(string); ok {
		add(src)
	}
	if data, ok := sn.Attributes["data"].(string); ok {
		add(data)
	}
	if href, ok := sn.Attributes["href"].(string); ok {
		add(href)
	}
	if srcset, ok := sn.Attributes["srcset"].(string); ok {
		for _, u := range GetSourcesFromSrcset(srcset) {
			add(u)
		}
	}

	return out
}

// AssetRefs is the convenience form of detectedAssetURLs used by callers
// that want stable names alongside the URLs (e.g. to key an asset cache),
// rather than raw strings.
func AssetRefs(sn *SerializedNode) []AssetRef {
	urls := detectedAssetURLs(sn)
	if len(urls) == 0 {
		return nil
	}
	refs := make([]AssetRef, len(urls))
	for i, u := range urls {
		refs[i] = AssetRef{URL: u, Name: NameAsset(u)}
	}
	return refs
}
