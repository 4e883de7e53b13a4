package crawler

import (
	"sort"

	"github.com/jmylchreest/authcrawl/internal/fetcher"
)

// ExtractLinks resolves every reference in links against base and returns the
// distinct normalized URLs in first-seen order. Categories are walked in
// sorted order so the result is deterministic. Descriptors with neither href
// nor src, and references that do not resolve, are skipped.
func ExtractLinks(links fetcher.LinkSet, base string) []string {
	if len(links) == 0 {
		return nil
	}

	categories := make([]string, 0, len(links))
	for c := range links {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	seen := make(map[string]bool)
	var out []string
	for _, category := range categories {
		for _, link := range links[category] {
			ref := link.Href
			if ref == "" {
				ref = link.Src
			}
			if ref == "" {
				continue
			}
			resolved := ResolveURL(base, ref)
			if resolved == "" || seen[resolved] {
				continue
			}
			seen[resolved] = true
			out = append(out, resolved)
		}
	}
	return out
}
