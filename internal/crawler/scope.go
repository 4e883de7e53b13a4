package crawler

import "strings"

// Scope is the URL prefix a crawl is confined to.
//
// Matching is a plain, case-sensitive string prefix test, not an origin
// comparison: with scope "http://host/wp", "http://host/wp-old/" is in
// scope too. Callers check normalized URLs.
type Scope string

// Contains reports whether u falls inside the scope.
func (s Scope) Contains(u string) bool {
	return strings.HasPrefix(u, string(s))
}
