package crawler

import (
	"net/url"
	"strings"
)

// NormalizeURL strips the fragment from an absolute URL and returns its
// canonical string form. Scheme, host, path and query are kept as given.
// Empty, relative or unparseable input yields "".
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// nonNavigable are reference schemes that never lead to a page.
var nonNavigable = []string{"javascript:", "mailto:", "tel:", "data:"}

// ResolveURL resolves ref against base and normalizes the result. References
// with a scheme are taken as absolute. Returns "" when ref cannot lead to a
// page.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	lower := strings.ToLower(ref)
	for _, scheme := range nonNavigable {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.IsAbs() {
		return NormalizeURL(ref)
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return ""
	}
	return NormalizeURL(baseURL.ResolveReference(refURL).String())
}
