package crawler

import (
	"testing"

	"github.com/jmylchreest/authcrawl/internal/fetcher"
)

// --- NormalizeURL Tests ---

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://host/a/b", "http://host/a/b"},
		{"http://host/a/b#section", "http://host/a/b"},
		{"  http://host/a?x=1&y=2#f  ", "http://host/a?x=1&y=2"},
		{"http://host/a/", "http://host/a/"},
		{"HTTP://host/Path", "http://host/Path"},
		{"http://host/a b", "http://host/a%20b"},
		{"", ""},
		{"   ", ""},
		{"/relative/path", ""},
		{"relative", ""},
		{"://invalid", ""},
		{"http://[::1", ""},
		{"mailto:user@example.com", ""},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	inputs := []string{
		"http://host/a/b#c",
		"https://host:8443/wp-admin/post.php?post=1&action=edit#content",
		"http://host/a%2Fb?q=%20x",
		"http://host/a b/ü?q=é",
		"http://user:pw@host/x?",
		"http://host",
		"HTTP://HOST/",
		"http://host/../a/./b",
		"javascript:void(0)",
		"not a url",
		"",
		"%zz",
	}
	for _, in := range inputs {
		once := NormalizeURL(in)
		if twice := NormalizeURL(once); twice != once {
			t.Errorf("NormalizeURL not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

// --- ResolveURL Tests ---

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name, base, ref, want string
	}{
		{"parent", "http://host/a/b", "../c", "http://host/c"},
		{"parent from directory", "http://host/a/b/", "../c", "http://host/a/c"},
		{"sibling", "http://host/a/b", "c", "http://host/a/c"},
		{"root relative", "http://host/a/b", "/x/y", "http://host/x/y"},
		{"query only", "http://host/a/b?p=1", "?p=2", "http://host/a/b?p=2"},
		{"fragment stripped", "http://host/a/b", "c#top", "http://host/a/c"},
		{"absolute kept", "http://host/a/b", "https://other/z#f", "https://other/z"},
		{"http-like relative name", "http://host/wp-admin/index.php", "https-settings.php", "http://host/wp-admin/https-settings.php"},
		{"http underscore name", "http://host/wp-admin/", "http_api.php?x=1", "http://host/wp-admin/http_api.php?x=1"},
		{"scheme relative", "https://host/a", "//cdn.host/lib.js", "https://cdn.host/lib.js"},
		{"javascript", "http://host/a", "javascript:void(0)", ""},
		{"mailto", "http://host/a", "MAILTO:x@y", ""},
		{"tel", "http://host/a", "tel:+123", ""},
		{"data", "http://host/a", "data:text/plain,hi", ""},
		{"empty", "http://host/a", "  ", ""},
		{"bad base", "://", "c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(tt.base, tt.ref); got != tt.want {
				t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
			}
		})
	}
}

// --- Scope Tests ---

func TestScope_Contains(t *testing.T) {
	s := Scope("http://host/wordpress")
	tests := []struct {
		u    string
		want bool
	}{
		{"http://host/wordpress", true},
		{"http://host/wordpress/wp-admin/", true},
		// Plain prefix matching admits sibling paths sharing the prefix.
		{"http://host/wordpress-old/", true},
		{"http://host/other/", false},
		{"https://host/wordpress/", false},
		{"http://HOST/wordpress/", false},
		{"http://evil/?u=http://host/wordpress", false},
	}
	for _, tt := range tests {
		if got := s.Contains(tt.u); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.u, got, tt.want)
		}
	}
}

// --- ExtractLinks Tests ---

func TestExtractLinks(t *testing.T) {
	links := fetcher.LinkSet{
		fetcher.CategoryInternal: {
			{Href: "/wp-admin/edit.php"},
			{Href: "edit.php#top"},
			{Text: "no reference"},
			{Href: "javascript:void(0)"},
		},
		fetcher.CategoryExternal: {
			{Href: "https://wordpress.org/"},
		},
		fetcher.CategoryFrames: {
			{Src: "/wp-admin/frame.php"},
			{Href: "/wp-admin/edit.php"},
		},
	}

	got := ExtractLinks(links, "http://host/wp-admin/index.php")
	// Categories in sorted order: external, frames, internal.
	want := []string{
		"https://wordpress.org/",
		"http://host/wp-admin/frame.php",
		"http://host/wp-admin/edit.php",
	}
	if !equalStrings(got, want) {
		t.Errorf("ExtractLinks() = %v, want %v", got, want)
	}
}

func TestExtractLinks_ParentReference(t *testing.T) {
	got := ExtractLinks(fetcher.FlatLinks("../c"), "http://host/a/b")
	if !equalStrings(got, []string{"http://host/c"}) {
		t.Errorf("ExtractLinks() = %v", got)
	}
}

func TestExtractLinks_Empty(t *testing.T) {
	if got := ExtractLinks(nil, "http://host/"); got != nil {
		t.Errorf("ExtractLinks(nil) = %v", got)
	}
	if got := ExtractLinks(fetcher.LinkSet{"links": nil}, "http://host/"); got != nil {
		t.Errorf("ExtractLinks(empty category) = %v", got)
	}
}

// --- Frontier Tests ---

func TestFrontier(t *testing.T) {
	f := NewFrontier()

	if !f.Push("http://host/a#x", 0) {
		t.Fatal("Push() should accept a new URL")
	}
	if f.Push("http://host/a", 1) {
		t.Error("Push() should reject a URL already queued")
	}
	if f.Push("/relative", 0) {
		t.Error("Push() should reject an invalid URL")
	}
	f.Push("http://host/b", 1)

	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}

	e, ok := f.Pop()
	if !ok || e.URL != "http://host/a" || e.Depth != 0 {
		t.Fatalf("Pop() = %+v, %v", e, ok)
	}
	f.Visit(e.URL)

	if f.Push("http://host/a", 2) {
		t.Error("Push() should reject a visited URL")
	}
	if !f.Visited("http://host/a") || f.Visited("http://host/b") {
		t.Error("unexpected visited state")
	}

	e, _ = f.Pop()
	if e.URL != "http://host/b" || e.Depth != 1 {
		t.Errorf("Pop() = %+v", e)
	}
	if _, ok := f.Pop(); ok {
		t.Error("Pop() on empty frontier should return false")
	}
	if f.VisitedCount() != 1 {
		t.Errorf("VisitedCount() = %d", f.VisitedCount())
	}
}
