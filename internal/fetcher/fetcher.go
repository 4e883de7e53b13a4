// Package fetcher drives a single automation session and turns page loads
// into Page results.
//
// Two sessions implement the Session interface: Browser (chromedp, the
// default) and Static (colly). Both run a ContextHook once, when their
// browsing context is created and before any crawl fetch, and both report
// fetch-level failures as *FetchError rather than panicking or retrying.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Session is one automation session reused for every fetch of a run.
type Session interface {
	// Start creates the browsing context and runs the context hook.
	// A Start error is a setup failure: the run cannot proceed.
	Start(ctx context.Context) error

	// Fetch retrieves a single page. A non-nil error is always a *FetchError.
	Fetch(ctx context.Context, url string, opts Options) (*Page, error)

	// Close releases the session. Safe to call more than once.
	Close() error

	// Type returns "browser" or "static".
	Type() string
}

// Tab is the narrow automation surface handed to a ContextHook.
type Tab interface {
	// Navigate loads url, giving up after timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitFor waits up to timeout for selector to be present. An element that
	// never shows up is reported as (false, nil), not as an error.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error)

	// Fill sets the value of the input matched by selector.
	Fill(ctx context.Context, selector, value string) error

	// Click activates the element matched by selector (submitting its form).
	Click(ctx context.Context, selector string) error

	// SetViewport resizes the page viewport. Sessions without a viewport
	// return ErrUnsupported.
	SetViewport(ctx context.Context, width, height int) error
}

// ContextHook runs once per new browsing context, before the context serves
// any fetch. It has nothing to return: whatever it manages to do (typically
// logging in) is visible to later fetches through the shared context state.
type ContextHook func(ctx context.Context, tab Tab)

// Options controls a single fetch.
type Options struct {
	Timeout         time.Duration
	WaitForSelector string // Ready condition; defaults to "body"
	BypassCache     bool
}

// DefaultOptions returns the fetch options used by the crawler.
func DefaultOptions() Options {
	return Options{
		Timeout:         30 * time.Second,
		WaitForSelector: "body",
		BypassCache:     true,
	}
}

// Link is one discovered reference on a page.
type Link struct {
	Href string `json:"href,omitempty"`
	Src  string `json:"src,omitempty"`
	Text string `json:"text,omitempty"`
}

// LinkFromString treats a bare string as an href.
func LinkFromString(s string) Link {
	return Link{Href: s}
}

// Link categories produced by ParseHTML.
const (
	CategoryInternal = "internal"
	CategoryExternal = "external"
	CategoryFrames   = "frames"
	CategoryFlat     = "links"
)

// LinkSet groups discovered links by category. A nil LinkSet means the page
// exposed no links at all.
type LinkSet map[string][]Link

// FlatLinks wraps an uncategorized list of hrefs into a LinkSet.
func FlatLinks(hrefs ...string) LinkSet {
	if len(hrefs) == 0 {
		return nil
	}
	links := make([]Link, 0, len(hrefs))
	for _, h := range hrefs {
		links = append(links, LinkFromString(h))
	}
	return LinkSet{CategoryFlat: links}
}

// Len returns the total number of links across categories.
func (s LinkSet) Len() int {
	n := 0
	for _, links := range s {
		n += len(links)
	}
	return n
}

// Page is a successfully fetched page.
type Page struct {
	URL          string // URL that was requested
	FinalURL     string // URL after redirects; empty when unknown
	Status       int    // HTTP status; 0 when the session could not observe it
	Title        string
	HTML         string
	Content      string // Cleaned content (markdown or text); may be empty
	Links        LinkSet
	Meta         map[string]string
	HasForm      bool
	ResponseTime time.Duration
	ResponseSize int
	FetchedAt    time.Time
}

// BaseURL returns the URL relative links on the page resolve against.
func (p *Page) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	KindNavigation ErrorKind = "navigation"
	KindTimeout    ErrorKind = "timeout"
	KindNetwork    ErrorKind = "network"
	KindSession    ErrorKind = "session"
)

// FetchError is the failure arm of a fetch.
type FetchError struct {
	URL  string
	Kind ErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Sentinel errors. Check with errors.Is.
var (
	// ErrSessionNotStarted is returned when Fetch is called before Start.
	ErrSessionNotStarted = errors.New("session not started")
	// ErrUnsupported is returned by Tab operations a session cannot perform.
	ErrUnsupported = errors.New("operation not supported by this session")
	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("element not found")
)

// classify maps an underlying error to an ErrorKind.
func classify(ctx context.Context, err error) ErrorKind {
	switch {
	case errors.Is(err, ErrSessionNotStarted):
		return KindSession
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() == context.DeadlineExceeded, isTimeout(err):
		return KindTimeout
	case isNetworkError(err):
		return KindNetwork
	default:
		return KindNavigation
	}
}

// fetchError builds a *FetchError for url.
func fetchError(ctx context.Context, url string, err error) *FetchError {
	return &FetchError{URL: url, Kind: classify(ctx, err), Err: err}
}

// isNetworkError reports transport failures from net/http (colly) and
// Chrome's net::ERR_* page load errors (chromedp).
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "net::ERR_")
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
