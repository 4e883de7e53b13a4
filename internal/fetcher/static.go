package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/authcrawl/internal/cleaner"
	"github.com/jmylchreest/authcrawl/internal/logger"
)

// StaticConfig holds configuration for the static session.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
	Cleaner   cleaner.Cleaner

	// OnContextCreated runs once, right after the collector is created.
	OnContextCreated ContextHook
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// Static is a colly session. One collector (and its cookie jar) serves the
// whole run; pages are not rendered, so only server-side links are seen.
type Static struct {
	config      StaticConfig
	collector   *colly.Collector
	bypassCache bool
	last        *staticResponse
	started     bool
}

type staticResponse struct {
	url    string
	status int
	body   []byte
	err    error
}

// NewStatic creates a static session.
func NewStatic(cfg StaticConfig) *Static {
	defaults := DefaultStaticConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Cleaner == nil {
		cfg.Cleaner = cleaner.NewMarkdown()
	}
	return &Static{config: cfg}
}

// Start creates the collector and runs the context hook.
func (s *Static) Start(ctx context.Context) error {
	if s.started {
		return nil
	}

	c := colly.NewCollector(
		colly.UserAgent(s.config.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.config.Timeout)
	// Error statuses are still pages worth recording.
	c.ParseHTTPErrorResponse = true

	c.OnRequest(func(r *colly.Request) {
		if s.bypassCache {
			r.Headers.Set("Cache-Control", "no-cache")
			r.Headers.Set("Pragma", "no-cache")
		}
	})
	c.OnResponse(func(r *colly.Response) {
		s.last.status = r.StatusCode
		s.last.url = r.Request.URL.String()
		s.last.body = r.Body
		logger.Debug("static response received", "url", s.last.url, "status", r.StatusCode, "body_size", len(r.Body))
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			s.last.status = r.StatusCode
		}
		s.last.err = err
	})

	s.collector = c
	s.started = true
	logger.Debug("static session started", "user_agent", s.config.UserAgent, "timeout", s.config.Timeout)

	if s.config.OnContextCreated != nil {
		s.config.OnContextCreated(ctx, &staticTab{session: s})
	}
	return nil
}

// request performs one blocking request. form selects POST.
func (s *Static) request(ctx context.Context, target string, form map[string]string, timeout time.Duration) (*staticResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.collector.SetRequestTimeout(timeout)
	s.last = &staticResponse{}

	var err error
	if form != nil {
		err = s.collector.Post(target, form)
	} else {
		err = s.collector.Visit(target)
	}
	if err == nil {
		err = s.last.err
	}
	if err != nil {
		return nil, err
	}
	return s.last, nil
}

// Fetch retrieves targetURL with a plain HTTP GET.
func (s *Static) Fetch(ctx context.Context, targetURL string, opts Options) (*Page, error) {
	if !s.started {
		return nil, fetchError(ctx, targetURL, ErrSessionNotStarted)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = s.config.Timeout
	}
	s.bypassCache = opts.BypassCache

	start := time.Now()
	resp, err := s.request(ctx, targetURL, nil, timeout)
	if err != nil {
		return nil, fetchError(ctx, targetURL, err)
	}

	page := &Page{
		URL:          targetURL,
		FinalURL:     resp.url,
		Status:       resp.status,
		HTML:         string(resp.body),
		ResponseTime: time.Since(start),
		ResponseSize: len(resp.body),
		FetchedAt:    start,
	}
	if err := ParseHTML(page, s.config.Cleaner); err != nil {
		logger.Debug("static page parse failed", "url", targetURL, "error", err)
	}
	return page, nil
}

// Close releases the collector.
func (s *Static) Close() error {
	s.collector = nil
	s.started = false
	return nil
}

// Type returns the session type.
func (s *Static) Type() string {
	return "static"
}

// staticTab implements Tab by reading and submitting HTML forms.
type staticTab struct {
	session *Static
	doc     *goquery.Document
	pageURL string
	fills   map[string]string // selector -> value
}

func (t *staticTab) load(requested string, resp *staticResponse) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.body))
	if err != nil {
		return err
	}
	t.doc = doc
	t.pageURL = requested
	if resp.url != "" {
		t.pageURL = resp.url
	}
	t.fills = make(map[string]string)
	return nil
}

func (t *staticTab) Navigate(ctx context.Context, target string, timeout time.Duration) error {
	resp, err := t.session.request(ctx, target, nil, timeout)
	if err != nil {
		return err
	}
	return t.load(target, resp)
}

// WaitFor checks the current document; there is nothing to wait for without
// a script engine.
func (t *staticTab) WaitFor(_ context.Context, selector string, _ time.Duration) (bool, error) {
	if t.doc == nil {
		return false, nil
	}
	return t.doc.Find(selector).Length() > 0, nil
}

func (t *staticTab) Fill(_ context.Context, selector, value string) error {
	if t.doc == nil || t.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	t.fills[selector] = value
	return nil
}

// Click submits the form enclosing selector with the filled values.
func (t *staticTab) Click(ctx context.Context, selector string) error {
	if t.doc == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	el := t.doc.Find(selector).First()
	if el.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	form := el.Closest("form")
	if form.Length() == 0 {
		return fmt.Errorf("element %s is not inside a form", selector)
	}

	values := formValues(form)
	for sel, v := range t.fills {
		if name, ok := t.doc.Find(sel).First().Attr("name"); ok && name != "" {
			values[name] = v
		}
	}
	if name, ok := el.Attr("name"); ok && name != "" {
		values[name] = el.AttrOr("value", "")
	}

	action, err := resolveAction(t.pageURL, form.AttrOr("action", ""))
	if err != nil {
		return err
	}

	timeout := t.session.config.Timeout
	var resp *staticResponse
	if strings.EqualFold(form.AttrOr("method", http.MethodGet), http.MethodPost) {
		resp, err = t.session.request(ctx, action.String(), values, timeout)
	} else {
		q := action.Query()
		for k, v := range values {
			q.Set(k, v)
		}
		action.RawQuery = q.Encode()
		resp, err = t.session.request(ctx, action.String(), nil, timeout)
	}
	if err != nil {
		return err
	}
	return t.load(action.String(), resp)
}

func (t *staticTab) SetViewport(context.Context, int, int) error {
	return ErrUnsupported
}

// formValues collects the values a browser would submit for form, before
// user input and without the submitter.
func formValues(form *goquery.Selection) map[string]string {
	values := make(map[string]string)
	form.Find("input[name], select[name], textarea[name]").Each(func(_ int, s *goquery.Selection) {
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}
		name := s.AttrOr("name", "")
		switch goquery.NodeName(s) {
		case "textarea":
			values[name] = s.Text()
		case "select":
			opt := s.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = s.Find("option").First()
			}
			values[name] = opt.AttrOr("value", strings.TrimSpace(opt.Text()))
		default:
			switch strings.ToLower(s.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := s.Attr("checked"); !checked {
					return
				}
				values[name] = s.AttrOr("value", "on")
			default:
				values[name] = s.AttrOr("value", "")
			}
		}
	})
	return values
}

func resolveAction(pageURL, action string) (*url.URL, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}
	ref, err := url.Parse(strings.TrimSpace(action))
	if err != nil {
		return nil, fmt.Errorf("invalid form action %q: %w", action, err)
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved, nil
}
