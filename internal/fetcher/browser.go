package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/authcrawl/internal/cleaner"
	"github.com/jmylchreest/authcrawl/internal/logger"
)

// BrowserConfig holds configuration for the chromedp session.
type BrowserConfig struct {
	Headless     bool
	UserAgent    string
	ChromePath   string // Auto-detected when empty
	Timeout      time.Duration
	WindowWidth  int
	WindowHeight int
	Cleaner      cleaner.Cleaner

	// OnContextCreated runs once, right after the tab is created.
	OnContextCreated ContextHook
}

// DefaultBrowserConfig returns sensible defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:     true,
		Timeout:      30 * time.Second,
		WindowWidth:  1200,
		WindowHeight: 900,
	}
}

// Browser is a chromedp session: one Chrome process and one tab reused for
// every fetch, so cookies set during login carry over to the crawl.
type Browser struct {
	config BrowserConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	tracker   *responseTracker
	started   bool
	closeOnce sync.Once
}

// NewBrowser creates a browser session. Chrome is not launched until Start.
func NewBrowser(cfg BrowserConfig) *Browser {
	defaults := DefaultBrowserConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.WindowWidth == 0 || cfg.WindowHeight == 0 {
		cfg.WindowWidth, cfg.WindowHeight = defaults.WindowWidth, defaults.WindowHeight
	}
	if cfg.Cleaner == nil {
		cfg.Cleaner = cleaner.NewMarkdown()
	}
	return &Browser{
		config:  cfg,
		tracker: &responseTracker{},
	}
}

// allocatorOptions builds the Chrome flags for cfg.
func allocatorOptions(cfg BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)

	chromePath := cfg.ChromePath
	if chromePath == "" {
		chromePath = FindChromePath()
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

// Start launches Chrome, opens the tab and runs the context hook.
func (b *Browser) Start(ctx context.Context) error {
	if b.started {
		return nil
	}

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(b.config)...)
	b.tabCtx, b.tabCancel = chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	// The first Run allocates the browser. It must use the tab context itself,
	// not a derived timeout context, or Chrome dies with the timeout.
	if err := chromedp.Run(b.tabCtx); err != nil {
		_ = b.Close()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	// A page target's main frame shares the target's ID.
	if c := chromedp.FromContext(b.tabCtx); c != nil && c.Target != nil {
		b.tracker.setFrame(cdp.FrameID(c.Target.TargetID))
	}
	chromedp.ListenTarget(b.tabCtx, b.tracker.handle)
	if err := chromedp.Run(b.tabCtx, network.Enable()); err != nil {
		_ = b.Close()
		return fmt.Errorf("failed to enable network events: %w", err)
	}

	b.started = true
	logger.Debug("browser session started",
		"headless", b.config.Headless,
		"timeout", b.config.Timeout,
		"window", fmt.Sprintf("%dx%d", b.config.WindowWidth, b.config.WindowHeight))

	if b.config.OnContextCreated != nil {
		b.config.OnContextCreated(b.tabCtx, &browserTab{ctx: b.tabCtx, stepTimeout: b.config.Timeout})
	}
	return nil
}

// Fetch navigates the shared tab to targetURL and captures the rendered page.
func (b *Browser) Fetch(ctx context.Context, targetURL string, opts Options) (*Page, error) {
	if !b.started {
		return nil, fetchError(ctx, targetURL, ErrSessionNotStarted)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = b.config.Timeout
	}
	waitSelector := opts.WaitForSelector
	if waitSelector == "" {
		waitSelector = "body"
	}

	runCtx, cancel := context.WithTimeout(b.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html, title, location string
	actions := []chromedp.Action{
		network.SetCacheDisabled(opts.BypassCache),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}

	b.tracker.reset()
	start := time.Now()
	logger.Debug("chromedp executing actions", "url", targetURL, "timeout", timeout, "wait_for", waitSelector)
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, fetchError(runCtx, targetURL, err)
	}
	elapsed := time.Since(start)

	resp := b.tracker.snapshot()
	page := &Page{
		URL:          targetURL,
		FinalURL:     location,
		Status:       resp.status,
		Title:        title,
		HTML:         html,
		ResponseTime: elapsed,
		ResponseSize: resp.size,
		FetchedAt:    start,
	}
	if page.ResponseSize == 0 {
		page.ResponseSize = len(html)
	}

	if err := ParseHTML(page, b.config.Cleaner); err != nil {
		logger.Debug("browser page parse failed", "url", targetURL, "error", err)
	}
	return page, nil
}

// Close closes the tab and shuts Chrome down.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		if b.tabCancel != nil {
			b.tabCancel()
		}
		if b.allocCancel != nil {
			b.allocCancel()
		}
		b.started = false
		logger.Debug("browser session closed")
	})
	return nil
}

// Type returns the session type.
func (b *Browser) Type() string {
	return "browser"
}

// browserTab implements Tab on the shared chromedp tab.
type browserTab struct {
	ctx         context.Context
	stepTimeout time.Duration
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (t *browserTab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (t *browserTab) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return t.run(ctx, timeout, chromedp.Navigate(url))
}

func (t *browserTab) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	err := t.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, context.DeadlineExceeded):
		return false, nil
	default:
		return false, err
	}
}

func (t *browserTab) Fill(ctx context.Context, selector, value string) error {
	return t.run(ctx, t.stepTimeout, chromedp.SetValue(selector, value, chromedp.ByQuery))
}

func (t *browserTab) Click(ctx context.Context, selector string) error {
	return t.run(ctx, t.stepTimeout, chromedp.Click(selector, chromedp.ByQuery))
}

func (t *browserTab) SetViewport(ctx context.Context, width, height int) error {
	return t.run(ctx, t.stepTimeout, chromedp.EmulateViewport(int64(width), int64(height)))
}

// responseTracker records the main document response of the current
// navigation. chromedp delivers events on its own goroutine.
type responseTracker struct {
	mu        sync.Mutex
	frameID   cdp.FrameID // main frame; empty accepts any frame
	requestID network.RequestID
	status    int
	size      int
}

type documentResponse struct {
	status int
	size   int
}

func (t *responseTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestID = ""
	t.status = 0
	t.size = 0
}

func (t *responseTracker) setFrame(id cdp.FrameID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frameID = id
}

func (t *responseTracker) snapshot() documentResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	return documentResponse{status: t.status, size: t.size}
}

// handle is the chromedp target listener. The first main-frame document
// response after reset belongs to the navigation; iframe documents, including
// late ones from the previous page, are ignored.
func (t *responseTracker) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.requestID != "" || (t.frameID != "" && e.FrameID != t.frameID) {
			return
		}
		t.requestID = e.RequestID
		t.status = int(e.Response.Status)
	case *network.EventLoadingFinished:
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.requestID != "" && e.RequestID == t.requestID {
			t.size = int(e.EncodedDataLength)
		}
	}
}
