// Package crawler runs a breadth-first crawl over one authenticated session.
//
// A single worker pops (URL, depth) entries from the frontier, fetches them
// one at a time and writes one record per fetched page. The frontier and the
// visited set are never shared, so nothing here is synchronized.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/authcrawl/internal/fetcher"
	"github.com/jmylchreest/authcrawl/internal/logger"
	"github.com/jmylchreest/authcrawl/internal/output"
)

// Fetcher retrieves one page. fetcher.Session implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts fetcher.Options) (*fetcher.Page, error)
}

// Sink receives one record per fetched page. output.FileSink implements it.
type Sink interface {
	Write(rec output.Record) error
}

// Config holds crawler configuration.
type Config struct {
	StartURL string
	Scope    Scope

	MaxPages int           // Records to write before stopping (0 = unlimited)
	MaxDepth int           // Deepest link level fetched (0 = start URL only)
	Delay    time.Duration // Wait before every fetch

	ExcerptLength int
	FetchOptions  fetcher.Options
}

// DefaultConfig returns sensible crawler defaults.
func DefaultConfig() Config {
	return Config{
		MaxPages:      200,
		MaxDepth:      5,
		Delay:         300 * time.Millisecond,
		ExcerptLength: output.DefaultExcerptLength,
		FetchOptions:  fetcher.DefaultOptions(),
	}
}

// State is the crawler lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Draining     // Frontier exhausted
	LimitReached // Page limit hit
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case LimitReached:
		return "limit_reached"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DiscardReason says why a popped entry was not fetched.
type DiscardReason string

const (
	DiscardVisited DiscardReason = "visited"
	DiscardDepth   DiscardReason = "depth"
	DiscardScope   DiscardReason = "scope"
)

// StopReason says why a run ended.
type StopReason string

const (
	StopFrontierEmpty StopReason = "frontier_empty"
	StopPageLimit     StopReason = "page_limit"
	StopCancelled     StopReason = "cancelled"
)

// Stats summarizes a run.
type Stats struct {
	Written       int
	FetchFailures int
	WriteFailures int
	Discarded     map[DiscardReason]int
	Visited       int
	Bytes         int64 // Sum of response sizes of written pages
	Elapsed       time.Duration
	StopReason    StopReason
	State         State
}

// ErrAlreadyRun is returned by Run on a crawler that has already run.
var ErrAlreadyRun = errors.New("crawler already run")

// Crawler drives one BFS crawl.
type Crawler struct {
	fetcher Fetcher
	sink    Sink
	config  Config
	state   State
}

// New creates a new Crawler.
func New(f Fetcher, sink Sink, cfg Config) *Crawler {
	if cfg.MaxPages < 0 {
		cfg.MaxPages = 0
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.ExcerptLength <= 0 {
		cfg.ExcerptLength = output.DefaultExcerptLength
	}
	return &Crawler{
		fetcher: f,
		sink:    sink,
		config:  cfg,
	}
}

// State returns the current lifecycle state.
func (c *Crawler) State() State {
	return c.state
}

func (c *Crawler) setState(s State) {
	logger.Debug("crawler state", "from", c.state, "to", s)
	c.state = s
}

// Run crawls from the start URL until the frontier is empty, the page limit
// is reached or ctx is cancelled. Per-page failures are counted in Stats and
// never end the run; the only errors are an invalid start URL and ctx's.
func (c *Crawler) Run(ctx context.Context) (stats Stats, err error) {
	if c.state != Idle {
		return Stats{}, ErrAlreadyRun
	}

	start := time.Now()
	stats = Stats{Discarded: make(map[DiscardReason]int)}
	frontier := NewFrontier()

	c.setState(Running)
	defer func() {
		stats.Visited = frontier.VisitedCount()
		stats.Elapsed = time.Since(start)
		c.setState(Stopped)
		stats.State = c.state
	}()

	if !frontier.Push(c.config.StartURL, 0) {
		return stats, fmt.Errorf("invalid start URL %q", c.config.StartURL)
	}

	logger.Debug("crawler starting",
		"start_url", c.config.StartURL,
		"scope", c.config.Scope,
		"max_pages", c.config.MaxPages,
		"max_depth", c.config.MaxDepth,
		"delay", c.config.Delay)

	for {
		if err := ctx.Err(); err != nil {
			stats.StopReason = StopCancelled
			return stats, err
		}

		if c.config.MaxPages > 0 && stats.Written >= c.config.MaxPages {
			logger.Debug("crawler reached max pages limit", "max_pages", c.config.MaxPages)
			c.setState(LimitReached)
			stats.StopReason = StopPageLimit
			return stats, nil
		}

		entry, ok := frontier.Pop()
		if !ok {
			c.setState(Draining)
			stats.StopReason = StopFrontierEmpty
			return stats, nil
		}

		if reason, skip := c.discard(frontier, entry); skip {
			logger.Debug("crawler discarding entry", "url", entry.URL, "depth", entry.Depth, "reason", reason)
			stats.Discarded[reason]++
			continue
		}

		if err := sleep(ctx, c.config.Delay); err != nil {
			stats.StopReason = StopCancelled
			return stats, err
		}

		c.process(ctx, frontier, entry, &stats)
	}
}

// discard applies the pop-time checks. Scope and depth are also enforced at
// enqueue, so only the start URL can normally fail them here.
func (c *Crawler) discard(f *Frontier, e Entry) (DiscardReason, bool) {
	switch {
	case f.Visited(e.URL):
		return DiscardVisited, true
	case e.Depth > c.config.MaxDepth:
		return DiscardDepth, true
	case !c.config.Scope.Contains(e.URL):
		return DiscardScope, true
	}
	return "", false
}

func (c *Crawler) process(ctx context.Context, f *Frontier, e Entry, stats *Stats) {
	logger.Debug("crawler processing URL", "url", e.URL, "depth", e.Depth)

	page, err := c.fetcher.Fetch(ctx, e.URL, c.config.FetchOptions)
	f.Visit(e.URL)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		stats.FetchFailures++
		logger.Info("fetch failed", "url", e.URL, "depth", e.Depth, "error", err)
		return
	}

	added := 0
	if e.Depth < c.config.MaxDepth {
		for _, link := range ExtractLinks(page.Links, page.BaseURL()) {
			if !c.config.Scope.Contains(link) {
				continue
			}
			if f.Push(link, e.Depth+1) {
				added++
			}
		}
	}

	rec := output.NewRecord(page, e.Depth, c.config.ExcerptLength)
	if err := c.sink.Write(rec); err != nil {
		stats.WriteFailures++
		logger.Warn("write failed", "url", e.URL, "error", err)
		return
	}
	stats.Written++
	stats.Bytes += int64(page.ResponseSize)

	logger.Info("fetched",
		"url", e.URL,
		"status", page.Status,
		"depth", e.Depth,
		"links", added,
		"queued", f.Len(),
		"duration", page.ResponseTime.Round(time.Millisecond))
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
