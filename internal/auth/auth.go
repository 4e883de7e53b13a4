// Package auth logs a fetch session into the target application.
//
// The Authenticator is advisory: every step degrades to NotConfirmed
// instead of failing, and the crawl proceeds either way.
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmylchreest/authcrawl/internal/fetcher"
	"github.com/jmylchreest/authcrawl/internal/logger"
)

// Config holds the login endpoint, credentials and selectors.
type Config struct {
	LoginURL string
	Username string
	Password string

	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	MarkerSelector   string // Present only once logged in

	NavigateTimeout time.Duration
	FieldTimeout    time.Duration
	MarkerTimeout   time.Duration

	ViewportWidth  int
	ViewportHeight int
}

// DefaultConfig returns the WordPress login defaults.
func DefaultConfig() Config {
	return Config{
		UsernameSelector: "#user_login",
		PasswordSelector: "#user_pass",
		SubmitSelector:   "#wp-submit",
		MarkerSelector:   "#wpadminbar",
		NavigateTimeout:  30 * time.Second,
		FieldTimeout:     5 * time.Second,
		MarkerTimeout:    10 * time.Second,
		ViewportWidth:    1200,
		ViewportHeight:   900,
	}
}

// Outcome is the result of one login attempt.
type Outcome int

const (
	// NotConfirmed means some step failed or the marker never appeared.
	NotConfirmed Outcome = iota
	// LoggedIn means the marker appeared after submitting credentials.
	LoggedIn
	// AlreadyAuthenticated means the login form was not shown.
	AlreadyAuthenticated
)

func (o Outcome) String() string {
	switch o {
	case LoggedIn:
		return "logged_in"
	case AlreadyAuthenticated:
		return "already_authenticated"
	default:
		return "not_confirmed"
	}
}

// Authenticator performs the login protocol against a fetcher.Tab.
type Authenticator struct {
	config Config
	last   Outcome
	runs   int
}

// New creates an Authenticator. Zero-valued selectors, timeouts and viewport
// fall back to DefaultConfig.
func New(cfg Config) *Authenticator {
	d := DefaultConfig()
	if cfg.UsernameSelector == "" {
		cfg.UsernameSelector = d.UsernameSelector
	}
	if cfg.PasswordSelector == "" {
		cfg.PasswordSelector = d.PasswordSelector
	}
	if cfg.SubmitSelector == "" {
		cfg.SubmitSelector = d.SubmitSelector
	}
	if cfg.MarkerSelector == "" {
		cfg.MarkerSelector = d.MarkerSelector
	}
	if cfg.NavigateTimeout == 0 {
		cfg.NavigateTimeout = d.NavigateTimeout
	}
	if cfg.FieldTimeout == 0 {
		cfg.FieldTimeout = d.FieldTimeout
	}
	if cfg.MarkerTimeout == 0 {
		cfg.MarkerTimeout = d.MarkerTimeout
	}
	if cfg.ViewportWidth == 0 || cfg.ViewportHeight == 0 {
		cfg.ViewportWidth, cfg.ViewportHeight = d.ViewportWidth, d.ViewportHeight
	}
	return &Authenticator{config: cfg}
}

// Hook adapts Login to fetcher.ContextHook.
func (a *Authenticator) Hook() fetcher.ContextHook {
	return func(ctx context.Context, tab fetcher.Tab) {
		a.last = a.Login(ctx, tab)
		a.runs++
	}
}

// Last returns the outcome of the most recent hook run and how many times
// the hook has run.
func (a *Authenticator) Last() (Outcome, int) {
	return a.last, a.runs
}

// Login runs the login protocol on tab. It never fails; problems are logged
// and reported as NotConfirmed.
func (a *Authenticator) Login(ctx context.Context, tab fetcher.Tab) Outcome {
	cfg := a.config
	log := logger.With("login_url", cfg.LoginURL)

	outcome := a.submit(ctx, tab, log)
	switch outcome {
	case LoggedIn:
		log.Info("login confirmed", "user", cfg.Username)
	case AlreadyAuthenticated:
		log.Info("login form not shown, assuming already authenticated")
	}

	if err := tab.SetViewport(ctx, cfg.ViewportWidth, cfg.ViewportHeight); err != nil {
		log.Debug("viewport not set", "error", err)
	}
	return outcome
}

func (a *Authenticator) submit(ctx context.Context, tab fetcher.Tab, log *slog.Logger) Outcome {
	cfg := a.config

	if err := tab.Navigate(ctx, cfg.LoginURL, cfg.NavigateTimeout); err != nil {
		log.Warn("login page navigation failed", "error", err)
		return NotConfirmed
	}

	found, err := tab.WaitFor(ctx, cfg.UsernameSelector, cfg.FieldTimeout)
	if err != nil {
		log.Warn("waiting for login form failed", "selector", cfg.UsernameSelector, "error", err)
		return NotConfirmed
	}
	if !found {
		return AlreadyAuthenticated
	}

	if err := tab.Fill(ctx, cfg.UsernameSelector, cfg.Username); err != nil {
		log.Warn("could not fill username", "selector", cfg.UsernameSelector, "error", err)
		return NotConfirmed
	}
	if err := tab.Fill(ctx, cfg.PasswordSelector, cfg.Password); err != nil {
		log.Warn("could not fill password", "selector", cfg.PasswordSelector, "error", err)
		return NotConfirmed
	}
	if err := tab.Click(ctx, cfg.SubmitSelector); err != nil {
		log.Warn("could not submit login form", "selector", cfg.SubmitSelector, "error", err)
		return NotConfirmed
	}
	log.Debug("login form submitted", "user", cfg.Username)

	found, err = tab.WaitFor(ctx, cfg.MarkerSelector, cfg.MarkerTimeout)
	if err != nil || !found {
		log.Warn("login not confirmed, continuing unauthenticated",
			"marker", cfg.MarkerSelector, "timeout", cfg.MarkerTimeout, "error", err)
		return NotConfirmed
	}
	return LoggedIn
}
