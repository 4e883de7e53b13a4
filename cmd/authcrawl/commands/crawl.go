package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/authcrawl/internal/auth"
	"github.com/jmylchreest/authcrawl/internal/cleaner"
	"github.com/jmylchreest/authcrawl/internal/config"
	"github.com/jmylchreest/authcrawl/internal/crawler"
	"github.com/jmylchreest/authcrawl/internal/fetcher"
	"github.com/jmylchreest/authcrawl/internal/logger"
	"github.com/jmylchreest/authcrawl/internal/output"
	"github.com/jmylchreest/authcrawl/internal/version"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Log in and crawl every in-scope page",
	Long: `Log into the target once, then fetch every page under --scope
breadth-first from --start-url, up to --max-depth links away and at most
--max-pages pages. One record per fetched page is appended to --output.

Pages that fail to load are skipped, never retried. A failed login is
logged and the crawl proceeds with whatever session the site grants.

Examples:
  authcrawl crawl --login-url http://host/wordpress/wp-login.php \
      --start-url http://host/wordpress/wp-admin/ \
      --scope http://host/wordpress --username wpuser

  # Non-WordPress login form
  authcrawl crawl --config app.yaml \
      --username-selector 'input[name=email]' \
      --password-selector 'input[name=password]' \
      --submit-selector 'button[type=submit]' \
      --marker-selector '.account-menu'`,
	RunE: runCrawl,
}

// flagKeys maps crawl flags to config keys.
var flagKeys = []struct{ flag, key string }{
	{"login-url", "target.login_url"},
	{"start-url", "target.start_url"},
	{"scope", "target.scope"},
	{"username", "credentials.username"},
	{"password", "credentials.password"},
	{"username-selector", "credentials.username_selector"},
	{"password-selector", "credentials.password_selector"},
	{"submit-selector", "credentials.submit_selector"},
	{"marker-selector", "credentials.marker_selector"},
	{"max-pages", "limits.max_pages"},
	{"max-depth", "limits.max_depth"},
	{"delay", "limits.delay"},
	{"mode", "browser.mode"},
	{"headless", "browser.headless"},
	{"timeout", "browser.timeout"},
	{"user-agent", "browser.user_agent"},
	{"chrome-path", "browser.chrome_path"},
	{"output", "output.path"},
	{"format", "output.format"},
	{"content", "output.content"},
	{"excerpt-length", "output.excerpt_length"},
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	d := config.Default()
	flags := crawlCmd.Flags()

	// Target
	flags.String("login-url", "", "login page URL")
	flags.String("start-url", "", "first page to crawl")
	flags.String("scope", "", "URL prefix every crawled page must start with")

	// Credentials
	flags.String("username", "", "login username (empty disables login)")
	flags.String("password", "", "login password (prefer AUTHCRAWL_CREDENTIALS_PASSWORD)")
	flags.String("username-selector", d.Credentials.UsernameSelector, "CSS selector of the username input")
	flags.String("password-selector", d.Credentials.PasswordSelector, "CSS selector of the password input")
	flags.String("submit-selector", d.Credentials.SubmitSelector, "CSS selector of the login submit button")
	flags.String("marker-selector", d.Credentials.MarkerSelector, "CSS selector only present when logged in")

	// Limits
	flags.Int("max-pages", d.Limits.MaxPages, "max pages to write (0=unlimited)")
	flags.Int("max-depth", d.Limits.MaxDepth, "max link depth (0=start URL only)")
	flags.Duration("delay", d.Limits.Delay, "delay before each fetch")

	// Session
	flags.String("mode", d.Browser.Mode, "fetch session: browser (headless Chrome), static (plain HTTP)")
	flags.Bool("headless", d.Browser.Headless, "run Chrome headless (use --headless=false to watch)")
	flags.Duration("timeout", d.Browser.Timeout, "per-page fetch timeout")
	flags.String("user-agent", "", "user agent override")
	flags.String("chrome-path", "", "Chrome/Chromium binary (auto-detected when empty)")

	// Output
	flags.StringP("output", "o", d.Output.Path, "output file")
	flags.String("format", d.Output.Format, "record format: jsonl, yaml")
	flags.String("content", d.Output.Content, "excerpt source: markdown, text, article, html, raw")
	flags.Int("excerpt-length", d.Output.ExcerptLength, "excerpt length in characters")

	// Bind to viper
	for _, fk := range flagKeys {
		_ = viper.BindPFlag(fk.key, flags.Lookup(fk.flag))
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	initLogger()
	if configErr != nil {
		logger.Error("failed to read config file", "error", configErr)
		return configErr
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := crawl(ctx, cfg); err != nil {
		logger.Error("crawl failed", "error", err)
		return err
	}
	return nil
}

// crawl runs one crawl. Errors are setup failures; per-page problems and
// interruption end up in the returned stats.
func crawl(ctx context.Context, cfg config.Config) (crawler.Stats, error) {
	logger.Debug("crawl configuration",
		"target", cfg.Target.StartURL,
		"scope", cfg.Target.Scope,
		"credentials", cfg.Credentials,
		"mode", cfg.Browser.Mode)

	cl, err := cleaner.New(cleaner.Format(cfg.Output.Content))
	if err != nil {
		return crawler.Stats{}, err
	}

	sink, err := output.Create(cfg.Output.Path, output.Format(cfg.Output.Format))
	if err != nil {
		return crawler.Stats{}, err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("failed to close output file", "path", sink.Path(), "error", err)
		}
	}()

	var authn *auth.Authenticator
	var hook fetcher.ContextHook
	if cfg.LoginEnabled() {
		authn = auth.New(authConfig(cfg))
		hook = authn.Hook()
	} else {
		logger.Warn("no username configured, crawling without logging in")
	}

	session := newSession(cfg, cl, hook)
	logger.Info("starting session", "mode", session.Type(), "login_url", cfg.Target.LoginURL)
	if err := session.Start(ctx); err != nil {
		_ = session.Close()
		return crawler.Stats{}, fmt.Errorf("setup failed: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close session", "error", err)
		}
	}()

	logger.Info("starting crawl",
		"start_url", cfg.Target.StartURL,
		"scope", cfg.Target.Scope,
		"max_pages", cfg.Limits.MaxPages,
		"max_depth", cfg.Limits.MaxDepth,
		"output", sink.Path())

	stats, err := crawler.New(session, sink, crawlerConfig(cfg)).Run(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("crawl interrupted", "error", err)
	case err != nil:
		return stats, err
	}

	logSummary(stats, sink.Path(), authn)
	return stats, nil
}

func authConfig(cfg config.Config) auth.Config {
	return auth.Config{
		LoginURL:         cfg.Target.LoginURL,
		Username:         cfg.Credentials.Username,
		Password:         cfg.Credentials.Password,
		UsernameSelector: cfg.Credentials.UsernameSelector,
		PasswordSelector: cfg.Credentials.PasswordSelector,
		SubmitSelector:   cfg.Credentials.SubmitSelector,
		MarkerSelector:   cfg.Credentials.MarkerSelector,
		NavigateTimeout:  cfg.Browser.LoginTimeout,
		FieldTimeout:     cfg.Browser.FieldTimeout,
		MarkerTimeout:    cfg.Browser.MarkerTimeout,
		ViewportWidth:    cfg.Browser.ViewportWidth,
		ViewportHeight:   cfg.Browser.ViewportHeight,
	}
}

func crawlerConfig(cfg config.Config) crawler.Config {
	opts := fetcher.DefaultOptions()
	opts.Timeout = cfg.Browser.Timeout
	return crawler.Config{
		StartURL:      cfg.Target.StartURL,
		Scope:         crawler.Scope(cfg.Target.Scope),
		MaxPages:      cfg.Limits.MaxPages,
		MaxDepth:      cfg.Limits.MaxDepth,
		Delay:         cfg.Limits.Delay,
		ExcerptLength: cfg.Output.ExcerptLength,
		FetchOptions:  opts,
	}
}

// newSession builds the fetch session for cfg.Browser.Mode.
func newSession(cfg config.Config, cl cleaner.Cleaner, hook fetcher.ContextHook) fetcher.Session {
	if cfg.Browser.Mode == "static" {
		ua := cfg.Browser.UserAgent
		if ua == "" {
			ua = fetcher.DefaultStaticConfig().UserAgent + " " + version.UserAgentSuffix()
		}
		return fetcher.NewStatic(fetcher.StaticConfig{
			UserAgent:        ua,
			Timeout:          cfg.Browser.Timeout,
			Cleaner:          cl,
			OnContextCreated: hook,
		})
	}
	return fetcher.NewBrowser(fetcher.BrowserConfig{
		Headless:         cfg.Browser.Headless,
		UserAgent:        cfg.Browser.UserAgent,
		ChromePath:       cfg.Browser.ChromePath,
		Timeout:          cfg.Browser.Timeout,
		WindowWidth:      cfg.Browser.ViewportWidth,
		WindowHeight:     cfg.Browser.ViewportHeight,
		Cleaner:          cl,
		OnContextCreated: hook,
	})
}

func logSummary(stats crawler.Stats, path string, authn *auth.Authenticator) {
	login := "disabled"
	if authn != nil {
		outcome, _ := authn.Last()
		login = outcome.String()
	}
	discarded := 0
	for _, n := range stats.Discarded {
		discarded += n
	}
	logger.Info("crawl complete",
		"pages", humanize.Comma(int64(stats.Written)),
		"fetch_failures", stats.FetchFailures,
		"write_failures", stats.WriteFailures,
		"visited", stats.Visited,
		"discarded", discarded,
		"downloaded", humanize.Bytes(uint64(stats.Bytes)),
		"elapsed", stats.Elapsed.Round(time.Millisecond),
		"stopped", stats.StopReason,
		"login", login,
		"output", path)
}
