package auth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmylchreest/authcrawl/internal/fetcher"
	"github.com/jmylchreest/authcrawl/internal/logger"
)

// fakeTab records calls and answers from canned state.
type fakeTab struct {
	navigateErr error
	present     map[string]bool // selectors WaitFor finds
	fillErr     map[string]error
	clickErr    error
	viewportErr error

	calls  []string
	filled map[string]string
	waits  map[string]time.Duration
}

func newFakeTab(present ...string) *fakeTab {
	t := &fakeTab{
		present: make(map[string]bool),
		fillErr: make(map[string]error),
		filled:  make(map[string]string),
		waits:   make(map[string]time.Duration),
	}
	for _, s := range present {
		t.present[s] = true
	}
	return t
}

func (t *fakeTab) Navigate(_ context.Context, url string, _ time.Duration) error {
	t.calls = append(t.calls, "navigate "+url)
	return t.navigateErr
}

func (t *fakeTab) WaitFor(_ context.Context, selector string, timeout time.Duration) (bool, error) {
	t.calls = append(t.calls, "wait "+selector)
	t.waits[selector] = timeout
	return t.present[selector], nil
}

func (t *fakeTab) Fill(_ context.Context, selector, value string) error {
	t.calls = append(t.calls, "fill "+selector)
	if err := t.fillErr[selector]; err != nil {
		return err
	}
	t.filled[selector] = value
	return nil
}

func (t *fakeTab) Click(_ context.Context, selector string) error {
	t.calls = append(t.calls, "click "+selector)
	return t.clickErr
}

func (t *fakeTab) SetViewport(_ context.Context, w, h int) error {
	t.calls = append(t.calls, "viewport")
	return t.viewportErr
}

func testConfig() Config {
	return Config{
		LoginURL: "http://host/wordpress/wp-login.php",
		Username: "admin",
		Password: "s3cret",
	}
}

func TestLogin_LoggedIn(t *testing.T) {
	tab := newFakeTab("#user_login", "#wpadminbar")
	got := New(testConfig()).Login(context.Background(), tab)

	if got != LoggedIn {
		t.Fatalf("Login() = %v, want %v", got, LoggedIn)
	}
	if tab.filled["#user_login"] != "admin" || tab.filled["#user_pass"] != "s3cret" {
		t.Errorf("filled = %v", tab.filled)
	}
	want := []string{
		"navigate http://host/wordpress/wp-login.php",
		"wait #user_login",
		"fill #user_login",
		"fill #user_pass",
		"click #wp-submit",
		"wait #wpadminbar",
		"viewport",
	}
	if strings.Join(tab.calls, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %v, want %v", tab.calls, want)
	}
	if tab.waits["#user_login"] != 5*time.Second || tab.waits["#wpadminbar"] != 10*time.Second {
		t.Errorf("wait timeouts = %v", tab.waits)
	}
}

func TestLogin_MissingLoginField(t *testing.T) {
	// The login form is not shown when the context is already authenticated.
	tab := newFakeTab()
	got := New(testConfig()).Login(context.Background(), tab)

	if got != AlreadyAuthenticated {
		t.Fatalf("Login() = %v, want %v", got, AlreadyAuthenticated)
	}
	for _, c := range tab.calls {
		if strings.HasPrefix(c, "fill") || strings.HasPrefix(c, "click") {
			t.Errorf("unexpected call %q after missing login field", c)
		}
	}
	if tab.calls[len(tab.calls)-1] != "viewport" {
		t.Errorf("viewport should still be set, calls = %v", tab.calls)
	}
}

func TestLogin_NotConfirmed(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		setup func(*fakeTab)
	}{
		{"navigation fails", func(tab *fakeTab) { tab.navigateErr = boom }},
		{"username fill fails", func(tab *fakeTab) { tab.fillErr["#user_login"] = boom }},
		{"password fill fails", func(tab *fakeTab) { tab.fillErr["#user_pass"] = fetcher.ErrElementNotFound }},
		{"submit fails", func(tab *fakeTab) { tab.clickErr = boom }},
		{"marker missing", func(tab *fakeTab) { delete(tab.present, "#wpadminbar") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab := newFakeTab("#user_login", "#wpadminbar")
			tt.setup(tab)
			if got := New(testConfig()).Login(context.Background(), tab); got != NotConfirmed {
				t.Errorf("Login() = %v, want %v", got, NotConfirmed)
			}
			if tab.calls[len(tab.calls)-1] != "viewport" {
				t.Errorf("viewport step skipped, calls = %v", tab.calls)
			}
		})
	}
}

func TestLogin_ViewportErrorIgnored(t *testing.T) {
	tab := newFakeTab("#user_login", "#wpadminbar")
	tab.viewportErr = fetcher.ErrUnsupported
	if got := New(testConfig()).Login(context.Background(), tab); got != LoggedIn {
		t.Errorf("Login() = %v, want %v", got, LoggedIn)
	}
}

func TestLogin_CustomSelectors(t *testing.T) {
	cfg := testConfig()
	cfg.UsernameSelector = "input[name=email]"
	cfg.PasswordSelector = "input[name=password]"
	cfg.SubmitSelector = "button[type=submit]"
	cfg.MarkerSelector = ".account-menu"

	tab := newFakeTab("input[name=email]", ".account-menu")
	if got := New(cfg).Login(context.Background(), tab); got != LoggedIn {
		t.Fatalf("Login() = %v, want %v", got, LoggedIn)
	}
	if tab.filled["input[name=password]"] != "s3cret" {
		t.Errorf("filled = %v", tab.filled)
	}
}

func TestHook(t *testing.T) {
	a := New(testConfig())
	var hook fetcher.ContextHook = a.Hook()

	hook(context.Background(), newFakeTab("#user_login", "#wpadminbar"))
	outcome, runs := a.Last()
	if outcome != LoggedIn || runs != 1 {
		t.Errorf("Last() = (%v, %d), want (%v, 1)", outcome, runs, LoggedIn)
	}
}

func TestLogin_PasswordNeverLogged(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Debug: true, Output: &buf})
	t.Cleanup(func() { logger.Init(logger.Options{}) })

	tab := newFakeTab("#user_login")
	New(testConfig()).Login(context.Background(), tab)

	if strings.Contains(buf.String(), "s3cret") {
		t.Errorf("password leaked into logs: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "login not confirmed") {
		t.Errorf("expected a warning about the missing marker, got: %s", buf.String())
	}
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{
		LoggedIn:             "logged_in",
		AlreadyAuthenticated: "already_authenticated",
		NotConfirmed:         "not_confirmed",
	} {
		if o.String() != want {
			t.Errorf("%d.String() = %q, want %q", o, o.String(), want)
		}
	}
}
