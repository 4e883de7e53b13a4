package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jmylchreest/authcrawl/internal/logger"
)

func validConfig() Config {
	cfg := Default()
	cfg.Target = Target{
		LoginURL: "http://host/wordpress/wp-login.php",
		StartURL: "http://host/wordpress/wp-admin/",
		Scope:    "http://host/wordpress",
	}
	cfg.Credentials.Username = "admin"
	cfg.Credentials.Password = "s3cret"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unlimited pages", mutate: func(c *Config) { c.Limits.MaxPages = 0 }},
		{
			name:    "missing target",
			mutate:  func(c *Config) { c.Target = Target{} },
			wantErr: []string{"target.login_url is required", "target.start_url is required", "target.scope is required"},
		},
		{
			name:    "bad login url",
			mutate:  func(c *Config) { c.Target.LoginURL = "wp-login.php" },
			wantErr: []string{"target.login_url must be a valid URL"},
		},
		{
			name:    "negative limits",
			mutate:  func(c *Config) { c.Limits.MaxDepth = -1; c.Limits.Delay = -time.Second },
			wantErr: []string{"limits.max_depth must be at least 0", "limits.delay must be at least 0"},
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Browser.Mode = "firefox" },
			wantErr: []string{"browser.mode must be one of: browser, static"},
		},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.Output.Format = "csv" },
			wantErr: []string{"output.format must be one of: jsonl, yaml"},
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Browser.Timeout = 0 },
			wantErr: []string{"browser.timeout must be greater than 0"},
		},
		{
			name:   "start in scope after normalization",
			mutate: func(c *Config) { c.Target.StartURL = "HTTP://host/wordpress/wp-admin/#menu" },
		},
		{
			name:    "start outside scope",
			mutate:  func(c *Config) { c.Target.StartURL = "http://other/wp-admin/" },
			wantErr: []string{"outside target.scope"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	Configure(v)
	v.Set("target.login_url", "http://host/wp-login.php")
	v.Set("target.start_url", "http://host/wp-admin/")
	v.Set("target.scope", "http://host/")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()
	if cfg.Limits != def.Limits || cfg.Browser != def.Browser || cfg.Output != def.Output {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Credentials.UsernameSelector != "#user_login" {
		t.Errorf("UsernameSelector = %q", cfg.Credentials.UsernameSelector)
	}
	if cfg.LoginEnabled() {
		t.Error("login should be disabled without a username")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authcrawl.yaml")
	data := `target:
  login_url: http://host/wordpress/wp-login.php
  start_url: http://host/wordpress/wp-admin/
  scope: http://host/wordpress
credentials:
  username: wpuser
limits:
  max_pages: 50
  delay: 1s
browser:
  mode: static
  timeout: 45s
output:
  format: yaml
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	Configure(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Limits.MaxPages != 50 || cfg.Limits.Delay != time.Second {
		t.Errorf("Limits = %+v", cfg.Limits)
	}
	if cfg.Limits.MaxDepth != 5 {
		t.Errorf("MaxDepth = %d, want default 5", cfg.Limits.MaxDepth)
	}
	if cfg.Browser.Mode != "static" || cfg.Browser.Timeout != 45*time.Second {
		t.Errorf("Browser = %+v", cfg.Browser)
	}
	if cfg.Output.Format != "yaml" || cfg.Output.Path != "out/crawl.jsonl" {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if !cfg.LoginEnabled() {
		t.Error("login should be enabled")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("AUTHCRAWL_TARGET_LOGIN_URL", "http://host/wp-login.php")
	t.Setenv("AUTHCRAWL_TARGET_START_URL", "http://host/wp-admin/")
	t.Setenv("AUTHCRAWL_TARGET_SCOPE", "http://host/")
	t.Setenv("AUTHCRAWL_CREDENTIALS_PASSWORD", "from-env")
	t.Setenv("AUTHCRAWL_LIMITS_MAX_DEPTH", "2")

	v := viper.New()
	Configure(v)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Credentials.Password != "from-env" {
		t.Errorf("Password not read from environment")
	}
	if cfg.Limits.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want 2", cfg.Limits.MaxDepth)
	}
}

func TestLoad_Invalid(t *testing.T) {
	v := viper.New()
	Configure(v)
	if _, err := Load(v); err == nil {
		t.Fatal("expected error without a target")
	}
}

func TestCredentials_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Output: &buf})
	t.Cleanup(func() { logger.Init(logger.Options{}) })

	logger.Info("config", "credentials", validConfig().Credentials)
	out := buf.String()
	if strings.Contains(out, "s3cret") {
		t.Errorf("password leaked: %s", out)
	}
	if !strings.Contains(out, "admin") {
		t.Errorf("username missing: %s", out)
	}
}
