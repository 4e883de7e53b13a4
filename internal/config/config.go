// Package config loads and validates the run configuration.
//
// Values come from viper, so flags, the optional YAML config file and
// AUTHCRAWL_* environment variables all land in one Config. Nested keys map
// to environment variables with "_" (credentials.password is
// AUTHCRAWL_CREDENTIALS_PASSWORD).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/authcrawl/internal/crawler"
	"github.com/jmylchreest/authcrawl/internal/logger"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "AUTHCRAWL"

// Config is the whole run configuration.
type Config struct {
	Target      Target      `mapstructure:"target"`
	Credentials Credentials `mapstructure:"credentials"`
	Limits      Limits      `mapstructure:"limits"`
	Browser     Browser     `mapstructure:"browser"`
	Output      Output      `mapstructure:"output"`
}

// Target names the application being crawled.
type Target struct {
	LoginURL string `mapstructure:"login_url" validate:"required,url"`
	StartURL string `mapstructure:"start_url" validate:"required,url"`
	Scope    string `mapstructure:"scope" validate:"required"`
}

// Credentials holds the login form input. An empty username disables login.
type Credentials struct {
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	UsernameSelector string `mapstructure:"username_selector" validate:"required"`
	PasswordSelector string `mapstructure:"password_selector" validate:"required"`
	SubmitSelector   string `mapstructure:"submit_selector" validate:"required"`
	MarkerSelector   string `mapstructure:"marker_selector" validate:"required"`
}

// LogValue keeps the password out of logs.
func (c Credentials) LogValue() slog.Value {
	password := ""
	if c.Password != "" {
		password = logger.Mask
	}
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", password),
		slog.String("username_selector", c.UsernameSelector),
		slog.String("marker_selector", c.MarkerSelector),
	)
}

// Limits bound the crawl.
type Limits struct {
	MaxPages int           `mapstructure:"max_pages" validate:"min=0"`
	MaxDepth int           `mapstructure:"max_depth" validate:"min=0"`
	Delay    time.Duration `mapstructure:"delay" validate:"min=0"`
}

// Browser configures the fetch session.
type Browser struct {
	Mode           string        `mapstructure:"mode" validate:"oneof=browser static"`
	Headless       bool          `mapstructure:"headless"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UserAgent      string        `mapstructure:"user_agent"`
	ChromePath     string        `mapstructure:"chrome_path"`
	ViewportWidth  int           `mapstructure:"viewport_width" validate:"gt=0"`
	ViewportHeight int           `mapstructure:"viewport_height" validate:"gt=0"`
	LoginTimeout   time.Duration `mapstructure:"login_timeout" validate:"gt=0"`
	FieldTimeout   time.Duration `mapstructure:"field_timeout" validate:"gt=0"`
	MarkerTimeout  time.Duration `mapstructure:"marker_timeout" validate:"gt=0"`
}

// Output configures the record file.
type Output struct {
	Path          string `mapstructure:"path" validate:"required"`
	Format        string `mapstructure:"format" validate:"oneof=jsonl yaml"`
	Content       string `mapstructure:"content" validate:"oneof=markdown text article html raw"`
	ExcerptLength int    `mapstructure:"excerpt_length" validate:"gt=0"`
}

// Default returns the defaults: WordPress selectors and conservative limits.
func Default() Config {
	return Config{
		Credentials: Credentials{
			UsernameSelector: "#user_login",
			PasswordSelector: "#user_pass",
			SubmitSelector:   "#wp-submit",
			MarkerSelector:   "#wpadminbar",
		},
		Limits: Limits{
			MaxPages: 200,
			MaxDepth: 5,
			Delay:    300 * time.Millisecond,
		},
		Browser: Browser{
			Mode:           "browser",
			Headless:       true,
			Timeout:        30 * time.Second,
			ViewportWidth:  1200,
			ViewportHeight: 900,
			LoginTimeout:   30 * time.Second,
			FieldTimeout:   5 * time.Second,
			MarkerTimeout:  10 * time.Second,
		},
		Output: Output{
			Path:          "out/crawl.jsonl",
			Format:        "jsonl",
			Content:       "markdown",
			ExcerptLength: 500,
		},
	}
}

// SetDefaults registers every key of Default with v. Keys viper does not
// know about are not looked up in the environment on Unmarshal.
func SetDefaults(v *viper.Viper) {
	setDefaults(v, "", reflect.ValueOf(Default()))
}

func setDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	t := val.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		key := f.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		fv := val.Field(i)
		if fv.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Duration(0)) {
			setDefaults(v, key, fv)
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}

// Configure sets up env lookup on v.
func Configure(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and that the start URL is in scope.
func (c Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			problems = append(problems, fmt.Sprintf("%s %s", fieldPath(e), formatValidationError(e)))
		}
	}

	// Compared the way the crawler will: normalized start URL, prefix scope.
	if start := crawler.NormalizeURL(c.Target.StartURL); start != "" && c.Target.Scope != "" && !crawler.Scope(c.Target.Scope).Contains(start) {
		problems = append(problems, fmt.Sprintf("target.start_url %q is outside target.scope %q", c.Target.StartURL, c.Target.Scope))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LoginEnabled reports whether a username was configured.
func (c Config) LoginEnabled() bool {
	return c.Credentials.Username != ""
}

// fieldPath returns the dotted config key, without the root struct name.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(e.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
