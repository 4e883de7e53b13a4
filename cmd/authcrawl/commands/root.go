// Package commands implements the CLI commands for authcrawl.
package commands

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/authcrawl/internal/config"
	"github.com/jmylchreest/authcrawl/internal/logger"
	"github.com/jmylchreest/authcrawl/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "authcrawl",
	Short: "Authenticated breadth-first crawler for web applications",
	Long: `Authcrawl logs into a web application once, then crawls every page under
a URL prefix breadth-first through the same session, writing one JSON line
per page for offline analysis.

Examples:
  # Crawl a WordPress admin area (password from the environment)
  export AUTHCRAWL_CREDENTIALS_PASSWORD=...
  authcrawl crawl --login-url http://host/wordpress/wp-login.php \
      --start-url http://host/wordpress/wp-admin/ \
      --scope http://host/wordpress --username wpuser

  # Everything from a config file, without a browser
  authcrawl crawl --config crawl.yaml --mode static

  # Project the output for spreadsheet tools
  authcrawl export -i out/crawl.jsonl -o out/crawl.csv`,
	SilenceUsage: true,
	Version:      version.String(),
}

// configErr holds a config file read failure until a command can report it.
var configErr error

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.authcrawl.yaml or ./.authcrawl.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.BoolP("quiet", "q", false, "only log errors")
	pf.Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", pf.Lookup("config"))
	_ = viper.BindPFlag("debug", pf.Lookup("debug"))
	_ = viper.BindPFlag("quiet", pf.Lookup("quiet"))
	_ = viper.BindPFlag("log_json", pf.Lookup("log-json"))
}

func initConfig() {
	config.Configure(viper.GetViper())

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".authcrawl")
		viper.SetConfigType("yaml")
	}

	// A missing default config file is fine; an explicit one must exist.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = err
		}
	}
}

// initLogger configures logging from the global flags.
func initLogger() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
	if used := viper.ConfigFileUsed(); used != "" && configErr == nil {
		logger.Debug("config file loaded", "path", used)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
