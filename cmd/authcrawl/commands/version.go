package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/authcrawl/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().String("format", "text", "output format: text, short, json, yaml")
}

func runVersion(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	switch format {
	case "text":
		fmt.Fprintln(out, version.Full())
	case "short":
		fmt.Fprintln(out, version.String())
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(version.Get())
	case "yaml":
		return yaml.NewEncoder(out).Encode(version.Get())
	default:
		return fmt.Errorf("unsupported format: %s (use text, short, json or yaml)", format)
	}
	return nil
}
