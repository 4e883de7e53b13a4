package commands

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/authcrawl/internal/export"
	"github.com/jmylchreest/authcrawl/internal/logger"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert crawl output to CSV",
	Long: `Project a JSONL crawl output file onto the CSV columns
id, url, title, excerpt, status, response_time_ms, has_form.

Lines that are not valid JSON are skipped; id is the input line number.

Examples:
  authcrawl export -i out/crawl.jsonl -o out/crawl.csv

  # Input defaults to output.path, output to the same name with .csv
  authcrawl export`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	flags := exportCmd.Flags()
	flags.StringP("input", "i", "", "JSONL crawl output (default: output.path)")
	flags.StringP("output", "o", "", "CSV file (default: input with .csv extension)")
}

func runExport(cmd *cobra.Command, args []string) error {
	initLogger()

	in, _ := cmd.Flags().GetString("input")
	if in == "" {
		in = viper.GetString("output.path")
	}
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = csvPath(in)
	}

	logger.Debug("export starting", "input", in, "output", out)
	res, err := export.ConvertFile(in, out)
	if err != nil {
		logger.Error("export failed", "input", in, "error", err)
		return err
	}
	logger.Info("export complete", "rows", res.Rows, "skipped", res.Skipped, "output", out)
	return nil
}

// csvPath swaps the extension of p for .csv.
func csvPath(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ".csv"
}
