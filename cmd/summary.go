package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/andresmejia3/emotiscan/internal/results"
	"github.com/spf13/cobra"
)

var summaryCSV string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show per-image face counts from the results CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := summaryCSV
		if path == "" {
			path = filepath.Join(Cfg.OutputDir, Cfg.CSVName)
		}
		return runSummary(cmd.OutOrStdout(), path)
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryCSV, "csv", "", "Path to the results CSV (default: <output_dir>/<csv_name> from config)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(out io.Writer, path string) error {
	records, err := results.ReadCSV(path)
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}

	summaries := results.Summarize(records)
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No results recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "IMAGE\tROWS\tFACES\tCOLORS")
	fmt.Fprintln(w, "-----\t----\t-----\t------")

	for _, s := range summaries {
		colors := strings.Join(s.Colors, ",")
		if colors == "" {
			colors = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.ImageName, s.Rows, s.Faces, colors)
	}
	return w.Flush()
}
