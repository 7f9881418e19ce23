package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/emotiscan/internal/config"
	"github.com/andresmejia3/emotiscan/internal/store"
	"github.com/andresmejia3/emotiscan/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resetCSV    bool
	resetImages bool
	resetDB     bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset output state (results CSV, annotated images, database)",
	Long:  "Clears generated data. By default, it resets everything. Use flags to clear specific components.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no flags are set, default to clearing EVERYTHING
		if !resetCSV && !resetImages && !resetDB {
			resetCSV = true
			resetImages = true
			resetDB = true
		}

		reader := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		if (resetCSV || resetImages) && Cfg.OutputDir == "" {
			return fmt.Errorf("no output directory configured (use --config or EMOTISCAN_OUTPUT_DIR)")
		}

		if resetCSV {
			path := filepath.Join(Cfg.OutputDir, Cfg.CSVName)
			if confirm(reader, out, fmt.Sprintf("⚠️  Are you sure you want to delete %s?", path)) {
				fmt.Fprintln(out, "🗑️  Clearing Results CSV...")
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to remove results file: %w", err)
				}
			}
		}

		if resetImages {
			if confirm(reader, out, fmt.Sprintf("⚠️  Are you sure you want to delete all annotated images in %s?", Cfg.OutputDir)) {
				fmt.Fprintln(out, "🗑️  Clearing Annotated Images...")
				n, err := removeImages(Cfg.OutputDir, Cfg.InputDir)
				if err != nil {
					return fmt.Errorf("failed to clear annotated images: %w", err)
				}
				fmt.Fprintf(out, "   Removed %d images\n", n)
			}
		}

		if resetDB {
			if Cfg.DBURL == "" {
				fmt.Fprintln(out, "ℹ️  No database configured, skipping.")
			} else if confirm(reader, out, "⚠️  Are you sure you want to DROP the results table?") {
				fmt.Fprintln(out, "🗑️  Clearing Database...")
				db, err := store.New(cmd.Context(), Cfg.DBURL, "")
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer db.Close()
				if err := db.Reset(cmd.Context()); err != nil {
					return fmt.Errorf("failed to reset database: %w", err)
				}
			}
		}

		fmt.Fprintln(out, "✨ Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetCSV, "csv", false, "Delete the results CSV")
	resetCmd.Flags().BoolVar(&resetImages, "images", false, "Delete annotated images from the output directory")
	resetCmd.Flags().BoolVar(&resetDB, "db", false, "Drop the PostgreSQL results table")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

// removeImages deletes the image files directly inside dir and leaves
// everything else (the CSV, notes, subdirectories) alone. It refuses to touch
// inputDir, which holds the source images.
func removeImages(dir, inputDir string) (int, error) {
	if inputDir != "" {
		if same, err := config.SameDir(dir, inputDir); err == nil && same {
			return 0, fmt.Errorf("output directory %s is the input directory, refusing to delete source images", dir)
		}
	}
	files, err := utils.ListFiles(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, f := range files {
		ok, err := utils.IsImage(f)
		if err != nil || !ok {
			continue
		}
		if err := os.Remove(f); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", f, err)
			continue
		}
		removed++
	}
	return removed, nil
}
