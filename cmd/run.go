package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresmejia3/emotiscan/internal/annotate"
	"github.com/andresmejia3/emotiscan/internal/config"
	"github.com/andresmejia3/emotiscan/internal/detector"
	"github.com/andresmejia3/emotiscan/internal/notify"
	"github.com/andresmejia3/emotiscan/internal/pipeline"
	"github.com/andresmejia3/emotiscan/internal/results"
	"github.com/andresmejia3/emotiscan/internal/store"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Detect faces in every image of a directory and record their emotions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context(), Cfg)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringP("input", "i", "", "Directory of images to analyze")
	f.StringP("output", "o", "", "Directory for annotated images and the results CSV")
	f.String("csv", "output.csv", "Results CSV file name inside the output directory")
	f.Float64P("confidence", "c", 0.35, "Minimum detection confidence to keep a face (0.0 - 1.0)")
	f.String("provider", detector.ProviderVision, "Detection service (vision, rekognition)")
	f.Int("max-results", 0, "Maximum faces requested per image (0 = service default)")
	f.String("credentials", "", "Google service account JSON (default: application default credentials)")
	f.String("region", "", "AWS region for rekognition (default: from the AWS environment)")
	f.Duration("request-timeout", 0, "Per-image detection timeout, e.g. 30s (0 = none)")
	f.Bool("continue-on-error", false, "Log failed images and keep going instead of aborting the run")
	f.String("db", "", "PostgreSQL connection string to mirror results into")
	f.String("mqtt-broker", "", "MQTT broker URL to publish results to, e.g. tcp://localhost:1883")
	f.String("mqtt-topic", "emotiscan/results", "Base MQTT topic; each image publishes to <topic>/<image name>")

	bindFlags(f, map[string]string{
		"input":             "input_dir",
		"output":            "output_dir",
		"csv":               "csv_name",
		"confidence":        "min_confidence",
		"provider":          "provider",
		"max-results":       "max_results",
		"credentials":       "credentials",
		"region":            "region",
		"request-timeout":   "request_timeout",
		"continue-on-error": "continue_on_error",
		"db":                "db_url",
		"mqtt-broker":       "mqtt.broker",
		"mqtt-topic":        "mqtt.topic",
	})
	rootCmd.AddCommand(runCmd)
}

// runScan validates the configuration, opens the detector and every enabled
// sink, then hands them to the pipeline.
func runScan(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	det, err := detector.New(ctx, cfg.ProviderConfig())
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	sinks := []pipeline.Sink{results.NewCSVSink(cfg.OutputDir, cfg.CSVName)}
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
		det.Close()
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	if cfg.DBURL != "" {
		db, err := store.New(ctx, cfg.DBURL, runID)
		if err != nil {
			closeAll()
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		sinks = append(sinks, db)
	}
	if cfg.MQTT.Broker != "" {
		pub, err := notify.NewPublisher(cfg.MQTT.Broker, cfg.MQTT.Topic, cfg.MQTT.ClientID+"-"+runID)
		if err != nil {
			closeAll()
			return err
		}
		sinks = append(sinks, pub)
	}

	drv := pipeline.New(cfg, det, annotate.New(), sinks...)
	defer drv.Close()

	fmt.Fprintf(os.Stderr, "📂 Scanning %s with %s (min confidence %.2f)\n", cfg.InputDir, cfg.Provider, cfg.MinConfidence)
	stats, err := drv.Run(ctx)
	fmt.Fprintf(os.Stderr, "\n🏁 Run %s. Processed %d images (%d skipped, %d failed), kept %d faces, wrote %d rows to %s\n",
		outcome(err), stats.Processed, stats.Skipped, stats.Failed, stats.Faces, stats.Rows,
		filepath.Join(cfg.OutputDir, cfg.CSVName))
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "Complete"
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	default:
		return "Aborted"
	}
}
