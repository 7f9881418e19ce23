package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/emotiscan/internal/config"
	"github.com/andresmejia3/emotiscan/internal/logger"
	"github.com/andresmejia3/emotiscan/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// Cfg is the resolved configuration shared by subcommands
	Cfg *config.Config

	cfgFile   string
	v         = viper.New()
	logCloser io.Closer
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "emotiscan",
	Short:         "Batch face emotion scanner",
	Long:          "Sends every image in a directory to a face detection service, boxes the confident faces and appends their emotion likelihoods to a CSV file.",
	Version:       Version, // This enables the --version flag
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		Cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		logCloser, err = logger.Init(Cfg.Log.Level, Cfg.Log.File)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		utils.ShowError("Command failed", err)
		stop()
		os.Exit(1)
	}
}

// bindFlags maps flag names to config keys so flags win over env and file.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-file", "", "Also append logs to this file")
	bindFlags(pf, map[string]string{
		"log-level": "log.level",
		"log-file":  "log.file",
	})
}
