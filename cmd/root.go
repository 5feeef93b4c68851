// Package cmd contains the command line interface of Mnemo. Each command loads
// the user configuration and drives the same services used by the REST API.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hbomb79/Mnemo/internal"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	log = logger.Get("CLI")

	// Global flags
	configFlag   string
	logLevelFlag string
	jsonFlag     bool
)

// NewRootCmd creates the root command, with every subcommand attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mnemo",
		Short: "Acquire online media and build a searchable knowledge base",
		Long: `Mnemo downloads videos, audio and subtitles using yt-dlp, and ingests
their metadata and transcripts in to a searchable knowledge base. Visual
summaries of downloaded videos can be extracted using ffmpeg.

Run 'mnemo serve' to expose the pipeline over a REST API and websocket.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to the config file (default: <user config dir>/mnemo/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Minimum log level, overriding the config (verbose, debug, info, warning, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print results as JSON")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewDownloadCmd())
	rootCmd.AddCommand(NewSummarizeCmd())
	rootCmd.AddCommand(NewSearchCmd())
	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewFramesCmd())
	rootCmd.AddCommand(NewStatsCmd())

	return rootCmd
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by the global flags and
// applies the requested log level.
func loadConfig() (*internal.MnemoConfig, error) {
	config, err := internal.LoadConfig(configFlag)
	if err != nil {
		return nil, err
	}

	if logLevelFlag != "" {
		config.LogLevel = logLevelFlag
	}
	if err := config.ApplyLogLevel(); err != nil {
		return nil, err
	}

	return config, nil
}

// withMnemo constructs Mnemo and connects it to the knowledge base before calling
// the function provided. The connection is closed once the function returns.
func withMnemo(fn func(*internal.Mnemo) error) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	mnemo, err := internal.New(*config)
	if err != nil {
		return fmt.Errorf("failed to initialise: %w", err)
	}

	if err := mnemo.Connect(); err != nil {
		return err
	}
	defer mnemo.Close()

	return fn(mnemo)
}

// signalContext returns a context which is cancelled when the process
// receives an interrupt or termination signal.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
