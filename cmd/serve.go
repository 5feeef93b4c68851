package cmd

import (
	"fmt"

	"github.com/hbomb79/Mnemo/internal"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/spf13/cobra"
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the download and visual summary services behind the REST API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	mnemo, err := internal.New(*config)
	if err != nil {
		return fmt.Errorf("failed to initialise: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := mnemo.Run(ctx); err != nil {
		return err
	}

	log.Emit(logger.STOP, "Mnemo shut down\n")
	return nil
}
