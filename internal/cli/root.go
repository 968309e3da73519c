// Package cli defines the cobra command tree for guestbook.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/config"
)

// NewRootCmd creates the root cobra command. Configuration comes from the
// environment (and .env); see config.Load.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "guestbook",
		Short:         "Guest check-in and visit quotas for the club front desk",
		Long:          "Check club guests in against the yearly and summer visit limits, serve the front-desk API, and export the yearly guest report.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newReportCmd(),
		newImportCmd(),
	)

	return root
}

// loadConfig loads the configuration and builds the JSON logger every
// command writes to.
func loadConfig(w io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}
