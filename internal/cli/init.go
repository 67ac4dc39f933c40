package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/notebook/internal/notebook"
	"github.com/roach88/notebook/internal/store"
)

// InitResult reports the backend init prepared.
type InitResult struct {
	Database string `json:"database"`
	Backend  string `json:"backend"`
	Records  int    `json:"records"`
}

func (r InitResult) String() string {
	return fmt.Sprintf("Initialized %s backend at %s (%d records)", r.Backend, r.Database, r.Records)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the experiments table if it does not exist",
		Long: `Open the configured backend, creating its schema if needed.

For SQLite this creates the experiments table and applies migrations. Log
and Redis backends need no schema; init only checks they can be read.

Example:
  notebook init --db sqlite:///experiments.db
  notebook init --db ndjson:///var/log/experiments.jsonl --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(newFormatter(rootOpts, cmd), runInit(rootOpts, cmd))
		},
	}
	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	setupLogging(opts, cfg)

	ctx := commandContext(cmd)
	slog.Info("opening database", "uri", cfg.DatabaseURI)
	b, err := store.Open(ctx, cfg.DatabaseURI, cfg.Codec())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := store.Close(b); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	result := InitResult{
		Database: cfg.DatabaseURI,
		Backend:  notebook.BackendLabel(b),
	}
	if l, ok := b.(store.Lister); ok {
		records, err := l.ListAllExperiments(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read database", err)
		}
		result.Records = len(records)
	}

	return newFormatter(opts, cmd).Success(result)
}

// commandContext returns the command's context, or Background when the
// command runs without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
