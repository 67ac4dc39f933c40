package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/notebook/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	From string
	To   string
}

// ExportResult reports how many records were copied.
type ExportResult struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Records int    `json:"records"`
}

func (r ExportResult) String() string {
	return fmt.Sprintf("Exported %d records from %s to %s", r.Records, r.From, r.To)
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy every record from one backend to another",
		Long: `Read every record from the source backend, in insertion order, and
write each one to the destination backend.

Example:
  notebook export --from sqlite:///experiments.db --to experiments.jsonl
  notebook export --from experiments.jsonl --to redis://localhost:6379/0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(newFormatter(rootOpts, cmd), runExport(opts, cmd))
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "source database URI (required)")
	cmd.Flags().StringVar(&opts.To, "to", "", "destination database URI (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	setupLogging(opts.RootOptions, cfg)
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)
	codec := cfg.Codec()

	src, err := store.Open(ctx, opts.From, codec)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open source", err)
	}
	defer store.Close(src)
	formatter.VerboseLog("opened source %s", opts.From)

	lister, ok := src.(store.Lister)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("source %s cannot be listed", opts.From))
	}
	records, err := lister.ListAllExperiments(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read source", err)
	}

	dst, err := store.Open(ctx, opts.To, codec)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open destination", err)
	}
	defer store.Close(dst)

	for i, exp := range records {
		if err := dst.RecordExperiment(ctx, exp); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("exported %d of %d records", i, len(records)), err)
		}
		formatter.VerboseLog("exported %d/%d %s", i+1, len(records), exp.Name)
	}

	return formatter.Success(ExportResult{
		From:    opts.From,
		To:      opts.To,
		Records: len(records),
	})
}
