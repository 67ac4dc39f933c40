package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/notebook/internal/harness"
	"github.com/roach88/notebook/internal/outcome"
	"github.com/roach88/notebook/internal/serde"
	"github.com/roach88/notebook/internal/store"
)

// DemoRow is one executed demo case.
type DemoRow struct {
	Name       string `json:"name"`
	Outcome    string `json:"outcome"`
	Parameters any    `json:"parameters"`
	Data       any    `json:"data"`
}

// DemoReport lists the demo cases in execution order.
type DemoReport struct {
	Database string    `json:"database"`
	Results  []DemoRow `json:"results"`
	Passed   int       `json:"passed"`
}

func (r DemoReport) String() string {
	var b strings.Builder
	for _, row := range r.Results {
		params, _ := json.Marshal(row.Parameters)
		data, _ := json.Marshal(row.Data)
		fmt.Fprintf(&b, "%-24s %-12s %s %s\n", row.Name, row.Outcome, params, data)
	}
	fmt.Fprintf(&b, "%d of %d passed, recorded to %s", r.Passed, len(r.Results), r.Database)
	return b.String()
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the square-function experiment and record it",
		Long: `Run the demo experiment: square x for every x in [-4, 4), check the
result is non-negative and record it as "y". One record is written per x.

Example:
  notebook demo --db sqlite:///demo.db
  notebook demo --db demo.jsonl --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(newFormatter(rootOpts, cmd), runDemo(rootOpts, cmd))
		},
	}
	return cmd
}

func runDemo(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := setupLogging(opts, cfg)
	ctx := commandContext(cmd)
	codec := cfg.Codec()

	b, err := store.Open(ctx, cfg.DatabaseURI, codec)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := store.Close(b); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	formatter := newFormatter(opts, cmd)
	runner := harness.NewRunner(harness.Options{Backend: b, Logger: logger})
	results, runErr := runner.Execute(ctx, harness.DemoCases()...)

	report := DemoReport{Database: cfg.DatabaseURI, Results: make([]DemoRow, 0, len(results))}
	for _, res := range results {
		row, err := demoRow(codec, res)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render result", err)
		}
		if res.Outcome == outcome.OutcomePassed {
			report.Passed++
		}
		report.Results = append(report.Results, row)
		formatter.VerboseLog("%s: %s", row.Name, row.Outcome)
	}

	if runErr != nil {
		exitErr := WrapExitError(ExitFailure, "failed to record experiments", runErr)
		exitErr.Details = report
		return exitErr
	}
	if report.Passed != len(report.Results) {
		exitErr := NewExitError(ExitFailure, fmt.Sprintf("%d experiments did not pass", len(report.Results)-report.Passed))
		exitErr.Details = report
		return exitErr
	}
	return formatter.Success(report)
}

// demoRow renders a result with registered values in envelope form.
func demoRow(codec *serde.Codec, res harness.Result) (DemoRow, error) {
	params, err := codec.Encode(res.Record.Parameters)
	if err != nil {
		return DemoRow{}, err
	}
	data, err := codec.Encode(res.Record.Data)
	if err != nil {
		return DemoRow{}, err
	}
	return DemoRow{
		Name:       res.Name,
		Outcome:    string(res.Outcome),
		Parameters: params,
		Data:       data,
	}, nil
}
