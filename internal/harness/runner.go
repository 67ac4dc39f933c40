package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/notebook/internal/config"
	"github.com/roach88/notebook/internal/notebook"
	"github.com/roach88/notebook/internal/outcome"
	"github.com/roach88/notebook/internal/serde"
	"github.com/roach88/notebook/internal/store"
)

// Options configures a Runner.
type Options struct {
	// Backend receives every record unless a case overrides it. When nil,
	// each notebook opens the backend named by Config.
	Backend store.Backend

	// Config is passed to notebooks that open their own backend.
	Config *config.Config

	// Codec is passed to notebooks that open their own backend.
	Codec *serde.Codec

	// Metrics instruments every backend when set.
	Metrics *store.Metrics

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger defaults to a logger that discards output.
	Logger *slog.Logger
}

// Runner executes cases sequentially.
type Runner struct {
	opts Options
}

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{opts: opts}
}

// Execute runs each case and returns one Result per case, in order.
//
// A failing phase does not stop the run; it is reflected in the outcome.
// The returned error joins every error Finish reported, so a record that
// could not be persisted is never dropped silently.
func (r *Runner) Execute(ctx context.Context, cases ...Case) ([]Result, error) {
	results := make([]Result, 0, len(cases))
	var finishErrs []error

	for _, c := range cases {
		res, err := r.executeCase(ctx, c)
		if err != nil {
			return results, fmt.Errorf("case %s: %w", c.Name, err)
		}
		if res.Err != nil {
			finishErrs = append(finishErrs, fmt.Errorf("case %s: %w", c.Name, res.Err))
		}
		results = append(results, res)
	}

	return results, errors.Join(finishErrs...)
}

// executeCase runs one case. It only returns an error when the notebook
// could not be created.
func (r *Runner) executeCase(ctx context.Context, c Case) (Result, error) {
	backend := c.Backend
	if backend == nil {
		backend = r.opts.Backend
	}

	run := NewRun(c.Name, c.Params)
	nb, err := notebook.New(ctx, run, notebook.Options{
		Backend: backend,
		Config:  r.opts.Config,
		Codec:   r.opts.Codec,
		Metrics: r.opts.Metrics,
		Now:     r.opts.Now,
		Logger:  r.opts.Logger,
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Name: c.Name, PhaseErrors: map[outcome.Phase]error{}}

	setup := r.runPhase(ctx, nb, run, outcome.Setup, c.Setup, res.PhaseErrors)
	if setup == outcome.Passed {
		r.runPhase(ctx, nb, run, outcome.Act, c.Act, res.PhaseErrors)
	}
	r.runPhase(ctx, nb, run, outcome.Teardown, c.Teardown, res.PhaseErrors)

	res.Err = nb.Finish(ctx)
	res.Reports, _ = run.PhaseReports()
	res.Outcome = nb.Outcome()
	res.Record, _ = nb.Result()

	r.opts.Logger.Debug("case executed",
		"name", c.Name,
		"run_id", nb.RunID(),
		"outcome", string(res.Outcome),
		"tags", c.Tags,
	)
	return res, nil
}

// runPhase calls fn, reports its result on run and returns it.
func (r *Runner) runPhase(ctx context.Context, nb *notebook.Notebook, run *Run, phase outcome.Phase, fn PhaseFunc, phaseErrs map[outcome.Phase]error) outcome.Result {
	err := callPhase(ctx, nb, fn)
	result := phaseResult(err)
	if err != nil {
		phaseErrs[phase] = err
	}
	run.Report(phase, result)
	return result
}

// callPhase invokes fn, converting a panic into an error.
func callPhase(ctx context.Context, nb *notebook.Notebook, fn PhaseFunc) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, nb)
}

func phaseResult(err error) outcome.Result {
	switch {
	case err == nil:
		return outcome.Passed
	case errors.Is(err, ErrSkip):
		return outcome.Skipped
	default:
		return outcome.Failed
	}
}
