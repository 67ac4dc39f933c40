// Package notebook captures the parameters and data of one experiment run and
// persists the finished record.
//
// A runner creates one Notebook per run, the run body calls Record, and the
// runner calls Finish once every phase has reported:
//
//	nb, err := notebook.New(ctx, run, notebook.Options{})
//	...
//	nb.Record("y", y)
//	...
//	err = nb.Finish(ctx)
//
// Finish derives the outcome from the run's phase reports and hands the
// record to the configured store.Backend.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/notebook/internal/config"
	"github.com/roach88/notebook/internal/errs"
	"github.com/roach88/notebook/internal/outcome"
	"github.com/roach88/notebook/internal/record"
	"github.com/roach88/notebook/internal/serde"
	"github.com/roach88/notebook/internal/store"
)

// RunContext is what a Notebook needs from the runner executing a run.
type RunContext interface {
	// Name is the fully qualified name of the run, unique per parametrization.
	Name() string

	// DeclaredParameters returns the declared inputs of the run.
	DeclaredParameters() map[string]any

	// PhaseReports returns the reports collected so far. ok is false when no
	// reporting hook was attached to the run.
	PhaseReports() (reports outcome.Reports, ok bool)
}

// Options configures a Notebook.
type Options struct {
	// Backend overrides the configured store. The caller keeps ownership.
	Backend store.Backend

	// Config supplies the default backend and type policy.
	// Nil means config.Load("").
	Config *config.Config

	// Codec overrides the codec built from Config.
	Codec *serde.Codec

	// Metrics, when set, instruments the backend.
	Metrics *store.Metrics

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Notebook accumulates data for one run. It is safe for concurrent use.
type Notebook struct {
	run     RunContext
	backend store.Backend
	owned   bool
	now     func() time.Time
	logger  *slog.Logger
	runID   string

	mu       sync.Mutex
	start    time.Time
	data     map[string]any
	finished bool
	built    bool
	result   record.Experiment
}

// New creates a Notebook for run and resolves its backend. The start time
// is taken here.
func New(ctx context.Context, run RunContext, opts Options) (*Notebook, error) {
	if run == nil {
		return nil, errs.New(errs.Usage, "new notebook", "nil run context")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backend, owned, err := resolveBackend(ctx, opts)
	if err != nil {
		return nil, err
	}

	nb := &Notebook{
		run:     run,
		backend: backend,
		owned:   owned,
		now:     now,
		logger:  logger,
		runID:   uuid.Must(uuid.NewV7()).String(),
		start:   now().UTC(),
		data:    map[string]any{},
	}

	nb.logger.Debug("notebook started",
		"run_id", nb.runID,
		"name", run.Name(),
	)
	return nb, nil
}

func resolveBackend(ctx context.Context, opts Options) (store.Backend, bool, error) {
	backend, owned := opts.Backend, false
	if backend == nil {
		cfg := opts.Config
		if cfg == nil {
			loaded, err := config.Load("")
			if err != nil {
				return nil, false, errs.Wrap(errs.Usage, "new notebook: load config", err)
			}
			cfg = &loaded
		}
		codec := opts.Codec
		if codec == nil {
			codec = cfg.Codec()
		}
		b, err := store.Open(ctx, cfg.DatabaseURI, codec)
		if err != nil {
			return nil, false, err
		}
		backend, owned = b, true
	}

	if opts.Metrics != nil {
		backend = store.Instrument(backend, BackendLabel(backend), opts.Metrics)
	}
	return backend, owned, nil
}

// BackendLabel names the kind of b for logs and metrics.
func BackendLabel(b store.Backend) string {
	switch b := b.(type) {
	case *store.SQLStore:
		return "sqlite"
	case *store.LogStore:
		return "ndjson"
	case *store.RedisStore:
		return "redis"
	case *store.Instrumented:
		return BackendLabel(b.Unwrap())
	default:
		return fmt.Sprintf("%T", b)
	}
}

// RunID identifies this run in logs.
func (n *Notebook) RunID() string {
	return n.runID
}

// Name returns the run name.
func (n *Notebook) Name() string {
	return n.run.Name()
}

// StartTime returns the UTC time the notebook was created.
func (n *Notebook) StartTime() time.Time {
	return n.start
}

// Backend returns the backend records are written to.
func (n *Notebook) Backend() store.Backend {
	return n.backend
}

// Record stores value under key. A later write to the same key wins.
func (n *Notebook) Record(key string, value any) error {
	return n.RecordAll(map[string]any{key: value})
}

// RecordAll merges values into the run's data. If any key is invalid, nothing
// is merged.
func (n *Notebook) RecordAll(values map[string]any) error {
	normalized := make(map[string]any, len(values))
	for k, v := range values {
		key, err := normalizeKey(k)
		if err != nil {
			return err
		}
		normalized[key] = v
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.finished {
		return errs.New(errs.Usage, "record", "run %q already finished", n.run.Name())
	}
	maps.Copy(n.data, normalized)
	return nil
}

// normalizeKey applies NFKC and checks the result is identifier-like:
// a letter or underscore followed by letters, digits, combining marks or
// connector punctuation.
func normalizeKey(key string) (string, error) {
	k := norm.NFKC.String(key)
	if k == "" {
		return "", errs.New(errs.Usage, "record", "empty key")
	}
	for i, r := range k {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)):
		default:
			return "", errs.New(errs.Usage, "record", "key %q is not an identifier", key)
		}
	}
	return k, nil
}

// Data returns a copy of the data recorded so far.
func (n *Notebook) Data() map[string]any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return maps.Clone(n.data)
}

// Parameters returns the run's declared inputs, excluding the notebook
// itself and any run context values.
func (n *Notebook) Parameters() map[string]any {
	params := map[string]any{}
	for k, v := range n.run.DeclaredParameters() {
		switch v.(type) {
		case *Notebook, RunContext:
			continue
		}
		params[k] = v
	}
	return params
}

// Outcome returns the derived outcome, or not_reported until Finish has
// derived one.
func (n *Notebook) Outcome() outcome.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.built {
		return outcome.OutcomeNotReported
	}
	return n.result.Outcome
}

// Result returns the record built by Finish. ok is false until Finish has
// derived an outcome.
func (n *Notebook) Result() (record.Experiment, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.result, n.built
}

// Finish derives the outcome, builds the record and writes it to the
// backend. It must be called exactly once, after every phase has reported.
// Write failures are returned as-is and never retried.
func (n *Notebook) Finish(ctx context.Context) (err error) {
	n.mu.Lock()
	if n.finished {
		n.mu.Unlock()
		return errs.New(errs.Usage, "finish", "run %q already finished", n.run.Name())
	}
	n.finished = true
	data := maps.Clone(n.data)
	n.mu.Unlock()

	if n.owned {
		defer func() {
			if cerr := store.Close(n.backend); cerr != nil {
				err = errors.Join(err, errs.Wrap(errs.Storage, "finish: close backend", cerr))
			}
		}()
	}

	reports, ok := n.run.PhaseReports()
	if !ok {
		return errs.New(errs.Usage, "finish", "no phase reports for %q: reporting hook not attached", n.run.Name())
	}

	o, err := outcome.Derive(reports)
	if err != nil {
		return err
	}

	exp := record.New(n.run.Name(), n.start, n.now(), o, n.Parameters(), data)

	n.mu.Lock()
	n.result, n.built = exp, true
	n.mu.Unlock()

	if err := n.backend.RecordExperiment(ctx, exp); err != nil {
		n.logger.Error("record failed",
			"run_id", n.runID,
			"name", exp.Name,
			"error", err,
		)
		if errs.KindOf(err) == "" {
			return errs.Wrap(errs.Storage, "finish", err)
		}
		return fmt.Errorf("finish %s: %w", exp.Name, err)
	}

	n.logger.Info("experiment recorded",
		"run_id", n.runID,
		"name", exp.Name,
		"outcome", string(exp.Outcome),
		"duration", exp.Duration(),
	)
	return nil
}

// Close abandons an unfinished run and releases a backend the notebook
// opened itself. Nothing is recorded. It is a no-op after Finish.
func (n *Notebook) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.finished {
		return nil
	}
	n.finished = true
	if !n.owned {
		return nil
	}
	return store.Close(n.backend)
}

var _ io.Closer = (*Notebook)(nil)
