package harness

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notebook/internal/config"
	"github.com/roach88/notebook/internal/errs"
	"github.com/roach88/notebook/internal/notebook"
	"github.com/roach88/notebook/internal/outcome"
	"github.com/roach88/notebook/internal/record"
	"github.com/roach88/notebook/internal/store"
)

// createTestStore opens a file-backed SQL store for one test.
func createTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.OpenSQL(filepath.Join(t.TempDir(), "experiments.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func recordY(y any) PhaseFunc {
	return func(_ context.Context, nb *notebook.Notebook) error {
		return nb.Record("y", y)
	}
}

func failWith(err error) PhaseFunc {
	return func(context.Context, *notebook.Notebook) error { return err }
}

// Three parametrized runs of one test produce three records with distinct
// names and the declared values.
func TestExecute_Parametrized(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	cases := Parametrize(Case{
		Name: "test_param",
		Act: func(_ context.Context, nb *notebook.Notebook) error {
			return nb.Record("double", nb.Parameters()["a"].(int)*2)
		},
	}, "a", 1, 2, 3)

	results, err := NewRunner(Options{Backend: s}).Execute(ctx, cases...)
	require.NoError(t, err)
	require.Len(t, results, 3)

	got, err := s.ListAllExperiments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	names := map[string]bool{}
	values := map[int64]bool{}
	for _, exp := range got {
		names[exp.Name] = true
		values[exp.Parameters["a"].(int64)] = true
		assert.Equal(t, outcome.OutcomePassed, exp.Outcome)
		assert.Equal(t, exp.Parameters["a"].(int64)*2, exp.Data["double"])
	}
	assert.Len(t, names, 3)
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, values)
}

func TestExecute_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		c       Case
		want    outcome.Outcome
		reports outcome.Reports
	}{
		{
			name:    "passed",
			c:       Case{Act: recordY(1)},
			want:    outcome.OutcomePassed,
			reports: outcome.Reports{outcome.Setup: outcome.Passed, outcome.Act: outcome.Passed, outcome.Teardown: outcome.Passed},
		},
		{
			name:    "act fails",
			c:       Case{Act: failWith(errors.New("assertion failed"))},
			want:    outcome.OutcomeFailed,
			reports: outcome.Reports{outcome.Setup: outcome.Passed, outcome.Act: outcome.Failed, outcome.Teardown: outcome.Passed},
		},
		{
			name: "act panics",
			c: Case{Act: func(context.Context, *notebook.Notebook) error {
				var m map[string]int
				m["boom"]++
				return nil
			}},
			want:    outcome.OutcomeFailed,
			reports: outcome.Reports{outcome.Setup: outcome.Passed, outcome.Act: outcome.Failed, outcome.Teardown: outcome.Passed},
		},
		{
			name:    "act skips",
			c:       Case{Act: failWith(Skipf("not today"))},
			want:    outcome.OutcomeSkipped,
			reports: outcome.Reports{outcome.Setup: outcome.Passed, outcome.Act: outcome.Skipped, outcome.Teardown: outcome.Passed},
		},
		{
			name:    "setup fails",
			c:       Case{Setup: failWith(errors.New("no fixture")), Act: recordY(1)},
			want:    outcome.OutcomeError,
			reports: outcome.Reports{outcome.Setup: outcome.Failed, outcome.Teardown: outcome.Passed},
		},
		{
			// setup skip never reaches act, so the outcome is not_reported
			name:    "setup skips",
			c:       Case{Setup: failWith(ErrSkip), Act: recordY(1)},
			want:    outcome.OutcomeNotReported,
			reports: outcome.Reports{outcome.Setup: outcome.Skipped, outcome.Teardown: outcome.Passed},
		},
		{
			name:    "teardown fails",
			c:       Case{Act: recordY(1), Teardown: failWith(errors.New("leak"))},
			want:    outcome.OutcomePassed,
			reports: outcome.Reports{outcome.Setup: outcome.Passed, outcome.Act: outcome.Passed, outcome.Teardown: outcome.Failed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			tt.c.Name = "test_" + tt.name

			results, err := NewRunner(Options{Backend: s}).Execute(context.Background(), tt.c)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.want, results[0].Outcome)
			assert.Equal(t, tt.reports, results[0].Reports)

			got, err := s.ListAllExperiments(context.Background())
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Outcome)
		})
	}
}

func TestExecute_ActSkippedAfterSetupFailure(t *testing.T) {
	s := createTestStore(t)
	called := false
	c := Case{
		Name:  "guarded",
		Setup: failWith(errors.New("broken")),
		Act: func(context.Context, *notebook.Notebook) error {
			called = true
			return nil
		},
	}

	results, err := NewRunner(Options{Backend: s}).Execute(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, called)
	assert.ErrorContains(t, results[0].PhaseErrors[outcome.Setup], "broken")
}

func TestExecute_CaseBackendOverride(t *testing.T) {
	shared := createTestStore(t)
	own, err := store.OpenLog(filepath.Join(t.TempDir(), "own.jsonl"), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = NewRunner(Options{Backend: shared}).Execute(ctx,
		Case{Name: "to_shared", Act: recordY(1)},
		Case{Name: "to_own", Act: recordY(2), Backend: own},
	)
	require.NoError(t, err)

	sharedRecs, err := shared.ListAllExperiments(ctx)
	require.NoError(t, err)
	ownRecs, err := own.ListAllExperiments(ctx)
	require.NoError(t, err)

	require.Len(t, sharedRecs, 1)
	require.Len(t, ownRecs, 1)
	assert.Equal(t, "to_shared", sharedRecs[0].Name)
	assert.Equal(t, "to_own", ownRecs[0].Name)
}

func TestExecute_ConfiguredBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configured.db")
	cfg := config.Default()
	cfg.DatabaseURI = "sqlite:///" + path
	ctx := context.Background()

	_, err := NewRunner(Options{Config: &cfg}).Execute(ctx,
		Case{Name: "a", Act: recordY(1)},
		Case{Name: "b", Act: recordY(2)},
	)
	require.NoError(t, err)

	s, err := store.OpenSQL(path, nil)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.CountExperiments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// failingBackend rejects every record.
type failingBackend struct{}

func (failingBackend) RecordExperiment(context.Context, record.Experiment) error {
	return errs.New(errs.Storage, "insert", "database is locked")
}

func TestExecute_StorageFailureSurfaces(t *testing.T) {
	results, err := NewRunner(Options{Backend: failingBackend{}}).Execute(context.Background(),
		Case{Name: "first", Act: recordY(1)},
		Case{Name: "second", Act: recordY(2)},
	)
	require.Error(t, err)
	assert.True(t, errs.IsStorage(err))
	assert.ErrorContains(t, err, "case first")
	assert.ErrorContains(t, err, "case second")

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Error(t, res.Err)
		assert.Equal(t, outcome.OutcomePassed, res.Record.Outcome, "record was built before the write failed")
	}
}

func TestExecute_NotebookCreationFails(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURI = "oracle://nowhere"

	results, err := NewRunner(Options{Config: &cfg}).Execute(context.Background(), Case{Name: "x"})
	require.Error(t, err)
	assert.Empty(t, results)
}
