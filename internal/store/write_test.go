package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/notebook/internal/errs"
	"github.com/roach88/notebook/internal/outcome"
	"github.com/roach88/notebook/internal/serde"
)

type unregistered struct{ v int }

func TestRecordExperiment_StoresColumns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	exp := createTestExperiment("demo::test_square[2]", 2)
	require.NoError(t, s.RecordExperiment(ctx, exp))

	var name, start, end, o, params, data string
	err := s.db.QueryRow(`
		SELECT name, start_time, end_time, outcome, parameters, data
		FROM experiments
	`).Scan(&name, &start, &end, &o, &params, &data)
	require.NoError(t, err)

	assert.Equal(t, "demo::test_square[2]", name)
	assert.Equal(t, "2024-01-02T03:04:05Z", start)
	assert.Equal(t, "2024-01-02T03:04:06.5Z", end)
	assert.Equal(t, "passed", o)
	assert.Equal(t, `{"x":2}`, params)
	assert.Contains(t, data, `{"__data__":"2024-01-02T03:04:05Z","__typename__":"datetime"}`)
	assert.Contains(t, data, `"y":4`)
}

func TestRecordExperiment_AllOutcomes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, o := range outcome.All() {
		exp := createTestExperiment("case_"+string(o), 1)
		exp.Outcome = o
		require.NoError(t, s.RecordExperiment(ctx, exp), "outcome %s", o)
	}

	got, err := s.ListAllExperiments(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(outcome.All()))
	for i, o := range outcome.All() {
		assert.Equal(t, o, got[i].Outcome)
	}
}

// A write that fails for any reason leaves no row behind.
func TestRecordExperiment_FailureLeavesNoPartialRow(t *testing.T) {
	ctx := context.Background()

	t.Run("constraint violation", func(t *testing.T) {
		s := createTestStore(t)
		require.NoError(t, s.RecordExperiment(ctx, createTestExperiment("first", 1)))

		bad := createTestExperiment("bad", 2)
		bad.Outcome = "exploded"
		err := s.RecordExperiment(ctx, bad)
		require.Error(t, err)
		assert.True(t, errs.IsStorage(err), "got %v", err)

		n, err := s.CountExperiments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("canceled context", func(t *testing.T) {
		s := createTestStore(t)
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		err := s.RecordExperiment(canceled, createTestExperiment("late", 1))
		require.Error(t, err)
		assert.True(t, errs.IsStorage(err), "got %v", err)

		n, err := s.CountExperiments(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("unencodable value under strict policy", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "strict.db")
		s, err := OpenSQL(path, serde.NewCodec(nil, serde.StrictUnknown))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		exp := createTestExperiment("strict", 1)
		exp.Data["opaque"] = unregistered{v: 1}
		err = s.RecordExperiment(ctx, exp)
		require.Error(t, err)
		assert.True(t, errs.IsSerialization(err), "got %v", err)

		n, err := s.CountExperiments(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestRecordExperiment_SkipPolicyStoresNull(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	exp := createTestExperiment("skip", 1)
	exp.Data["opaque"] = unregistered{v: 1}
	require.NoError(t, s.RecordExperiment(ctx, exp))

	got, err := s.ListAllExperiments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	v, ok := got[0].Data["opaque"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

// Independent handles on one database file may write concurrently.
func TestRecordExperiment_ConcurrentHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()
	const writers = 8
	const perWriter = 5

	handles := make([]*SQLStore, writers)
	for i := range handles {
		s, err := OpenSQL(path, nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		handles[i] = s
	}

	var g errgroup.Group
	for i, s := range handles {
		i, s := i, s
		g.Go(func() error {
			for j := 0; j < perWriter; j++ {
				name := fmt.Sprintf("writer%d::case[%d]", i, j)
				if err := s.RecordExperiment(ctx, createTestExperiment(name, int64(j))); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	n, err := handles[0].CountExperiments(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, n)
}
