package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notebook/internal/ndarray"
	"github.com/roach88/notebook/internal/outcome"
	"github.com/roach88/notebook/internal/record"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQL(path, nil)
	if err != nil {
		t.Fatalf("OpenSQL() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testStart is the fixed start time used by createTestExperiment.
var testStart = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestExperiment creates a record with one parameter and registered
// values in its data.
func createTestExperiment(name string, x int64) record.Experiment {
	return record.New(
		name,
		testStart,
		testStart.Add(1500*time.Millisecond),
		outcome.OutcomePassed,
		map[string]any{"x": x},
		map[string]any{
			"y":       x * x,
			"at":      testStart,
			"samples": ndarray.Arange(3),
		},
	)
}

// assertRoundTrip checks that got is want after a trip through a backend.
func assertRoundTrip(t *testing.T, want, got record.Experiment) {
	t.Helper()
	assert.Equal(t, want.Name, got.Name)
	assert.True(t, want.StartTime.Equal(got.StartTime), "start %v != %v", want.StartTime, got.StartTime)
	assert.True(t, want.EndTime.Equal(got.EndTime), "end %v != %v", want.EndTime, got.EndTime)
	assert.Equal(t, time.UTC, got.StartTime.Location())
	assert.Equal(t, want.Outcome, got.Outcome)
	assert.Equal(t, want.Parameters, got.Parameters)

	require.Len(t, got.Data, len(want.Data))
	for k, v := range want.Data {
		switch w := v.(type) {
		case *ndarray.Array:
			g, ok := got.Data[k].(*ndarray.Array)
			require.True(t, ok, "data[%q] is %T, want *ndarray.Array", k, got.Data[k])
			assert.True(t, w.Equal(g), "data[%q]: %v != %v", k, w, g)
		case time.Time:
			g, ok := got.Data[k].(time.Time)
			require.True(t, ok, "data[%q] is %T, want time.Time", k, got.Data[k])
			assert.True(t, w.Equal(g), "data[%q]: %v != %v", k, w, g)
		default:
			assert.Equal(t, v, got.Data[k], "data[%q]", k)
		}
	}
}
