// Package harness runs experiment cases in process and feeds their phase
// reports to a notebook.
//
// A Case is three closures (setup, act, teardown) plus declared parameters.
// The Runner executes them in order, records a (phase, result) report after
// each one on the case's Run, and finishes the case's notebook, which
// derives the outcome and persists the record.
//
// # Phase Results
//
// A phase function returning:
//
//   - nil: passed
//   - an error wrapping ErrSkip (see Skipf): skipped
//   - any other error, or panicking: failed
//
// Act only runs when setup passed. Teardown always runs.
//
// # Parametrization
//
// Parametrize expands one case into one case per value, named
// "base[value]", with the value bound to a declared parameter:
//
//	cases := harness.Parametrize(harness.Case{Name: "test_square", Act: act}, "x", -1, 0, 1)
//
// This is not a test discovery engine; callers build the case list.
package harness
