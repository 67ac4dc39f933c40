// Package record defines the immutable result of one experiment run.
package record

import (
	"maps"
	"time"

	"github.com/roach88/notebook/internal/outcome"
)

// Experiment is the persisted record of one run.
//
// Values are produced once per run by the notebook and handed to storage
// backends by value. New copies the maps it receives, so later writes to
// the caller's maps do not leak into a constructed record.
type Experiment struct {
	// Name is the fully qualified, unique name of the run.
	Name string

	// StartTime and EndTime are UTC. EndTime is never before StartTime.
	StartTime time.Time
	EndTime   time.Time

	Outcome outcome.Outcome

	// Parameters holds the declared inputs of the run. Never nil.
	Parameters map[string]any

	// Data holds values recorded during the run. Never nil.
	Data map[string]any
}

// New builds an Experiment. Times are converted to UTC; a zero end time, or
// one before start, is replaced by the start time.
func New(name string, start, end time.Time, o outcome.Outcome, params, data map[string]any) Experiment {
	start = start.UTC()
	end = end.UTC()
	if end.IsZero() || end.Before(start) {
		end = start
	}
	return Experiment{
		Name:       name,
		StartTime:  start,
		EndTime:    end,
		Outcome:    o,
		Parameters: cloneMap(params),
		Data:       cloneMap(data),
	}
}

// Duration returns the wall-clock time the run took.
func (e Experiment) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}
