package store

import (
	"context"
	"io"

	"github.com/roach88/notebook/internal/record"
)

// Backend persists finished experiment records.
type Backend interface {
	// RecordExperiment durably persists one record. A failed call leaves
	// no partial record behind.
	RecordExperiment(ctx context.Context, exp record.Experiment) error
}

// Lister is implemented by backends that can read their records back.
type Lister interface {
	// ListAllExperiments returns every record in insertion order.
	ListAllExperiments(ctx context.Context) ([]record.Experiment, error)
}

// Close releases b if it holds resources.
func Close(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
