package harness

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/notebook/internal/notebook"
	"github.com/roach88/notebook/internal/outcome"
	"github.com/roach88/notebook/internal/record"
	"github.com/roach88/notebook/internal/store"
)

// ErrSkip marks a phase as skipped.
var ErrSkip = errors.New("skipped")

// Skipf returns an error that skips the current phase.
func Skipf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSkip, fmt.Sprintf(format, args...))
}

// PhaseFunc is one phase of a case. A nil PhaseFunc passes.
type PhaseFunc func(ctx context.Context, nb *notebook.Notebook) error

// Case is one experiment run.
type Case struct {
	// Name must be unique among the cases of one Execute call.
	Name string

	// Params are the declared inputs, persisted as the record's parameters.
	Params map[string]any

	Setup    PhaseFunc
	Act      PhaseFunc
	Teardown PhaseFunc

	// Backend overrides the runner's backend for this case.
	Backend store.Backend

	// Tags label the case for selection. They are not persisted.
	Tags []string
}

// HasTag reports whether the case carries tag.
func (c Case) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// Parametrize returns one copy of base per value, named "base[value]",
// with the value bound to the declared parameter key.
func Parametrize(base Case, key string, values ...any) []Case {
	cases := make([]Case, 0, len(values))
	for _, v := range values {
		c := base
		c.Name = fmt.Sprintf("%s[%v]", base.Name, v)
		c.Params = maps.Clone(base.Params)
		if c.Params == nil {
			c.Params = map[string]any{}
		}
		c.Params[key] = v
		c.Tags = slices.Clone(base.Tags)
		cases = append(cases, c)
	}
	return cases
}

// Result is what executing one case produced.
type Result struct {
	Name    string
	Outcome outcome.Outcome
	Reports outcome.Reports

	// Errors returned or raised by each phase that did not pass.
	PhaseErrors map[outcome.Phase]error

	// Record is the record handed to the backend. Zero if Finish failed
	// before building one.
	Record record.Experiment

	// Err is the error Finish returned, if any.
	Err error
}
