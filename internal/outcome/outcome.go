// Package outcome derives a run's terminal outcome from its phase reports.
//
// A runner reports one Result per lifecycle Phase as each phase finishes.
// Derive reduces the collected Reports to a single Outcome. Only the setup
// and act phases are consulted; teardown never changes the outcome.
package outcome

import (
	"fmt"

	"github.com/roach88/notebook/internal/errs"
)

// Phase is one step of a run's lifecycle.
type Phase string

const (
	// Setup prepares the run's inputs.
	Setup Phase = "setup"

	// Act executes the experiment body.
	Act Phase = "act"

	// Teardown releases the run's resources.
	Teardown Phase = "teardown"
)

// Result is the report a runner emits for a single phase.
type Result string

const (
	// Passed means the phase completed normally.
	Passed Result = "passed"

	// Failed means the phase raised a failure.
	Failed Result = "failed"

	// Skipped means the runner skipped the phase.
	Skipped Result = "skipped"
)

// Outcome is the terminal classification of a run.
type Outcome string

const (
	// OutcomePassed: the experiment body passed.
	OutcomePassed Outcome = "passed"

	// OutcomeFailed: the experiment body failed.
	OutcomeFailed Outcome = "failed"

	// OutcomeSkipped: the experiment body was skipped.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeError: setup failed, so the body never ran meaningfully.
	OutcomeError Outcome = "error"

	// OutcomeNotReported: the act phase never produced a result.
	OutcomeNotReported Outcome = "not_reported"
)

// Reports maps each phase that has finished to its result.
type Reports map[Phase]Result

// ParsePhase converts a wire name into a Phase.
// "call" is accepted as an alias for Act.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "setup":
		return Setup, nil
	case "act", "call":
		return Act, nil
	case "teardown":
		return Teardown, nil
	default:
		return "", fmt.Errorf("unknown phase %q", s)
	}
}

// ParseResult converts a wire name into a Result.
func ParseResult(s string) (Result, error) {
	switch r := Result(s); r {
	case Passed, Failed, Skipped:
		return r, nil
	default:
		return "", fmt.Errorf("unknown phase result %q", s)
	}
}

// Parse converts a stored outcome name into an Outcome.
func Parse(s string) (Outcome, error) {
	o := Outcome(s)
	if !o.Valid() {
		return "", fmt.Errorf("unknown outcome %q", s)
	}
	return o, nil
}

// Valid reports whether o is one of the five outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePassed, OutcomeFailed, OutcomeSkipped, OutcomeError, OutcomeNotReported:
		return true
	}
	return false
}

// String returns the stored name of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// All returns every outcome in declaration order.
func All() []Outcome {
	return []Outcome{OutcomePassed, OutcomeFailed, OutcomeSkipped, OutcomeError, OutcomeNotReported}
}

// Derive reduces reports to a terminal outcome.
//
// Rules, first match wins:
//  1. setup failed → OutcomeError
//  2. no act report → OutcomeNotReported
//  3. act result, mapped one to one
//
// Rule 2 does not distinguish a skipped setup from a runner that never
// reported the act phase; both yield OutcomeNotReported.
//
// A missing setup report means the capture hook was not installed and is
// returned as a Derivation error.
func Derive(reports Reports) (Outcome, error) {
	setup, ok := reports[Setup]
	if !ok {
		return "", errs.New(errs.Derivation, "derive outcome", "no %s report: capture hook not installed", Setup)
	}
	if setup == Failed {
		return OutcomeError, nil
	}

	act, ok := reports[Act]
	if !ok {
		return OutcomeNotReported, nil
	}

	switch act {
	case Passed:
		return OutcomePassed, nil
	case Failed:
		return OutcomeFailed, nil
	case Skipped:
		return OutcomeSkipped, nil
	default:
		return "", errs.New(errs.Derivation, "derive outcome", "unknown %s result %q", Act, act)
	}
}
