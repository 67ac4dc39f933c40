package harness

import (
	"maps"
	"sync"

	"github.com/roach88/notebook/internal/outcome"
)

// Run is the capture hook for one case. The runner reports each phase on it
// and the case's notebook reads the reports back when it finishes.
// Run implements notebook.RunContext.
type Run struct {
	name   string
	params map[string]any

	mu      sync.Mutex
	reports outcome.Reports
}

// NewRun creates the capture hook for a run named name with the given
// declared parameters.
func NewRun(name string, params map[string]any) *Run {
	return &Run{
		name:    name,
		params:  maps.Clone(params),
		reports: outcome.Reports{},
	}
}

// Name returns the run name.
func (r *Run) Name() string {
	return r.name
}

// DeclaredParameters returns a copy of the declared parameters.
func (r *Run) DeclaredParameters() map[string]any {
	if r.params == nil {
		return map[string]any{}
	}
	return maps.Clone(r.params)
}

// Report stores the result of phase, replacing any earlier report for it.
func (r *Run) Report(phase outcome.Phase, result outcome.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[phase] = result
}

// PhaseReports returns a copy of the reports collected so far.
func (r *Run) PhaseReports() (outcome.Reports, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.reports), true
}
