package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/notebook/internal/outcome"
)

func TestRun_ReportsAreVisible(t *testing.T) {
	r := NewRun("case", map[string]any{"a": 1})

	reports, ok := r.PhaseReports()
	assert.True(t, ok)
	assert.Empty(t, reports)

	r.Report(outcome.Setup, outcome.Passed)
	r.Report(outcome.Act, outcome.Failed)
	r.Report(outcome.Act, outcome.Passed)

	reports, _ = r.PhaseReports()
	assert.Equal(t, outcome.Reports{outcome.Setup: outcome.Passed, outcome.Act: outcome.Passed}, reports)
}

func TestRun_ParametersAreCopied(t *testing.T) {
	params := map[string]any{"a": 1}
	r := NewRun("case", params)
	params["a"] = 2

	got := r.DeclaredParameters()
	assert.Equal(t, map[string]any{"a": 1}, got)
	got["b"] = 3
	assert.Equal(t, map[string]any{"a": 1}, r.DeclaredParameters())

	assert.Equal(t, map[string]any{}, NewRun("bare", nil).DeclaredParameters())
}

func TestParametrize(t *testing.T) {
	base := Case{Name: "test_thing", Params: map[string]any{"fixed": true}, Tags: []string{"slow"}}
	cases := Parametrize(base, "a", 1, "two", 3.5)

	names := make([]string, len(cases))
	for i, c := range cases {
		names[i] = c.Name
		assert.Equal(t, true, c.Params["fixed"])
		assert.True(t, c.HasTag("slow"))
	}
	assert.Equal(t, []string{"test_thing[1]", "test_thing[two]", "test_thing[3.5]"}, names)
	assert.Equal(t, 1, cases[0].Params["a"])
	assert.Equal(t, "two", cases[1].Params["a"])
	assert.NotContains(t, base.Params, "a")
}

func TestPhaseResult(t *testing.T) {
	assert.Equal(t, outcome.Passed, phaseResult(nil))
	assert.Equal(t, outcome.Skipped, phaseResult(Skipf("no gpu on %s", "ci")))
	assert.Equal(t, outcome.Skipped, phaseResult(ErrSkip))
	assert.Equal(t, outcome.Failed, phaseResult(assert.AnError))
}
