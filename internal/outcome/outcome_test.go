package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notebook/internal/errs"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name    string
		reports Reports
		want    Outcome
	}{
		{"setup failed alone", Reports{Setup: Failed}, OutcomeError},
		{"setup failed preempts act", Reports{Setup: Failed, Act: Passed, Teardown: Passed}, OutcomeError},
		{"setup failed preempts skipped act", Reports{Setup: Failed, Act: Skipped}, OutcomeError},
		{"no act report", Reports{Setup: Passed}, OutcomeNotReported},
		{"act passed", Reports{Setup: Passed, Act: Passed}, OutcomePassed},
		{"act failed", Reports{Setup: Passed, Act: Failed}, OutcomeFailed},
		{"act skipped", Reports{Setup: Passed, Act: Skipped}, OutcomeSkipped},
		{"teardown failure ignored", Reports{Setup: Passed, Act: Passed, Teardown: Failed}, OutcomePassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Derive(tt.reports)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// A skipped setup yields not_reported rather than skipped. This pins the
// existing behavior; the two situations are not distinguished.
func TestDerive_SkippedSetupIsNotReported(t *testing.T) {
	got, err := Derive(Reports{Setup: Skipped, Teardown: Passed})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotReported, got)
}

func TestDerive_MissingSetupIsDerivationError(t *testing.T) {
	_, err := Derive(Reports{Act: Passed})
	require.Error(t, err)
	assert.True(t, errs.IsDerivation(err))

	_, err = Derive(nil)
	assert.True(t, errs.IsDerivation(err))
}

func TestDerive_UnknownActResult(t *testing.T) {
	_, err := Derive(Reports{Setup: Passed, Act: Result("exploded")})
	assert.True(t, errs.IsDerivation(err))
}

func TestParsePhase(t *testing.T) {
	for in, want := range map[string]Phase{"setup": Setup, "call": Act, "act": Act, "teardown": Teardown} {
		got, err := ParsePhase(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParsePhase("warmup")
	assert.Error(t, err)
}

func TestParseResult(t *testing.T) {
	got, err := ParseResult("skipped")
	require.NoError(t, err)
	assert.Equal(t, Skipped, got)

	_, err = ParseResult("error")
	assert.Error(t, err)
}

func TestParseOutcome(t *testing.T) {
	for _, o := range All() {
		got, err := Parse(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	_, err := Parse("flaky")
	assert.Error(t, err)
	assert.False(t, Outcome("").Valid())
}
