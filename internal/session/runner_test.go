package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunTrialsRejectsInvalidPopulation(t *testing.T) {
	// A population with no buyers can never build a session; the
	// runner must return the error instead of retrying forever.
	cfg := smokeConfig()
	var stats strings.Builder
	r := &Runner{Cfg: cfg, TapePath: filepath.Join(t.TempDir(), "tape.csv"), StatsW: &stats, Rng: testRng()}

	err := r.RunTrials(Population{
		Sellers: []TypeCount{{Type: "GVWY", N: 1}},
	}, smokeSchedule(cfg))
	assert.ErrorIs(t, err, ErrNoBuyers)
	assert.Empty(t, stats.String())
}

func TestRunTrialsWritesStatsAndTape(t *testing.T) {
	cfg := smokeConfig()
	tapePath := filepath.Join(t.TempDir(), "tape.csv")
	var stats strings.Builder
	r := &Runner{Cfg: cfg, TapePath: tapePath, StatsW: &stats, Rng: testRng()}
	spec := Population{
		Buyers:  []TypeCount{{Type: "GVWY", N: 2}},
		Sellers: []TypeCount{{Type: "GVWY", N: 2}},
	}

	assert.NoError(t, r.RunTrials(spec, smokeSchedule(cfg)))
	assert.True(t, strings.HasPrefix(stats.String(), "trial0000001, GVWY, "),
		"one stats row keyed by the trial id: %q", stats.String())

	tape, err := os.ReadFile(tapePath)
	assert.NoError(t, err)
	assert.NotEmpty(t, tape, "the session's trades should be appended to the tape file")
}
