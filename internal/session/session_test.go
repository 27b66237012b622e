package session

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"skoll/internal/config"
	"skoll/internal/schedule"
)

// --- Setup & Helpers ---

func testRng() *rand.Rand {
	return rand.New(rand.NewSource(7))
}

// smokeConfig is a short, deterministic session: guaranteed-crossing
// fixed schedules and giveaway traders, so trades must print.
func smokeConfig() config.Config {
	return config.Config{
		BatchInterval:        2,
		SessionLength:        0.5,
		VirtualSessionLength: 600,
		StepMode:             "fixed",
		TimeMode:             "drip-fixed",
		Interval:             20,
		NumTrials:            1,
	}
}

func smokeSchedule(cfg config.Config) schedule.Schedule {
	return schedule.Schedule{
		Supply: []schedule.Phase{{
			From: 0, To: cfg.VirtualSessionLength,
			Ranges:   []schedule.Range{{Min: 100, Max: 100}},
			StepMode: cfg.StepMode,
		}},
		Demand: []schedule.Phase{{
			From: 0, To: cfg.VirtualSessionLength,
			Ranges:   []schedule.Range{{Min: 200, Max: 200}},
			StepMode: cfg.StepMode,
		}},
		Interval: cfg.Interval,
		TimeMode: cfg.TimeMode,
	}
}

// --- Tests ---

func TestPopulateMarket(t *testing.T) {
	spec := Population{
		Buyers:  []TypeCount{{Type: "GVWY", N: 2}, {Type: "ZIC", N: 1}},
		Sellers: []TypeCount{{Type: "GVWY", N: 2}},
	}

	traders, nBuyers, nSellers, err := PopulateMarket(spec, false, testRng())
	assert.NoError(t, err)
	assert.Equal(t, 3, nBuyers)
	assert.Equal(t, 2, nSellers)
	assert.Len(t, traders, 5)

	for _, tid := range []string{"B00", "B01", "B02", "S00", "S01"} {
		ag, ok := traders[tid]
		assert.True(t, ok, "trader %s should exist", tid)
		assert.Equal(t, tid, ag.ID())
	}
}

func TestPopulateMarketNeedsBothSides(t *testing.T) {
	_, _, _, err := PopulateMarket(Population{
		Sellers: []TypeCount{{Type: "GVWY", N: 2}},
	}, false, testRng())
	assert.ErrorIs(t, err, ErrNoBuyers)

	_, _, _, err = PopulateMarket(Population{
		Buyers: []TypeCount{{Type: "GVWY", N: 2}},
	}, false, testRng())
	assert.ErrorIs(t, err, ErrNoSellers)
}

func TestPopulateMarketUnknownType(t *testing.T) {
	_, _, _, err := PopulateMarket(Population{
		Buyers:  []TypeCount{{Type: "NOPE", N: 1}},
		Sellers: []TypeCount{{Type: "GVWY", N: 1}},
	}, false, testRng())
	assert.Error(t, err)
}

func TestSessionSmoke(t *testing.T) {
	// 1. Setup: buyers limited at 200, sellers at 100, so every
	// clearing crosses at 150.
	cfg := smokeConfig()
	spec := Population{
		Buyers:  []TypeCount{{Type: "GVWY", N: 2}},
		Sellers: []TypeCount{{Type: "GVWY", N: 2}},
	}
	sess, err := New("trial0000001", cfg, spec, smokeSchedule(cfg), testRng())
	assert.NoError(t, err)

	// 2. Run to completion.
	assert.NoError(t, sess.Run())

	// 3. The tape printed trades and both sides banked profit.
	assert.Greater(t, sess.Exchange().TapeLen(), 0, "a crossed market must trade")
	total := 0.0
	for _, ag := range sess.Traders() {
		assert.GreaterOrEqual(t, ag.Balance(), 0.0)
		total += ag.Balance()
	}
	assert.Greater(t, total, 0.0)

	var tape strings.Builder
	assert.NoError(t, sess.Exchange().DumpTape(&tape, false))
	for _, line := range strings.Split(strings.TrimSpace(tape.String()), "\n") {
		assert.True(t, strings.HasSuffix(line, ", 150"), "fills should print at the equilibrium: %q", line)
	}
}
