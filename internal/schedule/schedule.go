// Package schedule generates the customer orders that drive a
// session: limit prices drawn from supply/demand ranges and issue
// times spread across the replenishment interval.
package schedule

import (
	"errors"
	"fmt"
	"math/rand"

	"skoll/internal/config"
)

var (
	ErrUnknownStepMode = errors.New("unknown stepmode in schedule")
	ErrUnknownTimeMode = errors.New("unknown timemode in schedule")
	ErrNoPhase         = errors.New("time not within any schedule phase")
)

// OffsetFunc shifts a range's bounds as a function of virtual time,
// moving the equilibrium price over the session.
type OffsetFunc func(t float64) int

// Range is one band of limit prices.
type Range struct {
	Min    int
	Max    int
	Offset OffsetFunc
}

// Phase applies a set of ranges over a window of virtual time.
type Phase struct {
	From     float64
	To       float64
	Ranges   []Range
	StepMode string
}

// Schedule is the full order schedule for a session.
type Schedule struct {
	Supply   []Phase
	Demand   []Phase
	Interval int
	TimeMode string
}

// New draws a schedule from the configured range bands. Symmetric
// markets reuse the supply draw for demand.
func New(cfg config.Config, rng *rand.Rand) (Schedule, error) {
	rangeMax := bandDraw(cfg.SupplyMax, rng)
	rangeMin := bandDraw(cfg.SupplyMin, rng)

	offset, err := configuredOffset(cfg)
	if err != nil {
		return Schedule{}, err
	}

	sup := []Phase{{
		From:     0,
		To:       cfg.VirtualSessionLength,
		Ranges:   []Range{{Min: rangeMin, Max: rangeMax, Offset: offset}},
		StepMode: cfg.StepMode,
	}}

	if !cfg.Symmetric {
		rangeMax = bandDraw(cfg.DemandMax, rng)
		rangeMin = bandDraw(cfg.DemandMin, rng)
	}
	dem := []Phase{{
		From:     0,
		To:       cfg.VirtualSessionLength,
		Ranges:   []Range{{Min: rangeMin, Max: rangeMax, Offset: offset}},
		StepMode: cfg.StepMode,
	}}

	return Schedule{
		Supply:   sup,
		Demand:   dem,
		Interval: cfg.Interval,
		TimeMode: cfg.TimeMode,
	}, nil
}

func bandDraw(b config.PriceBand, rng *rand.Rand) int {
	if b.High <= b.Low {
		return b.Low
	}
	return b.Low + rng.Intn(b.High-b.Low)
}

func configuredOffset(cfg config.Config) (OffsetFunc, error) {
	if cfg.UseInputFile {
		events, err := LoadOffsetEvents(cfg.InputFile)
		if err != nil {
			return nil, fmt.Errorf("load offset events: %w", err)
		}
		return EventOffset(events, cfg.VirtualSessionLength), nil
	}
	if cfg.UseOffset {
		return SinusoidalOffset, nil
	}
	return nil, nil
}

// phaseAt picks the phase covering virtual time t.
func phaseAt(t float64, phases []Phase) (Phase, error) {
	for _, p := range phases {
		if p.From <= t && t < p.To {
			return p, nil
		}
	}
	return Phase{}, fmt.Errorf("%w: t=%.2f", ErrNoPhase, t)
}
