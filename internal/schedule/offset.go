package schedule

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// SinusoidalOffset ramps the equilibrium price with a slow sine wave
// on top of a linear drift.
func SinusoidalOffset(t float64) int {
	pi2 := math.Pi * 2
	c := math.Pi * 3000
	wavelength := t / c
	gradient := 100 * t / (c / pi2)
	amplitude := 100 * t / (c / pi2)
	offset := gradient + amplitude*math.Sin(wavelength*t)
	return int(math.Round(offset))
}

// OffsetEvent is one step of a piecewise-constant offset series,
// keyed by the fraction of the session elapsed.
type OffsetEvent struct {
	Fraction float64
	Offset   int
}

// EventOffset replays a normalized price series over the session: at
// virtual time t the offset is the last event whose fraction has
// passed.
func EventOffset(events []OffsetEvent, sessionLength float64) OffsetFunc {
	return func(t float64) int {
		elapsed := t / sessionLength
		offset := 0
		for _, ev := range events {
			offset = ev.Offset
			if elapsed < ev.Fraction {
				break
			}
		}
		return offset
	}
}

// offsetScale maps the normalized real-world price range onto sim
// price units.
const offsetScale = 80.0

// LoadOffsetEvents reads a real-world price series from a CSV file
// with a header row and (_, HH:mm:ss, price) columns, normalizing
// times to session fractions and prices onto the offset scale.
func LoadOffsetEvents(path string) ([]OffsetEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: no price events", path)
	}

	type rawEvent struct {
		sinceStart float64
		price      float64
	}
	var (
		events     []rawEvent
		firstTime  time.Time
		haveFirst  bool
		minPrice   float64
		maxPrice   float64
		havePrices bool
	)
	for _, row := range rows[1:] {
		if len(row) < 3 {
			return nil, fmt.Errorf("%s: short row %v", path, row)
		}
		ts, err := time.Parse("15:04:05", row[1])
		if err != nil {
			return nil, fmt.Errorf("%s: bad timestamp %q: %w", path, row[1], err)
		}
		price, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad price %q: %w", path, row[2], err)
		}
		if !haveFirst {
			firstTime = ts
			haveFirst = true
		}
		if !havePrices || price < minPrice {
			minPrice = price
		}
		if !havePrices || price > maxPrice {
			maxPrice = price
		}
		havePrices = true
		events = append(events, rawEvent{sinceStart: ts.Sub(firstTime).Seconds(), price: price})
	}

	priceRange := maxPrice - minPrice
	endTime := events[len(events)-1].sinceStart
	out := make([]OffsetEvent, 0, len(events))
	for _, ev := range events {
		normld := 0.0
		if priceRange > 0 {
			normld = (ev.price - minPrice) / priceRange
		}
		normld = math.Max(0, math.Min(normld, 1))
		frac := 0.0
		if endTime > 0 {
			frac = ev.sinceStart / endTime
		}
		out = append(out, OffsetEvent{
			Fraction: frac,
			Offset:   int(math.Round(normld * offsetScale)),
		})
	}
	return out, nil
}
