package schedule

import (
	"fmt"
	"math/rand"

	"skoll/internal/market"
	"skoll/internal/trader"
)

// CustomerOrders advances the pending order set at virtual time now.
// With nothing pending it generates a fresh set of one order per
// trader, issue times spread over the interval. Otherwise it releases
// every pending order whose issue time has passed, assigning it to
// its trader; traders that still have a live quote are returned as
// kill requests. Returns the new pending set, the kill list and the
// next free coid.
func (s Schedule) CustomerOrders(now float64, coid int, traders map[string]trader.Agent,
	nBuyers, nSellers int, pending []market.Order, verbose bool, rng *rand.Rand) ([]market.Order, []string, int, error) {

	var kills []string

	if len(pending) == 0 {
		var newPending []market.Order

		issueTimes, err := issueTimesFor(nBuyers, s.TimeMode, s.Interval, true, true, rng)
		if err != nil {
			return nil, nil, coid, err
		}
		phase, err := phaseAt(now, s.Demand)
		if err != nil {
			return nil, nil, coid, err
		}
		for t := 0; t < nBuyers; t++ {
			issueTime := now + issueTimes[t]
			price, err := orderPrice(t, phase, nBuyers, issueTime, rng)
			if err != nil {
				return nil, nil, coid, err
			}
			newPending = append(newPending, market.Order{
				TID:   fmt.Sprintf("B%02d", t),
				Side:  market.Bid,
				Price: price,
				Qty:   1,
				Time:  issueTime,
				Coid:  coid,
				Toid:  -3,
			})
			coid++
		}

		issueTimes, err = issueTimesFor(nSellers, s.TimeMode, s.Interval, true, true, rng)
		if err != nil {
			return nil, nil, coid, err
		}
		phase, err = phaseAt(now, s.Supply)
		if err != nil {
			return nil, nil, coid, err
		}
		for t := 0; t < nSellers; t++ {
			issueTime := now + issueTimes[t]
			price, err := orderPrice(t, phase, nSellers, issueTime, rng)
			if err != nil {
				return nil, nil, coid, err
			}
			newPending = append(newPending, market.Order{
				TID:   fmt.Sprintf("S%02d", t),
				Side:  market.Ask,
				Price: price,
				Qty:   1,
				Time:  issueTime,
				Coid:  coid,
				Toid:  -3,
			})
			coid++
		}
		return newPending, nil, coid, nil
	}

	var stillPending []market.Order
	for _, o := range pending {
		if o.Time >= now {
			stillPending = append(stillPending, o)
			continue
		}
		ag, ok := traders[o.TID]
		if !ok {
			return nil, nil, coid, fmt.Errorf("customer order for unknown trader %q", o.TID)
		}
		if ag.AddOrder(o, verbose) == trader.CancelPrevious {
			kills = append(kills, o.TID)
		}
	}
	return stillPending, kills, coid, nil
}

// orderPrice draws the limit price for the i'th trader of n from the
// phase's ranges.
func orderPrice(i int, phase Phase, n int, issueTime float64, rng *rand.Rand) (int, error) {
	r := phase.Ranges[0]
	offset := 0
	if r.Offset != nil {
		offset = r.Offset(issueTime)
	}
	pMin := market.ClipPrice(offset + min(r.Min, r.Max))
	pMax := market.ClipPrice(offset + max(r.Min, r.Max))
	pRange := pMax - pMin
	stepSize := float64(pRange) / float64(n-1)
	halfStep := int(stepSize / 2.0)

	var price int
	switch phase.StepMode {
	case "fixed":
		price = pMin + int(float64(i)*stepSize)
	case "jittered":
		jitter := 0
		if halfStep > 0 {
			jitter = rng.Intn(2*halfStep+1) - halfStep
		}
		price = pMin + int(float64(i)*stepSize) + jitter
	case "random":
		if len(phase.Ranges) > 1 {
			r = phase.Ranges[rng.Intn(len(phase.Ranges))]
			pMin = market.ClipPrice(min(r.Min, r.Max))
			pMax = market.ClipPrice(max(r.Min, r.Max))
		}
		if pMax > pMin {
			price = pMin + rng.Intn(pMax-pMin)
		} else {
			price = pMin
		}
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStepMode, phase.StepMode)
	}
	return market.ClipPrice(price), nil
}

// issueTimesFor spreads n order release times across the interval,
// rescaled to fit it exactly and shuffled so trader index carries no
// timing information.
func issueTimesFor(n int, timeMode string, interval int, shuffle, fitToInterval bool, rng *rand.Rand) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("issue times need at least one trader")
	}

	tStep := float64(interval)
	if n > 1 {
		tStep = float64(interval) / float64(n-1)
	}

	arrTime := 0.0
	times := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		switch timeMode {
		case "periodic":
			arrTime = float64(interval)
		case "drip-fixed":
			arrTime = float64(i) * tStep
		case "drip-jitter":
			arrTime = float64(i)*tStep + tStep*rng.Float64()
		case "drip-poisson":
			arrTime += rng.Float64() * (float64(n) / float64(interval))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownTimeMode, timeMode)
		}
		times = append(times, arrTime)
	}

	if fitToInterval && arrTime != float64(interval) && arrTime != 0 {
		for i := range times {
			times[i] = float64(interval) * (times[i] / arrTime)
		}
	}

	if shuffle {
		rng.Shuffle(len(times), func(i, j int) {
			times[i], times[j] = times[j], times[i]
		})
	}
	return times, nil
}
