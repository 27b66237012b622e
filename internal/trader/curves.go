package trader

import "skoll/internal/market"

// curveBestBid prefers the demand curve's top over the book's best
// bid; reports false when neither exists.
func curveBestBid(batch market.BatchResult, lob market.LOB) (float64, bool) {
	if p, ok := market.BestBid(batch.Demand); ok {
		return float64(p), true
	}
	if lob.Bids.HasBest {
		return float64(lob.Bids.Best), true
	}
	return 0, false
}

// curveBestAsk prefers the supply curve's bottom over the book's best
// ask.
func curveBestAsk(batch market.BatchResult, lob market.LOB) (float64, bool) {
	if p, ok := market.BestAsk(batch.Supply); ok {
		return float64(p), true
	}
	if lob.Asks.HasBest {
		return float64(lob.Asks.Best), true
	}
	return 0, false
}

// lastTapeCancelled reports whether the most recent tape entry was a
// cancel. Used to tell a best quote that traded from one that was
// withdrawn.
func lastTapeCancelled(lob market.LOB) bool {
	if len(lob.Tape) == 0 {
		return false
	}
	return lob.Tape[len(lob.Tape)-1].Kind == market.CancelEvent
}

// curvesEqual lets stateful strategies run their learning step once
// per clearing: a snapshot refresh carries the same curves as the
// batch it followed.
func curvesEqual(a, b []market.CurvePoint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
