package trader

import "skoll/internal/market"

// Shaver improves the prevailing best quote by a penny, capped at its
// limit. With no curve to improve on it falls back to a stub at the
// system bound.
type Shaver struct {
	Trader
}

func NewShaver(tid string, birth float64) *Shaver {
	return &Shaver{Trader: newTrader("SHVR", tid, birth)}
}

func (s *Shaver) GetOrder(now float64, batch market.BatchResult, timeLeft float64, lob market.LOB) (market.Order, bool) {
	cust, ok := s.currentOrder()
	if !ok {
		return market.Order{}, false
	}

	bestBid := float64(market.SysMaxPrice)
	bestAsk := 0.0
	if p, ok := market.BestBid(batch.Demand); ok {
		bestBid = float64(p) + 1
	}
	if p, ok := market.BestAsk(batch.Supply); ok {
		bestAsk = float64(p) - 1
	}

	limit := float64(cust.Price)
	var price float64
	if cust.Side == market.Bid {
		price = min(bestBid, limit)
	} else {
		price = max(bestAsk, limit)
	}
	return s.quote(cust, int(price), now), true
}
