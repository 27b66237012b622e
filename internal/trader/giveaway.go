package trader

import "skoll/internal/market"

// Giveaway quotes its limit price unchanged. Dumber than ZIC but
// never makes a loss.
type Giveaway struct {
	Trader
}

func NewGiveaway(tid string, birth float64) *Giveaway {
	return &Giveaway{Trader: newTrader("GVWY", tid, birth)}
}

func (g *Giveaway) GetOrder(now float64, batch market.BatchResult, timeLeft float64, lob market.LOB) (market.Order, bool) {
	cust, ok := g.currentOrder()
	if !ok {
		return market.Order{}, false
	}
	return g.quote(cust, cust.Price, now), true
}
