package trader

import "skoll/internal/market"

const (
	sniperLurkThreshold = 0.2
	sniperShaveGrowth   = 3.0
)

// Sniper lurks until the session countdown drops below a threshold,
// then shaves an increasingly thick slice off the prevailing quote as
// time runs out.
type Sniper struct {
	Trader
}

func NewSniper(tid string, birth float64) *Sniper {
	return &Sniper{Trader: newTrader("SNPR", tid, birth)}
}

func (s *Sniper) GetOrder(now float64, batch market.BatchResult, timeLeft float64, lob market.LOB) (market.Order, bool) {
	cust, ok := s.currentOrder()
	if !ok || timeLeft > sniperLurkThreshold {
		return market.Order{}, false
	}

	shave := 1.0 / (0.01 + timeLeft/(sniperShaveGrowth*sniperLurkThreshold))

	var bestBid, bestAsk float64
	if len(batch.Demand) > 0 && len(batch.Supply) > 0 {
		// Deliberately the far ends of the curves: the sniper starts
		// from the least competitive visible price and shaves in.
		bestBid = float64(batch.Demand[0].Price)
		for _, p := range batch.Demand[1:] {
			if float64(p.Price) < bestBid {
				bestBid = float64(p.Price)
			}
		}
		bestAsk = float64(batch.Supply[0].Price)
		for _, p := range batch.Supply[1:] {
			if float64(p.Price) > bestAsk {
				bestAsk = float64(p.Price)
			}
		}
	} else {
		bestBid = float64(lob.Bids.Worst) - shave
		bestAsk = float64(lob.Asks.Worst) + shave
	}

	limit := float64(cust.Price)
	var price float64
	if cust.Side == market.Bid {
		price = min(bestBid+shave, limit)
	} else {
		price = max(bestAsk-shave, limit)
	}
	return s.quote(cust, int(price), now), true
}
