package trader

import "skoll/internal/market"

const (
	momentumThreshold = 0.05
	momentumWindow    = 5
)

// Momentum watches the drift across the last few trade prices and
// quotes more or less aggressively with the trend, clamped so it
// never crosses its own limit.
type Momentum struct {
	Trader

	recentPrices []float64
}

func NewMomentum(tid string, birth float64) *Momentum {
	return &Momentum{Trader: newTrader("MTUM", tid, birth)}
}

func (m *Momentum) GetOrder(now float64, batch market.BatchResult, timeLeft float64, lob market.LOB) (market.Order, bool) {
	cust, ok := m.currentOrder()
	if !ok || len(m.recentPrices) < 2 {
		return market.Order{}, false
	}

	limit := float64(cust.Price)
	drift := (m.recentPrices[len(m.recentPrices)-1] - m.recentPrices[0]) / m.recentPrices[0]

	price := limit
	if drift > momentumThreshold {
		if cust.Side == market.Bid {
			price = limit * 1.02
		} else {
			price = limit * 0.98
		}
	} else if drift < -momentumThreshold {
		if cust.Side == market.Bid {
			price = limit * 0.98
		} else {
			price = limit * 1.02
		}
	}

	if cust.Side == market.Bid && price > limit {
		price = limit
	}
	if cust.Side == market.Ask && price < limit {
		price = limit
	}
	return m.quote(cust, int(price), now), true
}

func (m *Momentum) Respond(now float64, batch market.BatchResult, verbose bool) {
	if len(batch.Trades) == 0 {
		return
	}
	m.recentPrices = append(m.recentPrices, batch.Trades[0].Price)
	if len(m.recentPrices) > momentumWindow {
		m.recentPrices = m.recentPrices[1:]
	}
}
