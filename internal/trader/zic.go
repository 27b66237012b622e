package trader

import (
	"math/rand"

	"skoll/internal/market"
)

// ZIC is the zero-intelligence-constrained trader after Gode & Sunder
// 1993: a uniformly random price between the side's sentinel worst
// and the limit.
type ZIC struct {
	Trader
}

func NewZIC(tid string, birth float64) *ZIC {
	return &ZIC{Trader: newTrader("ZIC", tid, birth)}
}

func (z *ZIC) GetOrder(now float64, batch market.BatchResult, timeLeft float64, lob market.LOB) (market.Order, bool) {
	cust, ok := z.currentOrder()
	if !ok {
		return market.Order{}, false
	}

	limit := cust.Price
	var price int
	if cust.Side == market.Bid {
		minPrice := lob.Bids.Worst
		if minPrice > limit {
			minPrice = limit
		}
		price = minPrice + rand.Intn(limit-minPrice+1)
	} else {
		maxPrice := lob.Asks.Worst
		if maxPrice < limit {
			maxPrice = limit
		}
		price = limit + rand.Intn(maxPrice-limit+1)
	}
	return z.quote(cust, price, now), true
}
