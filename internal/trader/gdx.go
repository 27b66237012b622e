package trader

import "skoll/internal/market"

// GDX is Tesauro & Bredin's belief-based dynamic-programming trader.
// It estimates the probability a hypothetical quote would be accepted
// from the accepted and outstanding quotes it has seen, then picks
// the price maximizing discounted expected surplus over its remaining
// offer opportunities.
type GDX struct {
	Trader

	job      market.Side
	active   bool
	limit    float64
	hasLimit bool

	outstandingBids []market.Level
	outstandingAsks []market.Level
	acceptedBids    []float64
	acceptedAsks    []float64

	prevBestBidP float64
	hasPrevBidP  bool
	prevBestBidQ int
	prevBestAskP float64
	hasPrevAskP  bool
	prevBestAskQ int

	firstTurn         bool
	gamma             float64
	holdings          int
	remainingOfferOps int
	values            [][]float64

	sawBatch   bool
	lastDemand []market.CurvePoint
	lastSupply []market.CurvePoint
}

func NewGDX(tid string, birth float64) *GDX {
	g := &GDX{
		Trader:            newTrader("GDX", tid, birth),
		firstTurn:         true,
		gamma:             0.9,
		holdings:          25,
		remainingOfferOps: 25,
	}
	g.values = make([][]float64, g.holdings)
	for i := range g.values {
		g.values[i] = make([]float64, g.remainingOfferOps)
	}
	return g
}

func (g *GDX) GetOrder(now float64, batch market.BatchResult, timeLeft float64, lob market.LOB) (market.Order, bool) {
	cust, ok := g.currentOrder()
	if !ok {
		g.active = false
		return market.Order{}, false
	}

	g.active = true
	g.limit = float64(cust.Price)
	g.hasLimit = true
	g.job = cust.Side

	var price float64
	if g.job == market.Bid {
		price = g.calcPBid(g.holdings-1, g.remainingOfferOps-1)
		if price > g.limit {
			price = g.limit
		}
	} else {
		price = g.calcPAsk(g.holdings-1, g.remainingOfferOps-1)
		if price < g.limit {
			price = g.limit
		}
	}

	return g.quote(cust, int(price), now), true
}

func (g *GDX) Respond(now float64, batch market.BatchResult, verbose bool) {
	if g.sawBatch && curvesEqual(g.lastDemand, batch.Demand) && curvesEqual(g.lastSupply, batch.Supply) {
		return
	}
	g.sawBatch = true
	g.lastDemand = batch.Demand
	g.lastSupply = batch.Supply

	lob := batch.LOB
	bestBid, hasBid := curveBestBid(batch, lob)
	bestAsk, hasAsk := curveBestAsk(batch, lob)

	g.outstandingBids = lob.Bids.Depth
	g.outstandingAsks = lob.Asks.Depth

	// A curve top above the post-clearing book best means bids up
	// there were consumed by the batch; record them as accepted.
	if hasBid && lob.Bids.HasBest && bestBid > float64(lob.Bids.Best) {
		g.acceptedBids = append(g.acceptedBids, bestNBids(batch.Demand, batch.EqQty)...)
	}
	if hasAsk && lob.Asks.HasBest && bestAsk < float64(lob.Asks.Best) {
		g.acceptedAsks = append(g.acceptedAsks, bestNAsks(batch.Supply, batch.EqQty)...)
	}

	if g.firstTurn && g.hasLimit {
		g.firstTurn = false
		for n := 1; n < g.remainingOfferOps; n++ {
			for m := 1; m < g.holdings; m++ {
				if g.job == market.Bid {
					g.values[m][n] = g.calcPBid(m, n)
				} else {
					g.values[m][n] = g.calcPAsk(m, n)
				}
			}
		}
	}

	g.hasPrevBidP = hasBid
	g.prevBestBidP = bestBid
	g.prevBestBidQ = len(lob.Bids.Depth)
	g.hasPrevAskP = hasAsk
	g.prevBestAskP = bestAsk
	g.prevBestAskQ = len(lob.Asks.Depth)
}

func (g *GDX) calcPBid(m, n int) float64 {
	bestReturn := 0.0
	bestBid := 0.0
	secondBestBid := 0.0

	for i := 0; i < int(g.limit/2); i++ {
		p := float64(i)
		v := g.beliefBuy(p)*((g.limit-p)+g.gamma*g.values[m-1][n-1]) + (1 - g.beliefBuy(p)*g.gamma*g.values[m][n-1])
		if v > bestReturn {
			secondBestBid = bestBid
			bestReturn = v
			bestBid = p
		}
	}

	if secondBestBid > bestBid {
		secondBestBid, bestBid = bestBid, secondBestBid
	}

	// Refine between the two best integer candidates.
	for i := secondBestBid; i < bestBid; i += 0.05 {
		p := i + secondBestBid
		v := g.beliefBuy(p)*((g.limit-p)+g.gamma*g.values[m-1][n-1]) + (1 - g.beliefBuy(p)*g.gamma*g.values[m][n-1])
		if v > bestReturn {
			bestReturn = v
			bestBid = p
		}
	}

	return bestBid
}

func (g *GDX) calcPAsk(m, n int) float64 {
	bestReturn := 0.0
	bestAsk := g.limit
	secondBestAsk := g.limit

	for i := 0; i < int(g.limit/2); i++ {
		p := float64(i) + g.limit
		v := g.beliefSell(p)*((p-g.limit)+g.gamma*g.values[m-1][n-1]) + (1 - g.beliefSell(p)*g.gamma*g.values[m][n-1])
		if v > bestReturn {
			secondBestAsk = bestAsk
			bestReturn = v
			bestAsk = p
		}
	}

	if secondBestAsk > bestAsk {
		secondBestAsk, bestAsk = bestAsk, secondBestAsk
	}

	for i := secondBestAsk; i < bestAsk; i += 0.05 {
		p := i + secondBestAsk
		v := g.beliefSell(p)*((p-g.limit)+g.gamma*g.values[m-1][n-1]) + (1 - g.beliefSell(p)*g.gamma*g.values[m][n-1])
		if v > bestReturn {
			bestReturn = v
			bestAsk = p
		}
	}

	return bestAsk
}

func (g *GDX) beliefSell(price float64) float64 {
	acceptedGreater := 0
	for _, p := range g.acceptedAsks {
		if p >= price {
			acceptedGreater++
		}
	}
	bidsGreater := 0
	for _, lvl := range g.outstandingBids {
		if float64(lvl.Price) >= price {
			bidsGreater++
		}
	}
	unacceptedLower := 0
	for _, lvl := range g.outstandingAsks {
		if float64(lvl.Price) <= price {
			unacceptedLower++
		}
	}
	total := acceptedGreater + bidsGreater + unacceptedLower
	if total == 0 {
		return 0
	}
	return float64(acceptedGreater+bidsGreater) / float64(total)
}

func (g *GDX) beliefBuy(price float64) float64 {
	acceptedLower := 0
	for _, p := range g.acceptedBids {
		if p <= price {
			acceptedLower++
		}
	}
	asksLower := 0
	for _, lvl := range g.outstandingAsks {
		if float64(lvl.Price) <= price {
			asksLower++
		}
	}
	unacceptedGreater := 0
	for _, lvl := range g.outstandingBids {
		if float64(lvl.Price) >= price {
			unacceptedGreater++
		}
	}
	total := acceptedLower + asksLower + unacceptedGreater
	if total == 0 {
		return 0
	}
	return float64(acceptedLower+asksLower) / float64(total)
}

// bestNBids expands the cumulative demand curve back into per-unit
// prices, best first, and keeps up to n. The curve arrives sorted
// ascending with quantities accumulated from the top, so the
// competitive end is the back.
func bestNBids(demand []market.CurvePoint, n int) []float64 {
	var bids []float64
	last := 0
	for i := len(demand) - 1; i >= 0; i-- {
		pt := demand[i]
		for j := 0; j < pt.Qty-last; j++ {
			bids = append(bids, float64(pt.Price))
			if len(bids) >= n {
				return bids
			}
		}
		last = pt.Qty
	}
	return bids
}

// bestNAsks is the supply mirror: the curve arrives sorted descending
// with quantities accumulated from the bottom.
func bestNAsks(supply []market.CurvePoint, n int) []float64 {
	var asks []float64
	last := 0
	for i := len(supply) - 1; i >= 0; i-- {
		pt := supply[i]
		for j := 0; j < pt.Qty-last; j++ {
			asks = append(asks, float64(pt.Price))
			if len(asks) >= n {
				return asks
			}
		}
		last = pt.Qty
	}
	return asks
}
