package trader

import (
	"math"
	"math/rand"

	"skoll/internal/market"
)

// AA is Vytelingum's adaptive-aggressiveness trader. It tracks a
// weighted moving estimate of the equilibrium price, measures market
// volatility through Smith's alpha and adapts both a long-term theta
// and a short-term aggressiveness r per side.
type AA struct {
	Trader

	rShoutChangeRel float64
	rShoutChangeAbs float64
	shortTermRate   float64
	longTermRate    float64
	maWeightDecay   float64
	maWindow        int
	offerChangeRate float64
	theta           float64
	thetaMax        float64
	thetaMin        float64
	marketMax       float64
	active          bool

	prevTransactions []float64
	maWeights        []float64
	estimatedEq      []float64
	smithsAlpha      []float64

	prevBestBidP float64
	hasPrevBidP  bool
	prevBestBidQ int
	prevBestAskP float64
	hasPrevAskP  bool
	prevBestAskQ int

	rShout     float64
	buyTarget  float64
	hasBuyTgt  bool
	sellTarget float64
	hasSellTgt bool
	buyR       float64
	sellR      float64
	limit      float64
	hasLimit   bool
	job        market.Side

	sawBatch   bool
	lastDemand []market.CurvePoint
	lastSupply []market.CurvePoint
}

func NewAA(tid string, birth float64) *AA {
	a := &AA{
		Trader:          newTrader("AA", tid, birth),
		rShoutChangeRel: 0.05,
		rShoutChangeAbs: 0.05,
		shortTermRate:   rand.Float64()*0.4 + 0.1,
		longTermRate:    rand.Float64()*0.4 + 0.1,
		maWeightDecay:   0.95,
		maWindow:        5,
		offerChangeRate: 3.0,
		theta:           -2.0,
		thetaMax:        2.0,
		thetaMin:        -8.0,
		marketMax:       market.SysMaxPrice,
		buyR:            -1.0 * (0.3 * rand.Float64()),
		sellR:           -1.0 * (0.3 * rand.Float64()),
	}
	for i := 0; i < a.maWindow; i++ {
		a.maWeights = append(a.maWeights, math.Pow(a.maWeightDecay, float64(i)))
	}
	return a
}

func (a *AA) GetOrder(now float64, batch market.BatchResult, timeLeft float64, lob market.LOB) (market.Order, bool) {
	cust, ok := a.currentOrder()
	if !ok {
		a.active = false
		return market.Order{}, false
	}

	a.active = true
	a.limit = float64(cust.Price)
	a.hasLimit = true
	a.job = cust.Side
	a.calcTarget()

	oBid := 0.0
	if a.hasPrevBidP {
		oBid = a.prevBestBidP
	}
	oAsk := a.marketMax
	if a.hasPrevAskP {
		oAsk = a.prevBestAskP
	}

	quotePrice := float64(market.SysMinPrice)
	if a.job == market.Bid {
		if a.limit <= oBid {
			return market.Order{}, false
		}
		if len(a.prevTransactions) > 0 {
			oAskPlus := (1+a.rShoutChangeRel)*oAsk + a.rShoutChangeAbs
			quotePrice = oBid + (math.Min(a.limit, oAskPlus)-oBid)/a.offerChangeRate
		} else if oAsk <= a.buyTarget {
			quotePrice = oAsk
		} else {
			quotePrice = oBid + (a.buyTarget-oBid)/a.offerChangeRate
		}
		if !isFinite(quotePrice) || quotePrice > a.limit {
			quotePrice = a.limit
		}
	} else {
		if a.limit >= oAsk {
			return market.Order{}, false
		}
		if len(a.prevTransactions) > 0 {
			oBidMinus := (1-a.rShoutChangeRel)*oBid - a.rShoutChangeAbs
			quotePrice = oAsk - (oAsk-math.Max(a.limit, oBidMinus))/a.offerChangeRate
		} else if oBid >= a.sellTarget {
			quotePrice = oBid
		} else {
			quotePrice = oAsk - (oAsk-a.sellTarget)/a.offerChangeRate
		}
		if !isFinite(quotePrice) || quotePrice < a.limit {
			quotePrice = a.limit
		}
	}

	return a.quote(cust, int(quotePrice), now), true
}

func (a *AA) Respond(now float64, batch market.BatchResult, verbose bool) {
	if a.sawBatch && curvesEqual(a.lastDemand, batch.Demand) && curvesEqual(a.lastSupply, batch.Supply) {
		return
	}
	a.sawBatch = true
	a.lastDemand = batch.Demand
	a.lastSupply = batch.Supply

	var trade *market.TapeEvent
	if len(batch.Trades) > 0 {
		trade = &batch.Trades[0]
	}

	lob := batch.LOB
	bestBid, hasBid := curveBestBid(batch, lob)
	bestAsk, hasAsk := curveBestAsk(batch, lob)

	bidHit := false
	if hasBid {
		if !a.hasPrevBidP {
			a.hasPrevBidP = true
			a.prevBestBidP = bestBid
		} else if trade != nil && (a.prevBestBidP > bestBid || (a.prevBestBidP == bestBid && a.prevBestBidQ > 1)) {
			bidHit = true
		}
	} else if a.hasPrevBidP {
		bidHit = !lastTapeCancelled(lob)
	}

	askLifted := false
	if hasAsk {
		if !a.hasPrevAskP {
			a.hasPrevAskP = true
			a.prevBestAskP = bestAsk
		} else if trade != nil && (a.prevBestAskP < bestAsk || (a.prevBestAskP == bestAsk && a.prevBestAskQ > 1)) {
			askLifted = true
		}
	} else if a.hasPrevAskP {
		askLifted = !lastTapeCancelled(lob)
	}

	a.hasPrevBidP = hasBid
	a.prevBestBidP = bestBid
	a.prevBestBidQ = 1
	a.hasPrevAskP = hasAsk
	a.prevBestAskP = bestAsk
	a.prevBestAskQ = 1

	if trade == nil || !(bidHit || askLifted) {
		return
	}

	a.prevTransactions = append(a.prevTransactions, trade.Price)
	if !a.hasSellTgt {
		a.sellTarget = trade.Price
		a.hasSellTgt = true
	}
	if !a.hasBuyTgt {
		a.buyTarget = trade.Price
		a.hasBuyTgt = true
	}
	a.calcEq()
	a.calcAlpha()
	a.calcTheta()
	a.calcRShout()
	a.calcAgg()
	a.calcTarget()
}

func (a *AA) calcEq() {
	n := len(a.prevTransactions)
	if n == 0 {
		return
	}
	if n < a.maWindow {
		sum := 0.0
		for _, p := range a.prevTransactions {
			sum += p
		}
		a.estimatedEq = append(a.estimatedEq, sum/float64(n))
		return
	}
	recent := a.prevTransactions[n-a.maWindow:]
	num, den := 0.0, 0.0
	for i, p := range recent {
		num += p * a.maWeights[i]
		den += a.maWeights[i]
	}
	a.estimatedEq = append(a.estimatedEq, num/den)
}

// calcAlpha appends Smith's alpha: the RMS deviation of the estimated
// equilibrium series from its latest value, normalized by that value.
func (a *AA) calcAlpha() {
	if len(a.estimatedEq) == 0 {
		return
	}
	last := a.estimatedEq[len(a.estimatedEq)-1]
	sum := 0.0
	for _, p := range a.estimatedEq {
		sum += math.Pow(p-last, 2)
	}
	alpha := math.Sqrt(sum / float64(len(a.estimatedEq)))
	a.smithsAlpha = append(a.smithsAlpha, alpha/last)
}

func (a *AA) calcTheta() {
	const gamma = 2.0
	lo, hi := a.smithsAlpha[0], a.smithsAlpha[0]
	for _, v := range a.smithsAlpha[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		alphaRange := 0.4
		a.theta = a.thetaMin + (a.thetaMax-a.thetaMin)*(1-alphaRange*math.Exp(gamma*(alphaRange-1)))
		return
	}
	alphaRange := (a.smithsAlpha[len(a.smithsAlpha)-1] - lo) / (hi - lo)
	desired := a.thetaMin + (a.thetaMax-a.thetaMin)*(1-alphaRange*math.Exp(gamma*(alphaRange-1)))
	a.theta += a.longTermRate * (desired - a.theta)
}

func (a *AA) calcRShout() {
	p := 0.0
	if len(a.estimatedEq) > 0 {
		p = a.estimatedEq[len(a.estimatedEq)-1]
	}
	lim := a.limit
	theta := a.theta

	logOrZero := func(x float64) float64 {
		if x <= 0 || !isFinite(x) {
			return 0
		}
		return math.Log(x)
	}

	if a.job == market.Bid {
		if lim <= p {
			a.rShout = 0.0
		} else if a.buyTarget > p {
			a.rShout = logOrZero((a.buyTarget-p)*(math.Exp(theta)-1)/(lim-p)+1) / theta
		} else {
			a.rShout = logOrZero((1-a.buyTarget/p)*(math.Exp(theta)-1)+1) / theta
		}
	} else {
		if lim >= p {
			a.rShout = 0
		} else if a.sellTarget > p {
			frac := (a.sellTarget - lim) / (p - lim)
			a.rShout = logOrZero((1-frac)*(math.Exp(theta)-1)+1) / theta
		} else {
			a.rShout = logOrZero((a.sellTarget-p)*(math.Exp(theta)-1)/(a.marketMax-p)+1) / theta
		}
	}
	if !isFinite(a.rShout) {
		a.rShout = 0
	}
}

func (a *AA) calcAgg() {
	lastPrice := 0.0
	if len(a.prevTransactions) > 0 {
		lastPrice = a.prevTransactions[len(a.prevTransactions)-1]
	}
	if a.job == market.Bid {
		var delta float64
		if a.buyTarget >= lastPrice {
			delta = (1+a.rShoutChangeRel)*a.rShout + a.rShoutChangeAbs
		} else {
			delta = (1-a.rShoutChangeRel)*a.rShout - a.rShoutChangeAbs
		}
		a.buyR += a.shortTermRate * (delta - a.buyR)
	} else {
		var delta float64
		if a.sellTarget > lastPrice {
			delta = (1+a.rShoutChangeRel)*a.rShout + a.rShoutChangeAbs
		} else {
			delta = (1-a.rShoutChangeRel)*a.rShout - a.rShoutChangeAbs
		}
		a.sellR += a.shortTermRate * (delta - a.sellR)
	}
}

func (a *AA) calcTarget() {
	p := 1.0
	if len(a.estimatedEq) > 0 {
		p = a.estimatedEq[len(a.estimatedEq)-1]
		if a.limit == p {
			p *= 1.000001 // keeps theta_bar away from 0
		}
	} else if a.job == market.Bid {
		p = a.limit - a.limit*0.2
	} else {
		p = a.limit + a.limit*0.2
	}

	lim := a.limit
	theta := a.theta

	if a.job == market.Bid {
		minusThing := (math.Exp(-a.buyR*theta) - 1) / (math.Exp(theta) - 1)
		plusThing := (math.Exp(a.buyR*theta) - 1) / (math.Exp(theta) - 1)
		thetaBar := (theta*lim - theta*p) / p
		if thetaBar == 0 {
			thetaBar = 0.0001
		}
		barThing := (math.Exp(-a.buyR*thetaBar) - 1) / (math.Exp(thetaBar) - 1)

		if lim <= p {
			if a.buyR >= 0 {
				a.buyTarget = lim
			} else {
				a.buyTarget = lim * (1 - minusThing)
			}
		} else {
			if a.buyR >= 0 {
				a.buyTarget = p + (lim-p)*plusThing
			} else {
				a.buyTarget = p * (1 - barThing)
			}
		}
		if !isFinite(a.buyTarget) {
			a.buyTarget = lim
		}
		a.buyTarget = math.Min(a.buyTarget, lim)
		a.hasBuyTgt = true
	} else {
		minusThing := (math.Exp(-a.sellR*theta) - 1) / (math.Exp(theta) - 1)
		plusThing := (math.Exp(a.sellR*theta) - 1) / (math.Exp(theta) - 1)
		thetaBar := (theta*lim - theta*p) / p
		if thetaBar == 0 {
			thetaBar = 0.0001
		}
		barThing := (math.Exp(-a.sellR*thetaBar) - 1) / (math.Exp(thetaBar) - 1)

		if lim <= p {
			if a.sellR >= 0 {
				a.sellTarget = lim
			} else {
				a.sellTarget = lim + (a.marketMax-lim)*minusThing
			}
		} else {
			if a.sellR >= 0 {
				a.sellTarget = lim + (p-lim)*(1-plusThing)
			} else {
				a.sellTarget = p + (a.marketMax-p)*barThing
			}
		}
		if !isFinite(a.sellTarget) || a.sellTarget < lim {
			a.sellTarget = lim
		}
		a.hasSellTgt = true
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
