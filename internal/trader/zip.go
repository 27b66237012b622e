package trader

import (
	"math"
	"math/rand"

	"skoll/internal/market"
)

// ZIP parameters follow Cliff's 1997 HP Labs report. Separate buy and
// sell margins let one trader work both sides across its lifetime.
const (
	zipMarginFix = 0.05
	zipMarginVar = 0.3
)

type ZIP struct {
	Trader

	job        market.Side
	active     bool
	prevChange float64
	beta       float64
	momentum   float64
	ca         float64
	cr         float64
	margin     float64
	marginBuy  float64
	marginSell float64
	price      int
	priced     bool
	limit      float64
	hasLimit   bool

	prevBestBidP float64
	hasPrevBidP  bool
	prevBestBidQ int
	prevBestAskP float64
	hasPrevAskP  bool
	prevBestAskQ int

	sawBatch   bool
	lastDemand []market.CurvePoint
	lastSupply []market.CurvePoint
}

func NewZIP(tid string, birth float64) *ZIP {
	return &ZIP{
		Trader:     newTrader("ZIP", tid, birth),
		beta:       0.2 + 0.2*rand.Float64(),
		momentum:   0.3 * rand.Float64(),
		ca:         0.10,
		cr:         0.10,
		marginBuy:  -1.0 * (zipMarginFix + zipMarginVar*rand.Float64()),
		marginSell: zipMarginFix + zipMarginVar*rand.Float64(),
	}
}

func (z *ZIP) GetOrder(now float64, batch market.BatchResult, timeLeft float64, lob market.LOB) (market.Order, bool) {
	cust, ok := z.currentOrder()
	if !ok {
		z.active = false
		return market.Order{}, false
	}

	z.active = true
	z.limit = float64(cust.Price)
	z.hasLimit = true
	z.job = cust.Side
	if z.job == market.Bid {
		z.margin = z.marginBuy
	} else {
		z.margin = z.marginSell
	}

	z.price = int(z.limit * (1 + z.margin))
	z.priced = true
	return z.quote(cust, z.price, now), true
}

func (z *ZIP) Respond(now float64, batch market.BatchResult, verbose bool) {
	if z.sawBatch && curvesEqual(z.lastDemand, batch.Demand) && curvesEqual(z.lastSupply, batch.Supply) {
		return
	}
	z.sawBatch = true
	z.lastDemand = batch.Demand
	z.lastSupply = batch.Supply

	var trade *market.TapeEvent
	if len(batch.Trades) > 0 {
		trade = &batch.Trades[0]
	}

	lob := batch.LOB
	bestBid, hasBid := curveBestBid(batch, lob)
	bestAsk, hasAsk := curveBestAsk(batch, lob)

	bidImproved, bidHit := false, false
	if hasBid {
		if !z.hasPrevBidP {
			z.hasPrevBidP = true
			z.prevBestBidP = bestBid
		} else if z.prevBestBidP < bestBid {
			bidImproved = true
		} else if trade != nil && (z.prevBestBidP > bestBid || (z.prevBestBidP == bestBid && z.prevBestBidQ > 1)) {
			bidHit = true
		}
	} else if z.hasPrevBidP {
		bidHit = !lastTapeCancelled(lob)
	}

	askImproved, askLifted := false, false
	if hasAsk {
		if !z.hasPrevAskP {
			z.hasPrevAskP = true
			z.prevBestAskP = bestAsk
		} else if z.prevBestAskP > bestAsk {
			askImproved = true
		} else if trade != nil && (z.prevBestAskP < bestAsk || (z.prevBestAskP == bestAsk && z.prevBestAskQ > 1)) {
			askLifted = true
		}
	} else if z.hasPrevAskP {
		askLifted = !lastTapeCancelled(lob)
	}

	deal := (bidHit || askLifted) && trade != nil

	if z.priced && z.hasLimit {
		if z.job == market.Ask {
			if deal {
				if float64(z.price) <= trade.Price {
					z.profitAlter(z.targetUp(trade.Price))
				} else if askLifted && z.active && !z.willingToTrade(trade.Price) {
					z.profitAlter(z.targetDown(trade.Price))
				}
			} else if askImproved && float64(z.price) > bestAsk {
				target := float64(lob.Asks.Worst)
				if hasBid {
					target = z.targetUp(bestBid)
				}
				z.profitAlter(target)
			}
		} else {
			if deal {
				if float64(z.price) >= trade.Price {
					z.profitAlter(z.targetDown(trade.Price))
				} else if bidHit && z.active && !z.willingToTrade(trade.Price) {
					z.profitAlter(z.targetUp(trade.Price))
				}
			} else if bidImproved && float64(z.price) < bestBid {
				target := float64(lob.Bids.Worst)
				if hasAsk {
					target = z.targetDown(bestAsk)
				}
				z.profitAlter(target)
			}
		}
	}

	z.hasPrevBidP = hasBid
	z.prevBestBidP = bestBid
	z.prevBestBidQ = 1
	z.hasPrevAskP = hasAsk
	z.prevBestAskP = bestAsk
	z.prevBestAskQ = 1
}

func (z *ZIP) targetUp(price float64) float64 {
	ptrbAbs := z.ca * rand.Float64()
	ptrbRel := price * (1.0 + z.cr*rand.Float64())
	return math.Round(ptrbRel + ptrbAbs)
}

func (z *ZIP) targetDown(price float64) float64 {
	ptrbAbs := z.ca * rand.Float64()
	ptrbRel := price * (1.0 - z.cr*rand.Float64())
	return math.Round(ptrbRel - ptrbAbs)
}

func (z *ZIP) willingToTrade(price float64) bool {
	if z.job == market.Bid && z.active && float64(z.price) >= price {
		return true
	}
	if z.job == market.Ask && z.active && float64(z.price) <= price {
		return true
	}
	return false
}

// profitAlter is the Widrow-Hoff step: move the margin towards the
// target price, momentum-smoothed, but never across zero.
func (z *ZIP) profitAlter(target float64) {
	oldPrice := float64(z.price)
	change := (1.0-z.momentum)*(z.beta*(target-oldPrice)) + z.momentum*z.prevChange
	z.prevChange = change
	newMargin := (oldPrice+change)/z.limit - 1.0

	if z.job == market.Bid {
		if newMargin < 0.0 {
			z.marginBuy = newMargin
			z.margin = newMargin
		}
	} else {
		if newMargin > 0.0 {
			z.marginSell = newMargin
			z.margin = newMargin
		}
	}
	z.price = int(math.Round(z.limit * (1.0 + z.margin)))
}
