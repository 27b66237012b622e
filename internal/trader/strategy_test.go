package trader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skoll/internal/market"
)

// --- Setup & Helpers ---

func emptyLOB() market.LOB {
	return market.LOB{
		Bids: market.SideView{Worst: market.SysMinPrice},
		Asks: market.SideView{Worst: market.SysMaxPrice},
	}
}

func batchWithCurves(supply, demand []market.CurvePoint) market.BatchResult {
	return market.BatchResult{Supply: supply, Demand: demand, EqPrice: -1}
}

// --- Tests ---

func TestGiveawayQuotesLimit(t *testing.T) {
	g := NewGiveaway("B00", 0)
	g.AddOrder(custBid(1, 150), false)

	o, ok := g.GetOrder(1.0, market.BatchResult{}, 0.5, emptyLOB())
	assert.True(t, ok)
	assert.Equal(t, 150, o.Price)
	assert.Equal(t, market.Bid, o.Side)
	assert.Equal(t, "B00", o.TID)
	assert.Equal(t, 1, o.Coid)
}

func TestGiveawayNoOrderNoQuote(t *testing.T) {
	g := NewGiveaway("B00", 0)
	_, ok := g.GetOrder(1.0, market.BatchResult{}, 0.5, emptyLOB())
	assert.False(t, ok)
}

func TestZICStaysInsideBounds(t *testing.T) {
	buyer := NewZIC("B00", 0)
	buyer.AddOrder(custBid(1, 150), false)
	seller := NewZIC("S00", 0)
	seller.AddOrder(custAsk(1, 80), false)

	for i := 0; i < 200; i++ {
		o, ok := buyer.GetOrder(1.0, market.BatchResult{}, 0.5, emptyLOB())
		assert.True(t, ok)
		assert.GreaterOrEqual(t, o.Price, market.SysMinPrice)
		assert.LessOrEqual(t, o.Price, 150, "a bid should never cross the limit")

		o, ok = seller.GetOrder(1.0, market.BatchResult{}, 0.5, emptyLOB())
		assert.True(t, ok)
		assert.GreaterOrEqual(t, o.Price, 80, "an ask should never cross the limit")
		assert.LessOrEqual(t, o.Price, market.SysMaxPrice)
	}
}

func TestShaverImprovesByAPenny(t *testing.T) {
	batch := batchWithCurves(
		[]market.CurvePoint{{Price: 110, Qty: 1}, {Price: 90, Qty: 2}},
		[]market.CurvePoint{{Price: 80, Qty: 2}, {Price: 100, Qty: 1}},
	)

	buyer := NewShaver("B00", 0)
	buyer.AddOrder(custBid(1, 150), false)
	o, ok := buyer.GetOrder(1.0, batch, 0.5, emptyLOB())
	assert.True(t, ok)
	assert.Equal(t, 101, o.Price, "one penny over the best bid on the curve")

	seller := NewShaver("S00", 0)
	seller.AddOrder(custAsk(1, 70), false)
	o, ok = seller.GetOrder(1.0, batch, 0.5, emptyLOB())
	assert.True(t, ok)
	assert.Equal(t, 89, o.Price, "one penny under the best ask on the curve")
}

func TestShaverCappedAtLimit(t *testing.T) {
	batch := batchWithCurves(nil, []market.CurvePoint{{Price: 120, Qty: 1}})

	buyer := NewShaver("B00", 0)
	buyer.AddOrder(custBid(1, 100), false)
	o, ok := buyer.GetOrder(1.0, batch, 0.5, emptyLOB())
	assert.True(t, ok)
	assert.Equal(t, 100, o.Price)
}

func TestShaverNoCurvesQuotesLimit(t *testing.T) {
	buyer := NewShaver("B00", 0)
	buyer.AddOrder(custBid(1, 150), false)
	o, ok := buyer.GetOrder(1.0, market.BatchResult{}, 0.5, emptyLOB())
	assert.True(t, ok)
	assert.Equal(t, 150, o.Price)

	seller := NewShaver("S00", 0)
	seller.AddOrder(custAsk(1, 80), false)
	o, ok = seller.GetOrder(1.0, market.BatchResult{}, 0.5, emptyLOB())
	assert.True(t, ok)
	assert.Equal(t, 80, o.Price)
}

func TestSniperLurksUntilTheEnd(t *testing.T) {
	s := NewSniper("B00", 0)
	s.AddOrder(custBid(1, 150), false)

	_, ok := s.GetOrder(1.0, market.BatchResult{}, 0.5, emptyLOB())
	assert.False(t, ok, "the sniper should hold fire early in the session")

	o, ok := s.GetOrder(1.0, market.BatchResult{}, 0.1, emptyLOB())
	assert.True(t, ok)
	assert.LessOrEqual(t, o.Price, 150)
}

func TestMomentumFollowsDrift(t *testing.T) {
	m := NewMomentum("B00", 0)
	m.AddOrder(custBid(1, 150), false)

	// 1. Not enough history: no quote.
	_, ok := m.GetOrder(1.0, market.BatchResult{}, 0.5, emptyLOB())
	assert.False(t, ok)

	// 2. Falling prices: the buyer backs off its limit.
	m.Respond(1.0, market.BatchResult{Trades: []market.TapeEvent{{Price: 110}}}, false)
	m.Respond(2.0, market.BatchResult{Trades: []market.TapeEvent{{Price: 100}}}, false)
	o, ok := m.GetOrder(3.0, market.BatchResult{}, 0.5, emptyLOB())
	assert.True(t, ok)
	assert.Equal(t, 147, o.Price)
}

func TestMomentumNeverCrossesLimit(t *testing.T) {
	m := NewMomentum("B00", 0)
	m.AddOrder(custBid(1, 150), false)

	// Rising prices tempt the buyer up; the limit clamp holds.
	m.Respond(1.0, market.BatchResult{Trades: []market.TapeEvent{{Price: 100}}}, false)
	m.Respond(2.0, market.BatchResult{Trades: []market.TapeEvent{{Price: 120}}}, false)
	o, ok := m.GetOrder(3.0, market.BatchResult{}, 0.5, emptyLOB())
	assert.True(t, ok)
	assert.Equal(t, 150, o.Price)
}

func TestZIPNeverCrossesLimit(t *testing.T) {
	buyer := NewZIP("B00", 0)
	buyer.AddOrder(custBid(1, 150), false)
	seller := NewZIP("S00", 0)
	seller.AddOrder(custAsk(1, 80), false)

	batch := batchWithCurves(
		[]market.CurvePoint{{Price: 110, Qty: 1}},
		[]market.CurvePoint{{Price: 100, Qty: 1}},
	)
	for i := 0; i < 50; i++ {
		buyer.Respond(float64(i), batch, false)
		seller.Respond(float64(i), batch, false)

		if o, ok := buyer.GetOrder(float64(i), batch, 0.5, emptyLOB()); ok {
			assert.LessOrEqual(t, o.Price, 150)
		}
		if o, ok := seller.GetOrder(float64(i), batch, 0.5, emptyLOB()); ok {
			assert.GreaterOrEqual(t, o.Price, 80)
		}
	}
}

func TestAANeverCrossesLimit(t *testing.T) {
	buyer := NewAA("B00", 0)
	buyer.AddOrder(custBid(1, 150), false)
	seller := NewAA("S00", 0)
	seller.AddOrder(custAsk(1, 80), false)

	trades := []market.TapeEvent{{Kind: market.TradeEvent, Time: 1, Price: 100}}
	batch := market.BatchResult{
		Trades:  trades,
		EqPrice: 100,
		Supply:  []market.CurvePoint{{Price: 110, Qty: 1}},
		Demand:  []market.CurvePoint{{Price: 90, Qty: 1}},
	}
	for i := 0; i < 50; i++ {
		buyer.Respond(float64(i), batch, false)
		seller.Respond(float64(i), batch, false)

		if o, ok := buyer.GetOrder(float64(i), batch, 0.5, emptyLOB()); ok {
			assert.LessOrEqual(t, o.Price, 150)
		}
		if o, ok := seller.GetOrder(float64(i), batch, 0.5, emptyLOB()); ok {
			assert.GreaterOrEqual(t, o.Price, 80)
		}
	}
}

func TestBestNQuotesFromCurves(t *testing.T) {
	supply, demand := market.BuildCurves(
		[]market.CurvePoint{{Price: 90, Qty: 1}, {Price: 95, Qty: 1}, {Price: 120, Qty: 2}},
		[]market.CurvePoint{{Price: 110, Qty: 1}, {Price: 100, Qty: 1}, {Price: 80, Qty: 1}},
	)

	assert.Equal(t, []float64{110, 100}, bestNBids(demand, 2), "highest bids come off the curve first")
	assert.Equal(t, []float64{90, 95}, bestNAsks(supply, 2), "lowest asks come off the curve first")

	// Asking for more units than the curve holds returns what exists.
	assert.Equal(t, []float64{110, 100, 80}, bestNBids(demand, 10))
}

func TestGDXNeverCrossesLimit(t *testing.T) {
	buyer := NewGDX("B00", 0)
	buyer.AddOrder(custBid(1, 150), false)
	seller := NewGDX("S00", 0)
	seller.AddOrder(custAsk(1, 80), false)

	batch := market.BatchResult{
		EqPrice: 100,
		EqQty:   1,
		Supply:  []market.CurvePoint{{Price: 110, Qty: 1}},
		Demand:  []market.CurvePoint{{Price: 90, Qty: 1}},
	}
	for i := 0; i < 50; i++ {
		buyer.Respond(float64(i), batch, false)
		seller.Respond(float64(i), batch, false)

		if o, ok := buyer.GetOrder(float64(i), batch, 0.5, emptyLOB()); ok {
			assert.LessOrEqual(t, o.Price, 150)
		}
		if o, ok := seller.GetOrder(float64(i), batch, 0.5, emptyLOB()); ok {
			assert.GreaterOrEqual(t, o.Price, 80)
		}
	}
}
