package exchange

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"skoll/internal/market"
)

func TestAcceptOrderVisibleInSnapshot(t *testing.T) {
	e := New()
	toid, replaced := e.AcceptOrder(bidAt("B00", 100, 1, 0))
	assert.Equal(t, 0, toid)
	assert.False(t, replaced)

	lob := e.Snapshot(1.0)
	assert.True(t, lob.Bids.HasBest)
	assert.Equal(t, 100, lob.Bids.Best)
	assert.Equal(t, 1, lob.Bids.Orders)
	assert.Equal(t, 1, lob.QID)
}

func TestCancelOrder(t *testing.T) {
	e := New()
	e.AcceptOrder(askAt("S00", 90, 1, 0))

	// Cancelling an absent order changes nothing.
	assert.False(t, e.CancelOrder(1.0, askAt("S01", 90, 1, 0)))
	assert.Equal(t, 0, e.TapeLen())

	assert.True(t, e.CancelOrder(2.0, askAt("S00", 90, 1, 0)))
	lob := e.Snapshot(2.0)
	assert.False(t, lob.Asks.HasBest)
	assert.Len(t, lob.Tape, 1)
	assert.Equal(t, market.CancelEvent, lob.Tape[0].Kind)
	assert.Equal(t, "S00", lob.Tape[0].Party1)
}

func TestClearBatchSinglePair(t *testing.T) {
	// 1. Setup: one crossing pair, bid 100 against ask 90.
	e := New()
	res := e.ClearBatch(1.0, []market.Order{
		{TID: "B00", Side: market.Bid, Price: 100, Qty: 1, Coid: 1},
		{TID: "S00", Side: market.Ask, Price: 90, Qty: 1, Coid: 2},
	})

	// 2. One trade at the curve midpoint, book left empty.
	assert.Equal(t, 95.0, res.EqPrice)
	assert.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, 95.0, trade.Price)
	assert.Equal(t, "S00", trade.Party1)
	assert.Equal(t, "B00", trade.Party2)
	assert.Equal(t, 1, trade.Coid)
	assert.Equal(t, 2, trade.Counter)
	assert.False(t, res.LOB.Bids.HasBest)
	assert.False(t, res.LOB.Asks.HasBest)
}

func TestClearBatchEquilibrium(t *testing.T) {
	// 1. Setup: three bids and three asks with a crossed middle.
	e := New()
	res := e.ClearBatch(1.0, []market.Order{
		{TID: "B00", Side: market.Bid, Price: 110, Qty: 1, Coid: 1},
		{TID: "B01", Side: market.Bid, Price: 100, Qty: 1, Coid: 2},
		{TID: "B02", Side: market.Bid, Price: 90, Qty: 1, Coid: 3},
		{TID: "S00", Side: market.Ask, Price: 85, Qty: 1, Coid: 4},
		{TID: "S01", Side: market.Ask, Price: 95, Qty: 1, Coid: 5},
		{TID: "S02", Side: market.Ask, Price: 105, Qty: 1, Coid: 6},
	})

	// 2. Equilibrium pairs the balanced (95, 100) curve points.
	assert.Equal(t, 97.5, res.EqPrice)
	assert.Len(t, res.Trades, 2)
	for _, trade := range res.Trades {
		assert.Equal(t, 97.5, trade.Price, "every fill should print at the clearing price")
	}

	// 3. The uncrossed tail survives on the book.
	assert.Equal(t, 90, res.LOB.Bids.Best)
	assert.Equal(t, 105, res.LOB.Asks.Best)
	assert.Equal(t, 1, res.LOB.Bids.Orders)
	assert.Equal(t, 1, res.LOB.Asks.Orders)
}

func TestClearBatchNoCross(t *testing.T) {
	e := New()
	res := e.ClearBatch(1.0, []market.Order{
		{TID: "B00", Side: market.Bid, Price: 80, Qty: 1, Coid: 1},
		{TID: "S00", Side: market.Ask, Price: 120, Qty: 1, Coid: 2},
	})

	assert.Equal(t, -1.0, res.EqPrice)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 80, res.LOB.Bids.Best)
	assert.Equal(t, 120, res.LOB.Asks.Best)
}

func TestClearBatchEmptyWindow(t *testing.T) {
	// A crossed resting book must not trade until a new order arrives.
	e := New()
	e.AcceptOrder(market.Order{TID: "B00", Side: market.Bid, Price: 100, Qty: 1, Coid: 1})
	e.AcceptOrder(market.Order{TID: "S00", Side: market.Ask, Price: 90, Qty: 1, Coid: 2})

	res := e.ClearBatch(1.0, nil)

	assert.Equal(t, -1.0, res.EqPrice)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 0, e.TapeLen())

	// Book untouched, curves still reported.
	assert.Equal(t, 100, res.LOB.Bids.Best)
	assert.Equal(t, 90, res.LOB.Asks.Best)
	assert.Equal(t, []market.CurvePoint{{Price: 100, Qty: 1}}, res.Demand)
	assert.Equal(t, []market.CurvePoint{{Price: 90, Qty: 1}}, res.Supply)
}

func TestClearBatchStandingPriority(t *testing.T) {
	// 1. Setup: a resting bid and a same-priced incoming bid compete
	// for a single ask.
	e := New()
	e.AcceptOrder(market.Order{TID: "B00", Side: market.Bid, Price: 100, Qty: 1, Coid: 1})
	res := e.ClearBatch(1.0, []market.Order{
		{TID: "B01", Side: market.Bid, Price: 100, Qty: 1, Coid: 2},
		{TID: "S00", Side: market.Ask, Price: 100, Qty: 1, Coid: 3},
	})

	// 2. The resting bid fills first on the price tie.
	assert.Len(t, res.Trades, 1)
	assert.Equal(t, "B00", res.Trades[0].Party2)
	assert.Equal(t, 100, res.LOB.Bids.Best, "the incoming bid should survive on the book")
}

func TestClearBatchOrderInsensitive(t *testing.T) {
	batch := []market.Order{
		{TID: "B00", Side: market.Bid, Price: 110, Qty: 1, Coid: 1},
		{TID: "B01", Side: market.Bid, Price: 100, Qty: 1, Coid: 2},
		{TID: "S00", Side: market.Ask, Price: 85, Qty: 1, Coid: 3},
		{TID: "S01", Side: market.Ask, Price: 95, Qty: 1, Coid: 4},
	}
	reversed := make([]market.Order, len(batch))
	for i, o := range batch {
		reversed[len(batch)-1-i] = o
	}

	a := New().ClearBatch(1.0, batch)
	b := New().ClearBatch(1.0, reversed)

	assert.Equal(t, a.EqPrice, b.EqPrice, "the clearing price should not depend on arrival order")
	assert.Equal(t, len(a.Trades), len(b.Trades))
}

func TestClearBatchMultiUnit(t *testing.T) {
	// A 5-lot bid against two 2-lot asks trades exactly 4 units.
	e := New()
	res := e.ClearBatch(1.0, []market.Order{
		{TID: "B00", Side: market.Bid, Price: 100, Qty: 5, Coid: 1},
		{TID: "S00", Side: market.Ask, Price: 90, Qty: 2, Coid: 2},
		{TID: "S01", Side: market.Ask, Price: 90, Qty: 2, Coid: 3},
	})

	traded := 0
	for _, trade := range res.Trades {
		traded += trade.Qty
	}
	assert.Equal(t, 4, traded)
	assert.Equal(t, 100, res.LOB.Bids.Best, "the unfilled lot should re-rest")
	assert.False(t, res.LOB.Asks.HasBest)
}

func TestClearBatchCancelsFilledStandingOrders(t *testing.T) {
	e := New()
	e.AcceptOrder(market.Order{TID: "B00", Side: market.Bid, Price: 100, Qty: 1, Coid: 1})
	res := e.ClearBatch(1.0, []market.Order{
		{TID: "S00", Side: market.Ask, Price: 90, Qty: 1, Coid: 2},
	})

	assert.Len(t, res.Trades, 1)
	cancels := 0
	for _, ev := range res.LOB.Tape {
		if ev.Kind == market.CancelEvent {
			cancels++
			assert.Equal(t, "B00", ev.Party1)
		}
	}
	assert.Equal(t, 1, cancels, "a fully filled resting order should leave a cancel on the tape")
}

func TestDumpTape(t *testing.T) {
	e := New()
	e.ClearBatch(1.0, []market.Order{
		{TID: "B00", Side: market.Bid, Price: 100, Qty: 1, Coid: 1},
		{TID: "S00", Side: market.Ask, Price: 90, Qty: 1, Coid: 2},
	})

	var out strings.Builder
	assert.NoError(t, e.DumpTape(&out, true))
	assert.Equal(t, "1, 95\n", out.String())

	// Wiped, so a second dump writes nothing.
	out.Reset()
	assert.NoError(t, e.DumpTape(&out, false))
	assert.Empty(t, out.String())
}

func TestFindEquilibriumEmpty(t *testing.T) {
	assert.Equal(t, -1.0, findEquilibrium(nil, nil))
	assert.Equal(t, -1.0, findEquilibrium(
		[]market.CurvePoint{{Price: 120, Qty: 1}},
		[]market.CurvePoint{{Price: 80, Qty: 1}},
	))
}
