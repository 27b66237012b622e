package exchange

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"skoll/internal/market"
)

// tapeDumpMu serializes tape dumps across concurrently finishing
// sessions that append to the same file.
var tapeDumpMu sync.Mutex

// Exchange is the venue. All public methods are safe for concurrent
// use; a clearing holds the write lock for its whole merge-match-rest
// cycle so snapshots never observe a half-cleared book.
type Exchange struct {
	mu      sync.RWMutex
	bids    *Side
	asks    *Side
	tape    []market.TapeEvent
	quoteID int
}

func New() *Exchange {
	return &Exchange{
		bids: NewSide(market.Bid),
		asks: NewSide(market.Ask),
	}
}

// AcceptOrder rests o on its side under a freshly assigned toid.
// Reports the toid and whether a previous order from the same trader
// was replaced.
func (e *Exchange) AcceptOrder(o market.Order) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acceptOrder(o)
}

func (e *Exchange) acceptOrder(o market.Order) (int, bool) {
	o.Toid = e.quoteID
	e.quoteID++
	side := e.bids
	if o.Side == market.Ask {
		side = e.asks
	}
	return o.Toid, side.Add(o)
}

// CancelOrder removes the resting order matching o's trader and side.
// A hit is printed to the tape as a cancel; a miss is a no-op.
func (e *Exchange) CancelOrder(now float64, o market.Order) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelOrder(now, o)
}

func (e *Exchange) cancelOrder(now float64, o market.Order) bool {
	side := e.bids
	if o.Side == market.Ask {
		side = e.asks
	}
	if !side.Remove(o) {
		return false
	}
	e.tape = append(e.tape, market.TapeEvent{
		Kind:   market.CancelEvent,
		Time:   now,
		Price:  float64(o.Price),
		Party1: o.TID,
		Qty:    o.Qty,
		Coid:   o.Coid,
	})
	return true
}

// CancelTraderOrders removes every resting order tid holds, on either
// side, and reports how many were removed.
func (e *Exchange) CancelTraderOrders(now float64, tid string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, side := range []*Side{e.bids, e.asks} {
		for _, o := range side.Resting() {
			if o.TID == tid && e.cancelOrder(now, o) {
				n++
			}
		}
	}
	return n
}

// Snapshot publishes the current book state.
func (e *Exchange) Snapshot(now float64) market.LOB {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot(now)
}

func (e *Exchange) snapshot(now float64) market.LOB {
	tape := make([]market.TapeEvent, len(e.tape))
	copy(tape, e.tape)
	return market.LOB{
		Time: now,
		Bids: e.bids.View(),
		Asks: e.asks.View(),
		QID:  e.quoteID,
		Tape: tape,
	}
}

// TapeLen reports the number of tape entries so far.
func (e *Exchange) TapeLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.tape)
}

// ClearBatch runs one uniform-price clearing: the incoming batch is
// merged with the resting book, the equilibrium is located on the
// cumulative curves, every crossing pair trades at that price and
// whatever is left is re-accepted under fresh toids.
func (e *Exchange) ClearBatch(now float64, incoming []market.Order) market.BatchResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A quiet window skips the clearing: the resting book is left
	// untouched and only its curves are reported.
	if len(incoming) == 0 {
		supply, demand := market.BuildCurves(e.asks.curvePoints(), e.bids.curvePoints())
		return market.BatchResult{
			LOB:     e.snapshot(now),
			EqPrice: -1,
			Demand:  demand,
			Supply:  supply,
		}
	}

	standingBid := map[string]bool{}
	standingAsk := map[string]bool{}
	var bids, asks []*market.Order
	for _, o := range e.bids.Resting() {
		standingBid[o.TID] = true
		o := o
		bids = append(bids, &o)
	}
	for _, o := range e.asks.Resting() {
		standingAsk[o.TID] = true
		o := o
		asks = append(asks, &o)
	}
	for _, o := range incoming {
		o := o
		if o.Side == market.Bid {
			bids = append(bids, &o)
		} else {
			asks = append(asks, &o)
		}
	}

	// Price priority first, standing orders ahead of new ones on a tie.
	sort.SliceStable(bids, func(i, j int) bool {
		if bids[i].Price != bids[j].Price {
			return bids[i].Price > bids[j].Price
		}
		return standingBid[bids[i].TID] && !standingBid[bids[j].TID]
	})
	sort.SliceStable(asks, func(i, j int) bool {
		if asks[i].Price != asks[j].Price {
			return asks[i].Price < asks[j].Price
		}
		return standingAsk[asks[i].TID] && !standingAsk[asks[j].TID]
	})

	demandLOB := make([]market.CurvePoint, len(bids))
	for i, o := range bids {
		demandLOB[i] = market.CurvePoint{Price: o.Price, Qty: o.Qty}
	}
	supplyLOB := make([]market.CurvePoint, len(asks))
	for i, o := range asks {
		supplyLOB[i] = market.CurvePoint{Price: o.Price, Qty: o.Qty}
	}
	supply, demand := market.BuildCurves(supplyLOB, demandLOB)
	eq := findEquilibrium(supply, demand)

	var buyers, sellers []*market.Order
	if eq >= 0 {
		for _, o := range bids {
			if float64(o.Price) >= eq {
				buyers = append(buyers, o)
			}
		}
		for _, o := range asks {
			if float64(o.Price) <= eq {
				sellers = append(sellers, o)
			}
		}
	}

	totalBuy, totalSell := 0, 0
	for _, o := range buyers {
		totalBuy += o.Qty
	}
	for _, o := range sellers {
		totalSell += o.Qty
	}
	remaining := min(totalBuy, totalSell)

	var trades []market.TapeEvent
	for len(buyers) > 0 && len(sellers) > 0 && remaining > 0 {
		b, s := buyers[0], sellers[0]
		qty := min(remaining, min(b.Qty, s.Qty))
		rec := market.TapeEvent{
			Kind:    market.TradeEvent,
			Time:    now,
			Price:   eq,
			Party1:  s.TID,
			Party2:  b.TID,
			Qty:     qty,
			Coid:    b.Coid,
			Counter: s.Coid,
		}
		trades = append(trades, rec)
		e.tape = append(e.tape, rec)
		b.Qty -= qty
		s.Qty -= qty
		remaining -= qty
		if b.Qty == 0 {
			if standingBid[b.TID] {
				e.cancelOrder(now, *b)
			}
			buyers = buyers[1:]
		}
		if s.Qty == 0 {
			if standingAsk[s.TID] {
				e.cancelOrder(now, *s)
			}
			sellers = sellers[1:]
		}
	}

	// Rebuild the book from whatever survived, in priority order so
	// fresh toids preserve standing precedence.
	for _, o := range bids {
		if o.Qty > 0 {
			e.acceptOrder(*o)
		}
	}
	for _, o := range asks {
		if o.Qty > 0 {
			e.acceptOrder(*o)
		}
	}

	if len(trades) > 0 {
		log.Debug().
			Float64("time", now).
			Float64("eq", eq).
			Int("trades", len(trades)).
			Msg("batch cleared")
	}

	return market.BatchResult{
		Trades:  trades,
		LOB:     e.snapshot(now),
		EqPrice: eq,
		EqQty:   len(trades),
		Demand:  demand,
		Supply:  supply,
	}
}

// findEquilibrium walks the demand curve, pairing each point with the
// highest-priced supply point it can afford and keeping the pairings
// with the smallest quantity imbalance. The equilibrium is the
// midpoint of the averaged retained supply and demand prices, or -1
// when no demand point has an eligible supplier.
func findEquilibrium(supply, demand []market.CurvePoint) float64 {
	var supPrices, demPrices []float64
	smallest := math.Inf(1)
	for _, d := range demand {
		found := false
		var best market.CurvePoint
		// Supply is sorted by descending price, so the first
		// affordable point is the highest-priced one.
		for _, s := range supply {
			if s.Price <= d.Price {
				best = s
				found = true
				break
			}
		}
		if !found {
			continue
		}
		net := math.Abs(float64(d.Qty - best.Qty))
		switch {
		case net < smallest:
			smallest = net
			supPrices = []float64{float64(best.Price)}
			demPrices = []float64{float64(d.Price)}
		case net == smallest:
			supPrices = append(supPrices, float64(best.Price))
			demPrices = append(demPrices, float64(d.Price))
		}
	}
	if len(supPrices) == 0 {
		return -1
	}
	return (mean(supPrices) + mean(demPrices)) / 2
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// DumpTape appends every trade on the tape to w as "time, price"
// rows, optionally wiping the tape afterwards. Dumps from different
// exchanges are serialized so interleaved sessions cannot mangle a
// shared file.
func (e *Exchange) DumpTape(w io.Writer, wipe bool) error {
	tapeDumpMu.Lock()
	defer tapeDumpMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.tape {
		if ev.Kind != market.TradeEvent {
			continue
		}
		if _, err := fmt.Fprintf(w, "%v, %v\n", ev.Time, ev.Price); err != nil {
			return fmt.Errorf("dump tape: %w", err)
		}
	}
	if wipe {
		e.tape = nil
	}
	return nil
}
