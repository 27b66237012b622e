// Package trader defines the agent contract the session orchestrator
// drives and the strategies that implement it. Every agent works at
// most one customer order at a time and must never quote through its
// limit price.
package trader

import (
	"errors"
	"fmt"
	"sync"

	"skoll/internal/market"
)

var (
	ErrUnknownStrategy      = errors.New("unknown trader strategy")
	ErrUnknownCustomerOrder = errors.New("trade matches no customer order")
	ErrNegativeProfit       = errors.New("trade booked at a loss")
)

// Response tells the caller what to do about the agent's previous
// quote when a new customer order arrives.
type Response int

const (
	Proceed Response = iota
	CancelPrevious
)

// Agent is what the orchestrator drives. GetOrder and Respond are
// called from the agent's own goroutine; AddOrder and LastQuote are
// called from the driver, so implementations guard shared state.
type Agent interface {
	ID() string
	Type() string

	// AddOrder assigns a customer order to work. CancelPrevious means
	// the agent still has a live quote that must be withdrawn.
	AddOrder(o market.Order, verbose bool) Response

	// Respond lets the agent update internal state from a batch
	// outcome or book snapshot.
	Respond(now float64, batch market.BatchResult, verbose bool)

	// GetOrder produces the agent's quote, if it wants to place one.
	GetOrder(now float64, batch market.BatchResult, timeLeft float64, lob market.LOB) (market.Order, bool)

	// Bookkeep settles one of the agent's own trades. A trade that
	// matches no working order or books a loss is a contract
	// violation.
	Bookkeep(trade market.TapeEvent, verbose bool, now float64) error

	Balance() float64
	TradeCount() int
	LastQuote() (market.Order, bool)
	LimitFor(coid int) (int, bool)
	MarkQuote(o market.Order)
	Times() *[4]float64
}

// Trader carries the state every strategy shares. It satisfies the
// bookkeeping half of Agent; strategies embed it and provide GetOrder
// and, where needed, Respond.
type Trader struct {
	ttype string
	tid   string

	mu            sync.Mutex
	balance       float64
	blotter       []market.TapeEvent
	orders        map[int]market.Order
	nQuotes       int
	birth         float64
	profitPerTime float64
	nTrades       int
	lastQuote     market.Order
	hasQuote      bool
	times         [4]float64
}

func newTrader(ttype, tid string, birth float64) Trader {
	return Trader{
		ttype:  ttype,
		tid:    tid,
		orders: map[int]market.Order{},
		birth:  birth,
	}
}

func (t *Trader) ID() string   { return t.tid }
func (t *Trader) Type() string { return t.ttype }

func (t *Trader) Balance() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance
}

func (t *Trader) TradeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nTrades
}

func (t *Trader) AddOrder(o market.Order, verbose bool) Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	resp := Proceed
	if t.nQuotes > 0 {
		resp = CancelPrevious
	}
	t.orders[o.Coid] = o
	return resp
}

// Respond is a null action, shadowed by strategies that learn from
// the market.
func (t *Trader) Respond(now float64, batch market.BatchResult, verbose bool) {}

// GetOrder is shadowed by every strategy.
func (t *Trader) GetOrder(now float64, batch market.BatchResult, timeLeft float64, lob market.LOB) (market.Order, bool) {
	return market.Order{}, false
}

func (t *Trader) Bookkeep(trade market.TapeEvent, verbose bool, now float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var coid int
	if _, ok := t.orders[trade.Coid]; ok {
		coid = trade.Coid
	} else if _, ok := t.orders[trade.Counter]; ok {
		coid = trade.Counter
	} else {
		return fmt.Errorf("%w: tid=%s coid=%d counter=%d", ErrUnknownCustomerOrder, t.tid, trade.Coid, trade.Counter)
	}

	o := t.orders[coid]
	profit := trade.Price - float64(o.Price)
	if o.Side == market.Bid {
		profit = float64(o.Price) - trade.Price
	}
	if profit < 0 {
		return fmt.Errorf("%w: tid=%s limit=%d price=%v", ErrNegativeProfit, t.tid, o.Price, trade.Price)
	}

	t.blotter = append(t.blotter, trade)
	t.balance += profit
	t.nTrades++
	if now > t.birth {
		t.profitPerTime = t.balance / (now - t.birth)
	}
	delete(t.orders, coid)
	return nil
}

func (t *Trader) LastQuote() (market.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastQuote, t.hasQuote
}

// MarkQuote records o as the agent's live quote.
func (t *Trader) MarkQuote(o market.Order) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastQuote = o
	t.hasQuote = true
	t.nQuotes = 1
}

func (t *Trader) LimitFor(coid int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[coid]
	return o.Price, ok
}

func (t *Trader) Times() *[4]float64 {
	return &t.times
}

// currentOrder is the customer order being worked: the one with the
// highest coid, matching how re-quotes supersede.
func (t *Trader) currentOrder() (market.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	found := false
	var cur market.Order
	for coid, o := range t.orders {
		if !found || coid > cur.Coid {
			cur = o
			found = true
		}
	}
	return cur, found
}

// quote builds an order working cust at the given price.
func (t *Trader) quote(cust market.Order, price int, now float64) market.Order {
	return market.Order{
		TID:   t.tid,
		Side:  cust.Side,
		Price: price,
		Qty:   cust.Qty,
		Time:  now,
		Coid:  cust.Coid,
		Toid:  cust.Toid,
	}
}

func (t *Trader) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("[TID %s type %s balance %.2f n_trades %d profit_per_time %.4f]",
		t.tid, t.ttype, t.balance, t.nTrades, t.profitPerTime)
}
