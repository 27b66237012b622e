// Package market holds the value types shared between the exchange,
// the trading agents and the session orchestrator: orders, tape
// events, supply/demand curves and book snapshots.
package market

import "fmt"

// System-wide price bounds. Every quote is clipped into this range
// before it reaches the book.
const (
	SysMinPrice = 1
	SysMaxPrice = 500
)

// Side of the book an order rests on.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "Bid"
	case Ask:
		return "Ask"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Order is a single limit order. Coid identifies the customer order a
// quote works; it is stable across re-quotes. Toid is assigned by the
// exchange on every acceptance and is unique within a session.
type Order struct {
	TID   string
	Side  Side
	Price int
	Qty   int
	Time  float64
	Coid  int
	Toid  int
}

func (o Order) String() string {
	return fmt.Sprintf("[%s %s P=%d Q=%d T=%.2f Coid=%d Toid=%d]",
		o.TID, o.Side, o.Price, o.Qty, o.Time, o.Coid, o.Toid)
}

// ClipPrice forces p into the system price range.
func ClipPrice(p int) int {
	if p < SysMinPrice {
		return SysMinPrice
	}
	if p > SysMaxPrice {
		return SysMaxPrice
	}
	return p
}
