// Package exchange implements a batch-clearing double auction book.
// Orders accumulate between clearings; a clearing merges the incoming
// batch with the resting book, finds the equilibrium price on the
// cumulative supply/demand curves and prints every crossing pair at
// that single price.
package exchange

import (
	"sort"

	"github.com/tidwall/btree"

	"skoll/internal/market"
)

// priceLevel groups the resting orders at one price, kept in
// acceptance order.
type priceLevel struct {
	price  int
	orders []market.Order
}

type priceLevels = btree.BTreeG[*priceLevel]

// Side is one half of the book. Each trader owns at most one resting
// order per side; adding a second replaces the first. The anonymized
// depth and the best quote are rebuilt after every mutation so reads
// never pay for aggregation.
type Side struct {
	kind    market.Side
	orders  map[string]market.Order
	levels  *priceLevels
	depth   []market.Level
	best    int
	bestTID string
	hasBest bool
}

func NewSide(kind market.Side) *Side {
	// Both trees sorted least first; the bid side reads its Max.
	levels := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price < b.price
	})
	return &Side{
		kind:   kind,
		orders: map[string]market.Order{},
		levels: levels,
	}
}

// Add rests o on the side, replacing any previous order from the same
// trader. Reports whether a replacement happened.
func (s *Side) Add(o market.Order) bool {
	_, replaced := s.orders[o.TID]
	s.orders[o.TID] = o
	s.rebuild()
	return replaced
}

// Remove deletes the resting order matching o's trader, if any.
// Removing an absent order is a no-op.
func (s *Side) Remove(o market.Order) bool {
	if _, ok := s.orders[o.TID]; !ok {
		return false
	}
	delete(s.orders, o.TID)
	s.rebuild()
	return true
}

// RemoveTrader deletes tid's resting order, if any.
func (s *Side) RemoveTrader(tid string) bool {
	return s.Remove(market.Order{TID: tid})
}

func (s *Side) rebuild() {
	s.levels.Clear()
	for _, o := range s.orders {
		lvl, ok := s.levels.GetMut(&priceLevel{price: o.Price})
		if ok {
			lvl.orders = append(lvl.orders, o)
		} else {
			s.levels.Set(&priceLevel{price: o.Price, orders: []market.Order{o}})
		}
	}

	s.depth = s.depth[:0]
	s.levels.Scan(func(lvl *priceLevel) bool {
		// Acceptance order within a level.
		sort.Slice(lvl.orders, func(i, j int) bool {
			return lvl.orders[i].Toid < lvl.orders[j].Toid
		})
		qty := 0
		for _, o := range lvl.orders {
			qty += o.Qty
		}
		s.depth = append(s.depth, market.Level{Price: lvl.price, Qty: qty})
		return true
	})

	var top *priceLevel
	var ok bool
	if s.kind == market.Bid {
		top, ok = s.levels.Max()
	} else {
		top, ok = s.levels.Min()
	}
	if s.hasBest = ok; ok {
		s.best = top.price
		s.bestTID = top.orders[0].TID
	} else {
		s.best = 0
		s.bestTID = ""
	}
}

// Best returns the most competitive resting price.
func (s *Side) Best() (int, bool) {
	return s.best, s.hasBest
}

// BestTID returns the trader holding the oldest order at the best
// price.
func (s *Side) BestTID() (string, bool) {
	return s.bestTID, s.hasBest
}

// Worst is the sentinel quote an empty side shows: the least
// competitive price the system allows.
func (s *Side) Worst() int {
	if s.kind == market.Bid {
		return market.SysMinPrice
	}
	return market.SysMaxPrice
}

func (s *Side) Len() int {
	return len(s.orders)
}

// Depth returns a copy of the anonymized (price, qty) ladder in
// ascending price order.
func (s *Side) Depth() []market.Level {
	out := make([]market.Level, len(s.depth))
	copy(out, s.depth)
	return out
}

// Resting returns the resting orders in acceptance order.
func (s *Side) Resting() []market.Order {
	out := make([]market.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Toid < out[j].Toid })
	return out
}

// curvePoints lists the resting (price, qty) pairs most competitive
// first, the order cumulative curves are accumulated in.
func (s *Side) curvePoints() []market.CurvePoint {
	out := make([]market.CurvePoint, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, market.CurvePoint{Price: o.Price, Qty: o.Qty})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if s.kind == market.Bid {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}

// View assembles the public state of the side.
func (s *Side) View() market.SideView {
	return market.SideView{
		Best:    s.best,
		HasBest: s.hasBest,
		Worst:   s.Worst(),
		Orders:  len(s.orders),
		Depth:   s.Depth(),
	}
}
