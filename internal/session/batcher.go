package session

import "skoll/internal/market"

// batcher accumulates the orders for the next clearing and remembers
// every coid it has ever seen, so quotes for filled customer orders
// and duplicate submissions are dropped before they reach the book.
type batcher struct {
	pending   []market.Order
	completed map[int]bool
}

func newBatcher() *batcher {
	return &batcher{completed: map[int]bool{}}
}

// add stages o for the next clearing, superseding any pending order
// from the same trader. Reports false when the coid was already seen.
func (b *batcher) add(o market.Order) bool {
	if _, seen := b.completed[o.Coid]; seen {
		return false
	}
	b.completed[o.Coid] = false

	kept := b.pending[:0]
	for _, p := range b.pending {
		if p.TID != o.TID {
			kept = append(kept, p)
		}
	}
	b.pending = append(kept, o)
	return true
}

// markDone records coids whose customer orders have traded.
func (b *batcher) markDone(coids ...int) {
	for _, coid := range coids {
		b.completed[coid] = true
	}
}

// take hands over the staged batch and resets for the next one.
func (b *batcher) take() []market.Order {
	out := b.pending
	b.pending = nil
	return out
}

func (b *batcher) len() int {
	return len(b.pending)
}
