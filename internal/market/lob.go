package market

// Level is one anonymized price level of a book snapshot.
type Level struct {
	Price int
	Qty   int
}

// SideView is the public state of one side of the book.
type SideView struct {
	Best    int
	HasBest bool
	Worst   int
	Orders  int
	Depth   []Level
}

// LOB is a point-in-time snapshot of the whole book, including a copy
// of the tape. Agents only ever see the market through one of these.
type LOB struct {
	Time float64
	Bids SideView
	Asks SideView
	QID  int
	Tape []TapeEvent
}

// BatchResult is what a batch clearing produces: the trades it
// printed, the post-clearing snapshot, the equilibrium found and the
// cumulative curves it was found on. EqPrice is -1 when no crossing
// exists.
type BatchResult struct {
	Trades  []TapeEvent
	LOB     LOB
	EqPrice float64
	EqQty   int
	Demand  []CurvePoint
	Supply  []CurvePoint
}
