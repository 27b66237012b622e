package market

// EventKind discriminates tape entries.
type EventKind int

const (
	TradeEvent EventKind = iota
	CancelEvent
)

func (k EventKind) String() string {
	if k == TradeEvent {
		return "Trade"
	}
	return "Cancel"
}

// TapeEvent is one entry on the exchange tape. For trades Party1 is
// the seller and Party2 the buyer; Coid is the buyer's customer order
// id and Counter the seller's. For cancels only Party1 and Coid are
// set.
type TapeEvent struct {
	Kind    EventKind
	Time    float64
	Price   float64
	Party1  string
	Party2  string
	Qty     int
	Coid    int
	Counter int
}

// Involves reports whether tid was a counterparty to the event.
func (e TapeEvent) Involves(tid string) bool {
	return e.Party1 == tid || e.Party2 == tid
}
