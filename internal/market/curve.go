package market

import "sort"

// CurvePoint is one step of a cumulative supply or demand curve.
type CurvePoint struct {
	Price int
	Qty   int
}

// BuildCurves turns per-order (price, qty) lists into cumulative
// curves. supplyLOB must already be sorted with the most competitive
// ask first and demandLOB with the most competitive bid first; the
// quantities are accumulated in that order. The returned supply curve
// is sorted by descending price and the demand curve by ascending
// price, which is the layout the equilibrium search walks.
func BuildCurves(supplyLOB, demandLOB []CurvePoint) (supply, demand []CurvePoint) {
	supply = make([]CurvePoint, len(supplyLOB))
	cum := 0
	for i, p := range supplyLOB {
		cum += p.Qty
		supply[i] = CurvePoint{Price: p.Price, Qty: cum}
	}
	demand = make([]CurvePoint, len(demandLOB))
	cum = 0
	for i, p := range demandLOB {
		cum += p.Qty
		demand[i] = CurvePoint{Price: p.Price, Qty: cum}
	}
	sort.SliceStable(supply, func(i, j int) bool { return supply[i].Price > supply[j].Price })
	sort.SliceStable(demand, func(i, j int) bool { return demand[i].Price < demand[j].Price })
	return supply, demand
}

// BestBid is the highest price on the demand curve.
func BestBid(demand []CurvePoint) (int, bool) {
	if len(demand) == 0 {
		return 0, false
	}
	best := demand[0].Price
	for _, p := range demand[1:] {
		if p.Price > best {
			best = p.Price
		}
	}
	return best, true
}

// BestAsk is the lowest price on the supply curve.
func BestAsk(supply []CurvePoint) (int, bool) {
	if len(supply) == 0 {
		return 0, false
	}
	best := supply[0].Price
	for _, p := range supply[1:] {
		if p.Price < best {
			best = p.Price
		}
	}
	return best, true
}
