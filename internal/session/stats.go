package session

import (
	"fmt"
	"io"
	"sort"

	"skoll/internal/trader"
)

type typeStats struct {
	n          int
	balanceSum float64
	tradesSum  int
	time1      float64
	time2      float64
}

// TradeStats aggregates per-strategy results into one CSV row keyed
// by the trial id. A trial where every strategy's balance sum is zero
// is degenerate: nothing is written and true is returned so the
// caller reruns it.
func TradeStats(expID string, traders map[string]trader.Agent, w io.Writer) (bool, error) {
	byType := map[string]*typeStats{}

	for _, ag := range traders {
		stats, ok := byType[ag.Type()]
		if !ok {
			stats = &typeStats{}
			byType[ag.Type()] = stats
		}
		stats.balanceSum += ag.Balance()
		stats.tradesSum += ag.TradeCount()
		stats.n++

		if _, quoted := ag.LastQuote(); quoted {
			times := ag.Times()
			if times[2] > 0 {
				stats.time1 += times[0] / times[2]
			}
			if times[3] > 0 {
				stats.time2 += times[1] / times[3]
			}
		}
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	checkSum := 0.0
	for _, t := range types {
		checkSum += byType[t].balanceSum
	}
	if checkSum == 0 {
		return true, nil
	}

	if _, err := fmt.Fprintf(w, "%s", expID); err != nil {
		return false, err
	}
	for _, t := range types {
		stats := byType[t]
		n := float64(stats.n)
		_, err := fmt.Fprintf(w, ", %s, %v, %d, %.2f, %.2f, %.8f, %.8f",
			t, stats.balanceSum, stats.n,
			stats.balanceSum/n, float64(stats.tradesSum)/n,
			stats.time1/n, stats.time2/n)
		if err != nil {
			return false, err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return false, err
	}
	return false, nil
}
