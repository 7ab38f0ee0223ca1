// Package timeseries turns irregularly dated transactions into a complete,
// gap-filled periodic series suitable for trend fitting.
package timeseries

import (
	"bilancio/internal/core"
)

// Point is one period of a series. Index starts at 0 for the earliest period
// and increases by one per period, so it can be used directly as the
// regression's independent variable.
type Point struct {
	Index  int
	Period int // granularity ordinal
	Label  string
	Total  core.Money
}

// Series is ordered ascending by period with no missing periods.
type Series []Point

// ToPeriodicSeries sums the amounts of transactions of the given kind per period,
// spanning the earliest to the latest matching date. Periods with no matching
// transactions are present with a zero total. No matches yields an empty series.
func ToPeriodicSeries(txs []core.Transaction, g Granularity, kind core.Kind) Series {
	first, last := 0, 0
	sums := map[int]core.Money{}
	seen := false
	for _, tx := range txs {
		if tx.Kind != kind {
			continue
		}
		p := g.Ordinal(tx.Date)
		if !seen || p < first {
			first = p
		}
		if !seen || p > last {
			last = p
		}
		seen = true
		sums[p] = sums[p].Add(tx.Amount)
	}
	if !seen {
		return Series{}
	}

	out := make(Series, 0, last-first+1)
	for p := first; p <= last; p++ {
		out = append(out, Point{
			Index:  p - first,
			Period: p,
			Label:  g.Label(p),
			Total:  sums[p],
		})
	}
	return out
}

// Sum returns the total over every period.
func (s Series) Sum() core.Money {
	var total core.Money
	for _, p := range s {
		total = total.Add(p.Total)
	}
	return total
}

// Degenerate reports whether the series is too short to support a trend.
func (s Series) Degenerate() bool {
	return len(s) <= 1
}

// Last returns the final point; ok is false for an empty series.
func (s Series) Last() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}
