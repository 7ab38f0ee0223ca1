package timeseries

import (
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

func expense(y, m, d int, cents int64) core.Transaction {
	return core.Transaction{Date: core.NewDate(y, m, d), Kind: core.Expense, Category: "x", Amount: core.Money{Cents: cents}}
}

func TestParseGranularity(t *testing.T) {
	for _, in := range []string{"month", "MONTH", " Week ", "quarter", "year"} {
		if _, err := ParseGranularity(in); err != nil {
			t.Fatalf("%q: %v", in, err)
		}
	}
	if _, err := ParseGranularity("fortnight"); err == nil {
		t.Fatalf("expected error for unsupported granularity")
	}
}

func TestGranularityLabels(t *testing.T) {
	d := core.NewDate(2025, 2, 14) // a Friday in ISO week 7
	tests := []struct {
		g    Granularity
		want string
	}{
		{Month, "2025-02"},
		{Quarter, "2025-Q1"},
		{Year, "2025"},
		{Week, "2025-W07"},
	}
	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			if got := tt.g.Label(tt.g.Ordinal(d)); got != tt.want {
				t.Errorf("Label = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWeekOrdinalBoundaries(t *testing.T) {
	sunday := core.NewDate(2025, 2, 16)
	monday := core.NewDate(2025, 2, 17)
	if Week.Ordinal(monday)-Week.Ordinal(sunday) != 1 {
		t.Fatalf("monday should start a new week")
	}
	if got := Week.Start(Week.Ordinal(sunday)); !got.Equal(core.NewDate(2025, 2, 10).Time) {
		t.Fatalf("week start = %v", got)
	}
	old := core.NewDate(1969, 12, 31)
	if got := Week.Label(Week.Ordinal(old)); got != "1970-W01" {
		t.Fatalf("pre-epoch week label = %q", got)
	}
}

func TestMonthOrdinalConsecutiveAcrossYears(t *testing.T) {
	dec := Month.Ordinal(core.NewDate(2024, 12, 31))
	jan := Month.Ordinal(core.NewDate(2025, 1, 1))
	if jan-dec != 1 {
		t.Fatalf("december to january should be one period, got %d", jan-dec)
	}
	if got := Month.Start(jan); !got.Equal(core.NewDate(2025, 1, 1).Time) {
		t.Fatalf("start = %v", got)
	}
	if got := Quarter.Start(Quarter.Ordinal(core.NewDate(2025, 8, 9))); !got.Equal(core.NewDate(2025, 7, 1).Time) {
		t.Fatalf("quarter start = %v", got)
	}
}

func TestToPeriodicSeriesFillsGaps(t *testing.T) {
	txs := []core.Transaction{
		expense(2025, 3, 2, 500),
		expense(2024, 11, 20, 1000),
		expense(2024, 11, 3, 250),
		{Date: core.NewDate(2025, 5, 1), Kind: core.Income, Category: "Salary", Amount: core.Money{Cents: 99999}},
	}
	s := ToPeriodicSeries(txs, Month, core.Expense)

	wantLabels := []string{"2024-11", "2024-12", "2025-01", "2025-02", "2025-03"}
	wantTotals := []int64{1250, 0, 0, 0, 500}
	if len(s) != len(wantLabels) {
		t.Fatalf("len = %d, want %d: %+v", len(s), len(wantLabels), s)
	}
	for i, p := range s {
		if p.Index != i || p.Label != wantLabels[i] || p.Total.Cents != wantTotals[i] {
			t.Fatalf("point %d = %+v", i, p)
		}
	}
}

func TestToPeriodicSeriesEmptyAndSingle(t *testing.T) {
	if s := ToPeriodicSeries(nil, Month, core.Expense); len(s) != 0 || !s.Degenerate() {
		t.Fatalf("empty input: %+v", s)
	}
	onlyIncome := []core.Transaction{{Date: core.NewDate(2025, 1, 1), Kind: core.Income, Category: "S", Amount: core.Money{Cents: 1}}}
	if s := ToPeriodicSeries(onlyIncome, Month, core.Expense); len(s) != 0 {
		t.Fatalf("filtered-out input: %+v", s)
	}
	s := ToPeriodicSeries([]core.Transaction{expense(2025, 1, 1, 10), expense(2025, 1, 31, 20)}, Month, core.Expense)
	if len(s) != 1 || s[0].Total.Cents != 30 || !s.Degenerate() {
		t.Fatalf("single period: %+v", s)
	}
}

func TestSeriesCompletenessMatchesLedgerTotal(t *testing.T) {
	l := ledger.New()
	dates := [][3]int{{2023, 1, 15}, {2023, 7, 2}, {2024, 2, 29}, {2024, 12, 31}, {2025, 6, 1}}
	for i, d := range dates {
		if _, err := l.Add(expense(d[0], d[1], d[2], int64(100*(i+1)))); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	for _, g := range Granularities() {
		s := ToPeriodicSeries(l.All(), g, core.Expense)
		first := g.Ordinal(core.NewDate(2023, 1, 15))
		last := g.Ordinal(core.NewDate(2025, 6, 1))
		if len(s) != last-first+1 {
			t.Errorf("%s: len = %d, want %d", g, len(s), last-first+1)
		}
		if s.Sum() != l.Total(core.Expense, ledger.Filter{}) {
			t.Errorf("%s: sum = %d, want %d", g, s.Sum().Cents, l.Total(core.Expense, ledger.Filter{}).Cents)
		}
	}
}
