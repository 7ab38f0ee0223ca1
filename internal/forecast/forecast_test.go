package forecast

import (
	"math/rand"
	"reflect"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/timeseries"
)

// seriesOf builds a series from amounts in currency units, indices starting at 0.
func seriesOf(amounts ...int64) timeseries.Series {
	s := make(timeseries.Series, len(amounts))
	for i, a := range amounts {
		s[i] = timeseries.Point{Index: i, Period: i, Total: core.Money{Cents: a * 100}}
	}
	return s
}

func TestPredictNext(t *testing.T) {
	tests := []struct {
		name       string
		series     timeseries.Series
		want       int64 // cents
		degenerate bool
	}{
		{"empty", seriesOf(), 0, true},
		{"single point carries forward", seriesOf(1250), 125000, true},
		{"constant series", seriesOf(3000, 3000, 3000), 300000, true},
		{"all zero", seriesOf(0, 0, 0, 0), 0, true},
		{"perfect linear trend", seriesOf(1000, 2000, 3000), 400000, false},
		{"two points", seriesOf(100, 300), 50000, false},
		{"downward trend clamps at zero", seriesOf(3000, 1500, 100), 0, false},
		{"noisy upward", seriesOf(10, 30, 20, 40), 4500, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PredictNext(tt.series)
			if got.PredictedAmount.Cents != tt.want {
				t.Errorf("PredictedAmount = %d, want %d", got.PredictedAmount.Cents, tt.want)
			}
			if got.Degenerate != tt.degenerate {
				t.Errorf("Degenerate = %v, want %v", got.Degenerate, tt.degenerate)
			}
			if got.BasisPeriodCount != len(tt.series) {
				t.Errorf("BasisPeriodCount = %d, want %d", got.BasisPeriodCount, len(tt.series))
			}
			if got.Method != MethodLinearTrend {
				t.Errorf("Method = %q", got.Method)
			}
		})
	}
}

func TestPredictNextFitDetails(t *testing.T) {
	got := PredictNext(seriesOf(1000, 2000, 3000))
	if got.Slope != 100000 || got.Intercept != 100000 || got.RSquared != 1 || got.NextIndex != 3 {
		t.Fatalf("unexpected fit: %+v", got)
	}
}

func TestPredictNextZeroIndexVariance(t *testing.T) {
	s := timeseries.Series{
		{Index: 4, Total: core.Money{Cents: 100}},
		{Index: 4, Total: core.Money{Cents: 300}},
	}
	got := PredictNext(s)
	if got.PredictedAmount.Cents != 200 || !got.Degenerate {
		t.Fatalf("expected mean fallback, got %+v", got)
	}
}

func TestPredictNextDeterministicAndNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		n := rng.Intn(12)
		amounts := make([]int64, n)
		for i := range amounts {
			amounts[i] = rng.Int63n(5000)
		}
		s := seriesOf(amounts...)
		first := PredictNext(s)
		second := PredictNext(s)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("round %d: results differ: %+v vs %+v", round, first, second)
		}
		if first.PredictedAmount.Cents < 0 {
			t.Fatalf("round %d: negative prediction %+v", round, first)
		}
		if n <= 1 && !first.Degenerate {
			t.Fatalf("round %d: short series not degenerate", round)
		}
	}
}

func TestCheckBudget(t *testing.T) {
	series := seriesOf(100, 100, 100, 100)
	ref := Reference(series)
	if ref.Cents != 10000 {
		t.Fatalf("reference = %d", ref.Cents)
	}

	res := Result{PredictedAmount: core.Money{Cents: 12001}}
	if a := CheckBudget(res, ref, 0); !a.Triggered || a.Threshold.Cents != 12000 || a.Ratio != DefaultAlertRatio {
		t.Fatalf("expected alert, got %+v", a)
	}
	res.PredictedAmount.Cents = 12000
	if a := CheckBudget(res, ref, 1.2); a.Triggered {
		t.Fatalf("prediction at threshold should not alert: %+v", a)
	}
	if a := CheckBudget(Result{PredictedAmount: core.Money{Cents: 1}}, core.Money{}, 1.2); a.Triggered {
		t.Fatalf("zero reference should not alert")
	}
	if Reference(nil).Cents != 0 {
		t.Fatalf("empty reference should be zero")
	}
}
