package forecast

import (
	"math"

	"bilancio/internal/core"
	"bilancio/internal/timeseries"
)

// DefaultAlertRatio is how far above the reference a prediction may go before an alert.
const DefaultAlertRatio = 1.2

// Alert compares a prediction against a reference spending level.
type Alert struct {
	Triggered bool
	Predicted core.Money
	Reference core.Money
	Threshold core.Money
	Ratio     float64
}

// Reference is the mean period total of the series, the spending level a
// prediction is compared with. An empty series has a zero reference.
func Reference(series timeseries.Series) core.Money {
	if len(series) == 0 {
		return core.Money{}
	}
	mean := float64(series.Sum().Cents) / float64(len(series))
	return core.Money{Cents: int64(math.Round(mean))}
}

// CheckBudget flags a prediction that exceeds ratio times the reference.
// A non-positive ratio falls back to DefaultAlertRatio. Nothing triggers
// against a zero reference.
func CheckBudget(res Result, reference core.Money, ratio float64) Alert {
	if ratio <= 0 || math.IsNaN(ratio) {
		ratio = DefaultAlertRatio
	}
	threshold := core.Money{Cents: int64(math.Round(float64(reference.Cents) * ratio))}
	return Alert{
		Triggered: reference.Cents > 0 && res.PredictedAmount.Cents > threshold.Cents,
		Predicted: res.PredictedAmount,
		Reference: reference,
		Threshold: threshold,
		Ratio:     ratio,
	}
}
