// Package forecast predicts the next period of a periodic series with an
// ordinary least-squares linear trend.
//
// PredictNext never fails: short, flat or otherwise degenerate input still
// yields a prediction, flagged through Result.Degenerate.
package forecast

import (
	"math"

	"bilancio/internal/core"
	"bilancio/internal/timeseries"
)

// MethodLinearTrend identifies the only model implemented.
const MethodLinearTrend = "linear-trend"

// Result is a point prediction for the period after the last one in the series.
type Result struct {
	PredictedAmount  core.Money
	BasisPeriodCount int
	Degenerate       bool
	Method           string

	// NextIndex is the independent variable the fit was evaluated at.
	NextIndex int
	// Slope and Intercept are in cents per period; zero when no fit was made.
	Slope     float64
	Intercept float64
	// RSquared is the coefficient of determination of the fit, used as the
	// confidence indicator. It is 0 for degenerate results.
	RSquared float64
	// NextPeriod labels the predicted period. PredictNext leaves it empty:
	// only the caller knows the granularity of the series.
	NextPeriod string
}

// PredictNext fits amount = slope*index + intercept over the series and
// evaluates it one period past the last index, clamped at zero.
//
//   - 0 points: prediction 0, degenerate
//   - 1 point: the observed value carried forward, degenerate
//   - constant amounts: that constant, degenerate
//   - otherwise the trend value, not degenerate
func PredictNext(series timeseries.Series) Result {
	res := Result{
		BasisPeriodCount: len(series),
		Degenerate:       true,
		Method:           MethodLinearTrend,
	}

	switch len(series) {
	case 0:
		return res
	case 1:
		res.NextIndex = series[0].Index + 1
		res.PredictedAmount = clamp(float64(series[0].Total.Cents))
		return res
	}

	last := series[len(series)-1]
	res.NextIndex = last.Index + 1

	if isConstant(series) {
		res.PredictedAmount = clamp(float64(series[0].Total.Cents))
		res.Intercept = float64(series[0].Total.Cents)
		return res
	}

	fit, ok := leastSquares(series)
	if !ok {
		// All points share one index: no trend can be fitted.
		res.PredictedAmount = clamp(fit.meanY)
		res.Intercept = fit.meanY
		return res
	}

	res.Degenerate = false
	res.Slope = fit.slope
	res.Intercept = fit.intercept
	res.RSquared = fit.rSquared
	res.PredictedAmount = clamp(fit.slope*float64(res.NextIndex) + fit.intercept)
	return res
}

type linearFit struct {
	slope     float64
	intercept float64
	rSquared  float64
	meanY     float64
}

// leastSquares computes the closed-form OLS solution from the sums of x, y, xy and x².
// ok is false when the variance of x is zero; meanY is always set.
func leastSquares(series timeseries.Series) (linearFit, bool) {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range series {
		x := float64(p.Index)
		y := float64(p.Total.Cents)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	fit := linearFit{meanY: sumY / n}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return fit, false
	}
	fit.slope = (n*sumXY - sumX*sumY) / denom
	fit.intercept = (sumY - fit.slope*sumX) / n

	var ssRes, ssTot float64
	for _, p := range series {
		y := float64(p.Total.Cents)
		predicted := fit.slope*float64(p.Index) + fit.intercept
		ssRes += (y - predicted) * (y - predicted)
		ssTot += (y - fit.meanY) * (y - fit.meanY)
	}
	if ssTot > 0 {
		fit.rSquared = math.Max(0, 1-ssRes/ssTot)
	}
	return fit, true
}

func isConstant(series timeseries.Series) bool {
	for _, p := range series[1:] {
		if p.Total.Cents != series[0].Total.Cents {
			return false
		}
	}
	return true
}

// clamp rounds a prediction in cents to the nearest cent and saturates at zero.
func clamp(cents float64) core.Money {
	if math.IsNaN(cents) || cents <= 0 {
		return core.Money{}
	}
	if cents >= math.MaxInt64 {
		return core.Money{Cents: math.MaxInt64}
	}
	return core.Money{Cents: int64(math.Round(cents))}
}
