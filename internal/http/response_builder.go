// Package http exposes the session ledger as a JSON API.
//
// This file implements the Builder Pattern for constructing JSON responses.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/forecast"
	"bilancio/internal/ledger"
	"bilancio/internal/timeseries"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	data       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header sets a custom header on the response.
func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

// Data sets the value encoded as the body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the response. A nil body writes only the status.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.data)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

// ErrorResponse creates a response carrying a single error message.
func ErrorResponse(status int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(status).Data(errorBody{Error: message})
}

// BadRequestError creates a 400 response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ValidationErrorResponse maps a refused transaction to 422 with the failing
// field, or 404 when the target does not exist.
func ValidationErrorResponse(err error) *JSONResponseBuilder {
	if errors.Is(err, ledger.ErrNotFound) {
		return NotFoundError(err.Error())
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Data(errorBody{Error: verr.Reason(), Field: verr.Field, Value: verr.Value})
	}
	return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
}

type moneyJSON struct {
	Amount string `json:"amount"`
	Cents  int64  `json:"cents"`
}

func money(m core.Money) moneyJSON {
	return moneyJSON{Amount: m.String(), Cents: m.Cents}
}

type transactionJSON struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Amount      moneyJSON `json:"amount"`
	Description string    `json:"description"`
}

func transactionResponse(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Kind:        tx.Kind.String(),
		Category:    tx.Category,
		Amount:      money(tx.Amount),
		Description: tx.Description,
	}
}

func transactionsResponse(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse(tx))
	}
	return out
}

type categoryJSON struct {
	Name   string    `json:"name"`
	Amount moneyJSON `json:"amount"`
	Count  int       `json:"count"`
}

func categoriesResponse(cats []core.CategoryAmount) []categoryJSON {
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryJSON{Name: c.Name, Amount: money(c.Amount), Count: c.Count})
	}
	return out
}

type pointJSON struct {
	Index int       `json:"index"`
	Label string    `json:"label"`
	Total moneyJSON `json:"total"`
}

func seriesResponse(series timeseries.Series) []pointJSON {
	out := make([]pointJSON, 0, len(series))
	for _, p := range series {
		out = append(out, pointJSON{Index: p.Index, Label: p.Label, Total: money(p.Total)})
	}
	return out
}

type forecastJSON struct {
	PredictedAmount  moneyJSON `json:"predicted_amount"`
	BasisPeriodCount int       `json:"basis_period_count"`
	Degenerate       bool      `json:"degenerate"`
	Method           string    `json:"method"`
	Period           string    `json:"period,omitempty"`
	Slope            float64   `json:"slope"`
	Intercept        float64   `json:"intercept"`
	RSquared         float64   `json:"r_squared"`
	Alert            alertJSON `json:"alert"`
}

type alertJSON struct {
	Triggered bool      `json:"triggered"`
	Reference moneyJSON `json:"reference"`
	Threshold moneyJSON `json:"threshold"`
	Ratio     float64   `json:"ratio"`
}

func forecastResponse(res forecast.Result, alert forecast.Alert) forecastJSON {
	return forecastJSON{
		PredictedAmount:  money(res.PredictedAmount),
		BasisPeriodCount: res.BasisPeriodCount,
		Degenerate:       res.Degenerate,
		Method:           res.Method,
		Period:           res.NextPeriod,
		Slope:            res.Slope,
		Intercept:        res.Intercept,
		RSquared:         res.RSquared,
		Alert: alertJSON{
			Triggered: alert.Triggered,
			Reference: money(alert.Reference),
			Threshold: money(alert.Threshold),
			Ratio:     alert.Ratio,
		},
	}
}

type loadReportJSON struct {
	Loaded  int               `json:"loaded"`
	Skipped int               `json:"skipped"`
	Errors  []skippedLineJSON `json:"errors"`
}

type skippedLineJSON struct {
	Line   int    `json:"line"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func loadReportResponse(report ledger.LoadReport) loadReportJSON {
	out := loadReportJSON{Loaded: report.Loaded, Skipped: report.Skipped, Errors: []skippedLineJSON{}}
	for _, e := range report.Errors {
		out.Errors = append(out.Errors, skippedLineJSON{Line: e.Line, Field: e.Field, Reason: e.Reason()})
	}
	return out
}
