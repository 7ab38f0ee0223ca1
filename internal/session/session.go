// Package session binds one authenticated user to a ledger loaded from a
// record store. Every call is serialised so a single Session may be shared by
// concurrent HTTP handlers.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/forecast"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/storage"
	"bilancio/internal/timeseries"
)

var ErrNoPrincipal = errors.New("session requires an authenticated principal")

// Publisher delivers triggered budget alerts, e.g. *amqp.Client.
type Publisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

type Options struct {
	Logger    *log.Logger
	Publisher Publisher
	// AlertRatio defaults to forecast.DefaultAlertRatio.
	AlertRatio float64
	// Granularity is used by Forecast when the query leaves it empty.
	Granularity timeseries.Granularity
}

type Session struct {
	mu        sync.Mutex
	principal auth.Principal
	store     storage.Store
	ledger    *ledger.Ledger
	report    ledger.LoadReport
	dirty     bool

	logger      *log.Logger
	publisher   Publisher
	ratio       float64
	granularity timeseries.Granularity
}

// Totals is income, expense and their difference over one filter.
type Totals struct {
	Income  core.Money
	Expense core.Money
	Balance core.Money
}

// Query selects what Forecast predicts.
type Query struct {
	Granularity timeseries.Granularity
	// Category restricts the series to one category (exact, case-insensitive).
	// Empty means every expense.
	Category string
}

// Open loads the store into a fresh ledger for principal.
func Open(ctx context.Context, principal auth.Principal, store storage.Store, opts Options) (*Session, error) {
	if principal.IsZero() {
		return nil, ErrNoPrincipal
	}
	if store == nil {
		return nil, errors.New("session requires a record store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	ratio := opts.AlertRatio
	if ratio <= 0 {
		ratio = forecast.DefaultAlertRatio
	}
	g := opts.Granularity
	if g == "" {
		g = timeseries.Month
	}

	s := &Session{
		principal:   principal,
		store:       store,
		ledger:      ledger.New(),
		logger:      logger.WithComponent(log.ComponentSession).With(log.FieldUser, principal.Email),
		publisher:   opts.Publisher,
		ratio:       ratio,
		granularity: g,
	}
	if _, err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Principal() auth.Principal {
	return s.principal
}

// Granularity is the default forecast granularity.
func (s *Session) Granularity() timeseries.Granularity {
	return s.granularity
}

// Report returns the outcome of the last load.
func (s *Session) Report() ledger.LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Dirty reports whether the ledger changed since the last load or persist.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Reload discards in-memory changes and loads the store again.
func (s *Session) Reload(ctx context.Context) (ledger.LoadReport, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load record store", log.FieldError, err)
		return ledger.LoadReport{}, fmt.Errorf("load records: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	report := s.ledger.Load(records)
	s.report = report
	s.dirty = false
	s.logReport(ctx, report)
	metrics.LedgerSize.Set(float64(s.ledger.Len()))
	return report, nil
}

func (s *Session) logReport(ctx context.Context, report ledger.LoadReport) {
	for _, e := range report.Errors {
		s.logger.WarnContext(ctx, "Skipped invalid record",
			log.FieldLine, e.Line,
			log.FieldField, e.Field,
			log.FieldReason, e.Reason())
		metrics.RecordsSkipped.WithLabelValues(e.Field).Inc()
	}
	metrics.RecordsLoaded.Add(float64(report.Loaded))
	s.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldLoaded, report.Loaded,
		log.FieldSkipped, report.Skipped)
}

// Add validates and appends one transaction.
func (s *Session) Add(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.ledger.Add(tx)
	if err != nil {
		s.rejected(ctx, log.OpCreate, err)
		return core.Transaction{}, err
	}
	s.changed()
	s.logger.InfoContext(ctx, "Transaction added", log.NewFields().
		WithOperation(log.OpCreate).
		WithTransaction(added.ID, added.Kind.String(), added.Category, added.Amount.Cents).
		ToSlice()...)
	return added, nil
}

// AddRecord parses a raw record and appends it.
func (s *Session) AddRecord(ctx context.Context, raw core.RawRecord) (core.Transaction, error) {
	tx, err := core.ParseRecord(raw)
	if err != nil {
		s.mu.Lock()
		s.rejected(ctx, log.OpCreate, err)
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	return s.Add(ctx, tx)
}

// Delete removes the transaction with the given id.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger.Remove(ledger.Filter{IDs: []string{id}}) == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrNotFound, id)
	}
	s.changed()
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldOperation, log.OpDelete, log.FieldTransaction, id)
	return nil
}

// DeleteWhere removes every transaction matching f and returns how many went.
func (s *Session) DeleteWhere(ctx context.Context, f ledger.Filter) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.ledger.Remove(f)
	if n > 0 {
		s.changed()
		s.logger.InfoContext(ctx, "Transactions deleted", log.FieldOperation, log.OpDelete, "count", n)
	}
	return n
}

// Edit replaces the transaction id with tx. The edited transaction moves to
// the end of the insertion order.
func (s *Session) Edit(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edited, err := s.ledger.Replace(id, tx)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			s.rejected(ctx, log.OpUpdate, err)
		}
		return core.Transaction{}, err
	}
	s.changed()
	s.logger.InfoContext(ctx, "Transaction edited", log.NewFields().
		WithOperation(log.OpUpdate).
		WithTransaction(edited.ID, edited.Kind.String(), edited.Category, edited.Amount.Cents).
		ToSlice()...)
	return edited, nil
}

func (s *Session) Get(id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Get(id)
}

func (s *Session) Find(f ledger.Filter) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Find(f)
}

// All returns every transaction in insertion order.
func (s *Session) All() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.All()
}

// Totals sums income and expense over f. The filter's own kind is ignored.
func (s *Session) Totals(f ledger.Filter) Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.Kind = nil
	in := s.ledger.Total(core.Income, f)
	out := s.ledger.Total(core.Expense, f)
	return Totals{Income: in, Expense: out, Balance: core.Money{Cents: in.Cents - out.Cents}}
}

func (s *Session) Total(kind core.Kind, f ledger.Filter) core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Total(kind, f)
}

func (s *Session) Balance(asOf *core.Date) core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance(asOf)
}

func (s *Session) RunningBalance(asOf *core.Date) []ledger.BalancePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.RunningBalance(asOf)
}

func (s *Session) ByCategory(kind core.Kind, f ledger.Filter) []core.CategoryAmount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ByCategory(kind, f)
}

func (s *Session) Overview(f ledger.Filter) core.Overview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Overview(f)
}

// Series buckets the transactions of kind, optionally one category, by g.
func (s *Session) Series(g timeseries.Granularity, kind core.Kind, category string) timeseries.Series {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seriesLocked(g, kind, category)
}

func (s *Session) seriesLocked(g timeseries.Granularity, kind core.Kind, category string) timeseries.Series {
	f := ledger.OfKind(kind)
	if category != "" {
		f = f.InCategory(category, ledger.MatchExact)
	}
	return timeseries.ToPeriodicSeries(s.ledger.Find(f), g, kind)
}

// Forecast predicts next period's expense and checks it against the budget
// threshold. A triggered alert is handed to the publisher; a publishing
// failure is logged and does not fail the forecast.
func (s *Session) Forecast(ctx context.Context, q Query) (forecast.Result, forecast.Alert, error) {
	g := q.Granularity
	if g == "" {
		g = s.granularity
	}
	g, err := timeseries.ParseGranularity(string(g))
	if err != nil {
		return forecast.Result{}, forecast.Alert{}, err
	}

	s.mu.Lock()
	series := s.seriesLocked(g, core.Expense, q.Category)
	s.mu.Unlock()

	res := forecast.PredictNext(series)
	if last, ok := series.Last(); ok {
		res.NextPeriod = g.Label(last.Period + 1)
	}
	alert := forecast.CheckBudget(res, forecast.Reference(series), s.ratio)
	metrics.ObserveForecast(string(g), res.Degenerate)

	s.logger.InfoContext(ctx, "Forecast computed",
		log.FieldOperation, log.OpForecast,
		log.FieldGranularity, string(g),
		log.FieldCategory, q.Category,
		log.FieldPeriods, res.BasisPeriodCount,
		log.FieldPredicted, res.PredictedAmount.Cents,
		log.FieldDegenerate, res.Degenerate)

	if alert.Triggered {
		metrics.BudgetAlerts.Inc()
		s.logger.WarnContext(ctx, "Predicted spending exceeds budget threshold",
			log.FieldPredicted, alert.Predicted.Cents,
			"threshold_cents", alert.Threshold.Cents,
			"reference_cents", alert.Reference.Cents)
		s.publish(ctx, g, q.Category, res, alert)
	}
	return res, alert, nil
}

func (s *Session) publish(ctx context.Context, g timeseries.Granularity, category string, res forecast.Result, alert forecast.Alert) {
	if s.publisher == nil {
		return
	}
	msg := &amqp.BudgetAlertMessage{
		User:           s.principal.Email,
		Granularity:    string(g),
		Category:       category,
		Period:         res.NextPeriod,
		PredictedCents: res.PredictedAmount.Cents,
		ReferenceCents: alert.Reference.Cents,
		ThresholdCents: alert.Threshold.Cents,
		Ratio:          alert.Ratio,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.publisher.PublishBudgetAlert(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish budget alert", log.FieldError, err)
	}
}

// Persist saves the whole ledger to the store. It is never called implicitly.
func (s *Session) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	err := s.store.Save(ctx, s.ledger.All())
	metrics.PersistDuration.WithLabelValues(metrics.Result(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger", log.FieldOperation, log.OpPersist, log.FieldError, err)
		return fmt.Errorf("persist ledger: %w", err)
	}
	s.dirty = false
	s.logger.InfoContext(ctx, "Ledger persisted", log.FieldOperation, log.OpPersist, "count", s.ledger.Len())
	return nil
}

// Reset empties the in-memory ledger. The store is untouched until Persist.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Reset()
	s.changed()
	s.logger.WarnContext(ctx, "Ledger reset", log.FieldOperation, log.OpDelete)
}

func (s *Session) changed() {
	s.dirty = true
	metrics.LedgerSize.Set(float64(s.ledger.Len()))
}

func (s *Session) rejected(ctx context.Context, op string, err error) {
	field := ""
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		field = verr.Field
	}
	metrics.TransactionsRejected.WithLabelValues(field).Inc()
	s.logger.WarnContext(ctx, "Transaction rejected",
		log.FieldOperation, op,
		log.FieldField, field,
		log.FieldError, err)
}
