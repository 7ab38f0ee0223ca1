package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
	"bilancio/internal/session"
	"bilancio/internal/storage"
	"bilancio/internal/timeseries"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewJSONResponse().Data(transactionsResponse(s.session.Find(f))).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.session.Get(chi.URLParam(r, "id"))
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	NewJSONResponse().Data(transactionResponse(tx)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	tx, err := s.session.AddRecord(r.Context(), p.Record())
	if err != nil {
		ValidationErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Data(transactionResponse(tx)).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	if _, err := s.session.Get(id); err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	tx, err := core.ParseRecord(p.Record())
	if err != nil {
		ValidationErrorResponse(err).Write(w)
		return
	}
	edited, err := s.session.Edit(r.Context(), id, tx)
	if err != nil {
		ValidationErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Data(transactionResponse(edited)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			NotFoundError(err.Error()).Write(w)
			return
		}
		ErrorResponse(http.StatusInternalServerError, err.Error()).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleDeleteMatching removes every transaction matching the query filter.
// An empty filter is refused; use Reset for that.
func (s *Server) handleDeleteMatching(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if f.IsEmpty() {
		BadRequestError("refusing to delete without a filter").Write(w)
		return
	}
	n := s.session.DeleteWhere(r.Context(), f)
	NewJSONResponse().Data(map[string]int{"removed": n}).Write(w)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t := s.session.Totals(f)
	NewJSONResponse().Data(map[string]moneyJSON{
		"income":  money(t.Income),
		"expense": money(t.Expense),
		"balance": money(t.Balance),
	}).Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDateParam(r.URL.Query(), "as_of")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	body := map[string]any{"balance": money(s.session.Balance(asOf))}
	if asOf != nil {
		body["as_of"] = asOf.String()
	}
	if r.URL.Query().Get("running") == "true" {
		points := s.session.RunningBalance(asOf)
		running := make([]map[string]any, 0, len(points))
		for _, p := range points {
			running = append(running, map[string]any{
				"date":           p.Date.String(),
				"transaction_id": p.TransactionID,
				"balance":        money(p.Balance),
			})
		}
		body["running"] = running
	}
	NewJSONResponse().Data(body).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := parseKindParam(q)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	f, err := ParseFilter(q)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewJSONResponse().Data(categoriesResponse(s.session.ByCategory(kind, f))).Write(w)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	ov := s.session.Overview(f)
	NewJSONResponse().Data(map[string]any{
		"income":      money(ov.Income),
		"expense":     money(ov.Expense),
		"balance":     money(ov.Balance),
		"count":       ov.Count,
		"by_category": categoriesResponse(ov.ByCategory),
	}).Write(w)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g, err := parseGranularityParam(q)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if g == "" {
		g = timeseries.Month
	}
	kind, err := parseKindParam(q)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	series := s.session.Series(g, kind, q.Get("category"))
	NewJSONResponse().Data(map[string]any{
		"granularity": g,
		"kind":        kind,
		"points":      seriesResponse(series),
	}).Write(w)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g, err := parseGranularityParam(q)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	query := session.Query{Granularity: g, Category: q.Get("category")}
	res, alert, err := s.session.Forecast(r.Context(), query)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewJSONResponse().Data(forecastResponse(res, alert)).Write(w)
}

func (s *Server) handlePersist(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Persist(r.Context()); err != nil {
		ErrorResponse(http.StatusInternalServerError, "could not persist ledger").Write(w)
		return
	}
	NewJSONResponse().Data(map[string]int{"persisted": len(s.session.All())}).Write(w)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	report, err := s.session.Reload(r.Context())
	if err != nil {
		ErrorResponse(http.StatusInternalServerError, "could not load record store").Write(w)
		return
	}
	NewJSONResponse().Data(loadReportResponse(report)).Write(w)
}

// handleExport streams the ledger in the persisted CSV format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := storage.WriteCSV(r.Context(), w, s.session.All()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed", log.FieldError, err)
	}
}
