package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"bilancio/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestParseValues(t *testing.T) {
	values := [][]interface{}{
		{"Date", "Kind", "Category", "Amount", "Description"},
		{"2025-01-10", "Income", "Salary", "2500.00", "January"},
		{"", "", "", ""},
		{"2025-01-12", "Expense", "Groceries", 45.5},
	}
	records, err := parseValues(values)
	if err != nil {
		t.Fatalf("parseValues() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("parseValues() got %d records, want 2", len(records))
	}
	if records[0].Line != 2 || records[0].Description != "January" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].Line != 4 || records[1].Amount != "45.5" || records[1].Description != "" {
		t.Errorf("second record = %+v", records[1])
	}
}

func TestParseValues_BadHeader(t *testing.T) {
	_, err := parseValues([][]interface{}{{"Primary", "Secondary"}})
	if err == nil || !strings.Contains(err.Error(), "missing date,kind,category,amount") {
		t.Errorf("parseValues() error = %v", err)
	}
}

// fakeSheets records the requests of the values API and serves one range.
type fakeSheets struct {
	mu      sync.Mutex
	values  [][]interface{}
	updated *gsheet.ValueRange
	cleared string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(gsheet.ValueRange{Values: f.values})
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		var vr gsheet.ValueRange
		json.Unmarshal(body, &vr)
		f.updated = &vr
		json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.cleared = r.URL.Path
		json.NewEncoder(w).Encode(gsheet.ClearValuesResponse{})
	default:
		http.Error(w, "unexpected request", http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewWithService(svc, "sheet-id", "Transactions")
}

func TestClient_LoadSave(t *testing.T) {
	fake := &fakeSheets{values: [][]interface{}{
		{"date", "kind", "category", "amount", "description"},
		{"2025-02-01", "Expense", "Rent", "800.00", ""},
	}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	records, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 || records[0].Category != "Rent" {
		t.Fatalf("Load() = %+v", records)
	}

	txs := []core.Transaction{
		{Date: core.NewDate(2025, 2, 1), Kind: core.Expense, Category: "Rent", Amount: core.Money{Cents: 80000}},
	}
	if err := c.Save(ctx, txs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if fake.updated == nil || len(fake.updated.Values) != 2 {
		t.Fatalf("Save() wrote %+v, want header plus one row", fake.updated)
	}
	if got := fake.updated.Values[1][3]; got != "800.00" {
		t.Errorf("Save() amount cell = %v, want 800.00", got)
	}
	if !strings.Contains(fake.cleared, "A3:E") {
		t.Errorf("Save() cleared %q, want rows from 3", fake.cleared)
	}
}
