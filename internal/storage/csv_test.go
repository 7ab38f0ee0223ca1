package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bilancio/internal/core"
)

func sampleTransactions() []core.Transaction {
	return []core.Transaction{
		{Date: core.NewDate(2025, 1, 10), Kind: core.Income, Category: "Salary", Amount: core.Money{Cents: 250000}, Description: "January"},
		{Date: core.NewDate(2025, 1, 12), Kind: core.Expense, Category: "Groceries", Amount: core.Money{Cents: 4550}, Description: "market, weekly"},
		{Date: core.NewDate(2025, 2, 1), Kind: core.Expense, Category: "Rent", Amount: core.Money{Cents: 80000}},
	}
}

func TestReadCSV(t *testing.T) {
	input := "Type,Date,Category,Amount,Description,extra\n" +
		"Expense,2025-01-12,Groceries,45.50,weekly,x\n" +
		"\n" +
		"Income,2025-01-10,Salary,2500\n"

	records, err := ReadCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ReadCSV() got %d records, want 2", len(records))
	}

	first := records[0]
	if first.Line != 2 || first.Kind != "Expense" || first.Date != "2025-01-12" || first.Amount != "45.50" || first.Description != "weekly" {
		t.Errorf("ReadCSV() first record = %+v", first)
	}
	second := records[1]
	if second.Line != 4 || second.Description != "" {
		t.Errorf("ReadCSV() short row = %+v, want line 4 with empty description", second)
	}
}

func TestReadCSV_Empty(t *testing.T) {
	records, err := ReadCSV(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("ReadCSV() got %d records, want 0", len(records))
	}
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader("date,amount\n2025-01-01,3\n"))
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("ReadCSV() error = %v, want ErrMissingColumns", err)
	}
	if !strings.Contains(err.Error(), "kind") || !strings.Contains(err.Error(), "category") {
		t.Errorf("ReadCSV() error = %v, want missing columns named", err)
	}
}

func TestCSVStore_MissingFileLoadsEmpty(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "none.csv"))
	records, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Load() got %d records, want 0", len(records))
	}
}

func TestCSVStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "transactions.csv")
	s := NewCSVStore(path)
	ctx := context.Background()
	want := sampleTransactions()

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !strings.HasPrefix(string(data), "date,kind,category,amount,description\n") {
		t.Errorf("saved file header = %q", strings.SplitN(string(data), "\n", 2)[0])
	}

	records, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != len(want) {
		t.Fatalf("Load() got %d records, want %d", len(records), len(want))
	}
	for i, r := range records {
		got, err := core.ParseRecord(r)
		if err != nil {
			t.Fatalf("record %d: ParseRecord() error = %v", i, err)
		}
		w := want[i]
		if !got.Date.Equal(w.Date.Time) || got.Kind != w.Kind || got.Category != w.Category || got.Amount != w.Amount || got.Description != w.Description {
			t.Errorf("record %d = %+v, want %+v", i, got, w)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the data file", len(entries))
	}
}

func TestCSVStore_SaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	s := NewCSVStore(path)
	ctx := context.Background()
	if err := s.Save(ctx, sampleTransactions()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, nil); err != nil {
		t.Fatalf("Save(nil) error = %v", err)
	}
	records, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Load() after empty save got %d records, want 0", len(records))
	}
}
