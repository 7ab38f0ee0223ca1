package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	records, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on empty database error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("Load() got %d records, want 0", len(records))
	}

	want := sampleTransactions()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// a second save replaces rather than appends
	if err := s.Save(ctx, want[:2]); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	records, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Load() got %d records, want 2", len(records))
	}
	for i, r := range records {
		if r.Line != i+1 {
			t.Errorf("record %d Line = %d, want %d", i, r.Line, i+1)
		}
		got, err := core.ParseRecord(r)
		if err != nil {
			t.Fatalf("ParseRecord() error = %v", err)
		}
		if got.Amount != want[i].Amount || got.Category != want[i].Category {
			t.Errorf("record %d = %+v, want %+v", i, got, want[i])
		}
	}
}

func TestSQLiteStore_SaveCancelledKeepsPrevious(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, sampleTransactions()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Save(cancelled, nil); err == nil {
		t.Fatalf("Save() with cancelled context should fail")
	}

	records, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Load() got %d records, want previous 3", len(records))
	}
}

func TestSQLiteUsers(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer db.Close()

	repo := NewSQLiteUsers(db)
	ctx := context.Background()
	u := auth.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash", CreatedAt: time.Now()}

	created, err := repo.CreateUser(ctx, u)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if created.ID == 0 {
		t.Errorf("CreateUser() ID = 0")
	}
	if _, err := repo.CreateUser(ctx, u); !errors.Is(err, auth.ErrUserExists) {
		t.Errorf("CreateUser() duplicate error = %v, want ErrUserExists", err)
	}

	got, err := repo.UserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("UserByEmail() error = %v", err)
	}
	if got.ID != created.ID || got.PasswordHash != "hash" || got.CreatedAt.IsZero() {
		t.Errorf("UserByEmail() = %+v", got)
	}
	if _, err := repo.UserByEmail(ctx, "bob@example.com"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("UserByEmail() missing error = %v, want ErrUserNotFound", err)
	}
}
