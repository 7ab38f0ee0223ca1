// Package ledger holds the in-memory collection of validated transactions
// for a session and answers filtered and aggregated queries over it.
//
// A Ledger is not safe for concurrent use; the owner serialises access.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

var ErrNotFound = errors.New("transaction not found")

// idNamespace scopes the name-based UUIDs given to transactions.
var idNamespace = uuid.MustParse("4b0e6c2a-9d3f-4e1b-8a7c-2f6d9e0b1c3a")

// Ledger is an insertion-ordered collection of transactions.
type Ledger struct {
	txs []core.Transaction
}

// LoadReport summarises a batch load. Skipped records are never fatal.
type LoadReport struct {
	Loaded  int
	Skipped int
	Errors  []*core.ValidationError
}

// BalancePoint is the cumulative balance right after a transaction.
type BalancePoint struct {
	Date          core.Date
	TransactionID string
	Balance       core.Money
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Load replaces the collection with the valid records of the batch.
// Invalid records are skipped and reported. IDs are derived from each
// record and its rank among identical records, so reloading unchanged
// records reproduces them.
func (l *Ledger) Load(records []core.RawRecord) LoadReport {
	var report LoadReport
	txs := make([]core.Transaction, 0, len(records))
	seen := map[string]int{}
	for _, raw := range records {
		tx, err := core.ParseRecord(raw)
		if err != nil {
			report.Skipped++
			var verr *core.ValidationError
			if errors.As(err, &verr) {
				report.Errors = append(report.Errors, verr)
			} else {
				report.Errors = append(report.Errors, &core.ValidationError{Line: raw.Line, Err: err})
			}
			continue
		}
		key := recordKey(tx)
		tx.ID = derivedID(key, seen[key])
		seen[key]++
		txs = append(txs, tx)
	}
	l.txs = txs
	report.Loaded = len(txs)
	return report
}

// Add appends one transaction after validating it. On failure the ledger is
// unchanged and the returned error is a *core.ValidationError.
func (l *Ledger) Add(tx core.Transaction) (core.Transaction, error) {
	tx.Category = core.NormalizeCategory(tx.Category)
	if err := core.CheckTransaction(tx); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		key := recordKey(tx)
		for n := 0; ; n++ {
			if id := derivedID(key, n); l.indexOf(id) < 0 {
				tx.ID = id
				break
			}
		}
	} else if l.indexOf(tx.ID) >= 0 {
		return core.Transaction{}, fmt.Errorf("duplicate transaction id %s", tx.ID)
	}
	l.txs = append(l.txs, tx)
	return tx, nil
}

// Replace edits a transaction by removing it and appending the new version,
// which keeps the original ID and moves to the end of insertion order.
func (l *Ledger) Replace(id string, tx core.Transaction) (core.Transaction, error) {
	i := l.indexOf(id)
	if i < 0 {
		return core.Transaction{}, ErrNotFound
	}
	tx.ID = id
	tx.Category = core.NormalizeCategory(tx.Category)
	if err := core.CheckTransaction(tx); err != nil {
		return core.Transaction{}, err
	}
	l.txs = append(l.txs[:i:i], l.txs[i+1:]...)
	l.txs = append(l.txs, tx)
	return tx, nil
}

// Get returns the transaction with the given ID.
func (l *Ledger) Get(id string) (core.Transaction, error) {
	i := l.indexOf(id)
	if i < 0 {
		return core.Transaction{}, ErrNotFound
	}
	return l.txs[i], nil
}

// Find returns the matching transactions in insertion order.
func (l *Ledger) Find(f Filter) []core.Transaction {
	var out []core.Transaction
	for _, tx := range l.txs {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Remove deletes every matching transaction and returns how many were removed.
func (l *Ledger) Remove(f Filter) int {
	kept := l.txs[:0:0]
	for _, tx := range l.txs {
		if !f.Matches(tx) {
			kept = append(kept, tx)
		}
	}
	removed := len(l.txs) - len(kept)
	l.txs = kept
	return removed
}

// Reset empties the ledger.
func (l *Ledger) Reset() {
	l.txs = nil
}

// Len returns the number of transactions.
func (l *Ledger) Len() int {
	return len(l.txs)
}

// All returns a copy of every transaction in insertion order.
func (l *Ledger) All() []core.Transaction {
	return append([]core.Transaction(nil), l.txs...)
}

// Total sums the amounts of transactions of the given kind that also match f.
// No matches is a valid zero.
func (l *Ledger) Total(kind core.Kind, f Filter) core.Money {
	f = f.WithKind(kind)
	var total core.Money
	for _, tx := range l.txs {
		if f.Matches(tx) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// Balance is cumulative income minus cumulative expense up to and including asOf.
// A nil asOf covers every transaction.
func (l *Ledger) Balance(asOf *core.Date) core.Money {
	var balance core.Money
	for _, tx := range l.txs {
		if asOf != nil && tx.Date.After(*asOf) {
			continue
		}
		balance = balance.Add(core.Money{Cents: tx.Signed()})
	}
	return balance
}

// RunningBalance returns the cumulative balance after each transaction up to asOf,
// ordered by date with insertion order breaking ties.
func (l *Ledger) RunningBalance(asOf *core.Date) []BalancePoint {
	ordered := make([]core.Transaction, 0, len(l.txs))
	for _, tx := range l.txs {
		if asOf != nil && tx.Date.After(*asOf) {
			continue
		}
		ordered = append(ordered, tx)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	points := make([]BalancePoint, len(ordered))
	var balance core.Money
	for i, tx := range ordered {
		balance = balance.Add(core.Money{Cents: tx.Signed()})
		points[i] = BalancePoint{Date: tx.Date, TransactionID: tx.ID, Balance: balance}
	}
	return points
}

// ByCategory sums amounts of the given kind per category, largest first.
// Categories are grouped case-insensitively and keep their first-seen spelling.
func (l *Ledger) ByCategory(kind core.Kind, f Filter) []core.CategoryAmount {
	f = f.WithKind(kind)
	index := map[string]int{}
	var out []core.CategoryAmount
	for _, tx := range l.txs {
		if !f.Matches(tx) {
			continue
		}
		key := core.CategoryKey(tx.Category)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, core.CategoryAmount{Name: tx.Category})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Overview summarises the transactions matching f. The kind of f is ignored.
func (l *Ledger) Overview(f Filter) core.Overview {
	f.Kind = nil
	income := l.Total(core.Income, f)
	expense := l.Total(core.Expense, f)
	return core.Overview{
		Income:     income,
		Expense:    expense,
		Balance:    income.Add(core.Money{Cents: -expense.Cents}),
		Count:      len(l.Find(f)),
		ByCategory: l.ByCategory(core.Expense, f),
	}
}

func (l *Ledger) indexOf(id string) int {
	for i, tx := range l.txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

// recordKey is the persisted form of tx, the part of a transaction that
// survives a save and reload.
func recordKey(tx core.Transaction) string {
	r := core.ToRecord(tx)
	return strings.Join([]string{r.Date, r.Kind, r.Category, r.Amount, r.Description}, "\x1f")
}

// derivedID names the n-th transaction with the given record key, so a
// ledger loaded twice from the same records hands out the same IDs.
func derivedID(key string, n int) string {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s\x1f%d", key, n))).String()
}
