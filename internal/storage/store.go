// Package storage is the load/save boundary to the backing record store.
//
// Stores hand back untyped RawRecords; validation happens in the ledger so a
// bad row never prevents the rest from loading.
package storage

import (
	"context"

	"bilancio/internal/core"
)

// Store loads and persists the full transaction set.
type Store interface {
	// Load returns every stored record in stored order. A store that does
	// not exist yet loads as empty.
	Load(ctx context.Context) ([]core.RawRecord, error)
	// Save replaces the stored set with txs. It either fully succeeds or
	// leaves the previous content in place.
	Save(ctx context.Context, txs []core.Transaction) error
}

// Header is the column order of the tabular record format.
var Header = []string{"date", "kind", "category", "amount", "description"}

// ToRows renders transactions in their canonical persisted form, header first.
func ToRows(txs []core.Transaction) [][]string {
	rows := make([][]string, 0, len(txs)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, tx := range txs {
		r := core.ToRecord(tx)
		rows = append(rows, []string{r.Date, r.Kind, r.Category, r.Amount, r.Description})
	}
	return rows
}
