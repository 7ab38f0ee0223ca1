package ledger

import (
	"strings"

	"bilancio/internal/core"
)

// CategoryMatch selects how Filter.Category is compared.
type CategoryMatch int

const (
	// MatchExact compares normalized, case-folded labels for equality.
	MatchExact CategoryMatch = iota
	// MatchSubstring accepts any label containing the filter text, ignoring case.
	MatchSubstring
)

// Filter is a structural predicate over transactions. Zero fields match everything.
type Filter struct {
	Kind          *core.Kind
	From          *core.Date // inclusive
	To            *core.Date // inclusive
	Category      string
	CategoryMatch CategoryMatch
	IDs           []string
}

// OfKind returns a filter matching a single kind.
func OfKind(k core.Kind) Filter {
	return Filter{Kind: &k}
}

// WithKind returns a copy of f restricted to kind k.
func (f Filter) WithKind(k core.Kind) Filter {
	f.Kind = &k
	return f
}

// Between returns a copy of f restricted to the inclusive date range [from, to].
// Nil bounds are open.
func (f Filter) Between(from, to *core.Date) Filter {
	f.From, f.To = from, to
	return f
}

// InCategory returns a copy of f restricted to the given category.
func (f Filter) InCategory(category string, match CategoryMatch) Filter {
	f.Category, f.CategoryMatch = category, match
	return f
}

// Matches reports whether tx satisfies every set field of f.
func (f Filter) Matches(tx core.Transaction) bool {
	if f.Kind != nil && tx.Kind != *f.Kind {
		return false
	}
	if f.From != nil && tx.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.Date.After(*f.To) {
		return false
	}
	if key := core.CategoryKey(f.Category); key != "" {
		got := core.CategoryKey(tx.Category)
		switch f.CategoryMatch {
		case MatchSubstring:
			if !strings.Contains(got, key) {
				return false
			}
		default:
			if got != key {
				return false
			}
		}
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == tx.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IsEmpty reports whether f matches every transaction.
func (f Filter) IsEmpty() bool {
	return f.Kind == nil && f.From == nil && f.To == nil &&
		core.CategoryKey(f.Category) == "" && len(f.IDs) == 0
}
