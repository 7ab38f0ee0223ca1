package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  Kind = "Income"
	Expense Kind = "Expense"
)

// MaxDescriptionLength bounds the free-text description of a transaction, in characters.
const MaxDescriptionLength = 200

// MaxAmountCents bounds a single amount (100 billion in currency units) so
// that totals over any realistic ledger stay far from the int64 range.
const MaxAmountCents = 10_000_000_000_000

type (
	// Kind tells whether a transaction brings money in or takes it out.
	// The sign of an amount is implied by its kind, never stored.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string // derived from the record on load, not stored
		Date        Date
		Kind        Kind
		Category    string
		Amount      Money
		Description string
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidKind        = errors.New("invalid kind")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
)

// Kinds returns every accepted kind in display order.
func Kinds() []Kind {
	return []Kind{Income, Expense}
}

// ParseKind matches s against the known kinds ignoring case and surrounding spaces.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds() {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", ErrInvalidKind
}

func (k Kind) String() string {
	return string(k)
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// Sign returns +1 for income and -1 for expense.
func (k Kind) Sign() int64 {
	if k == Income {
		return 1
	}
	return -1
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day and location of t.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseDate parses a calendar date. Timestamps are accepted and truncated to their date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts, saturating at the int64 bounds.
func (m Money) Add(o Money) Money {
	sum := m.Cents + o.Cents
	switch {
	case o.Cents > 0 && sum < m.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && sum > m.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: sum}
}

// NormalizeCategory trims the label and collapses inner whitespace runs.
func NormalizeCategory(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CategoryKey is the grouping key of a category label: normalized and case-folded.
func CategoryKey(s string) string {
	return strings.ToLower(NormalizeCategory(s))
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if NormalizeCategory(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// Signed returns the amount in cents with the sign implied by the kind.
func (t Transaction) Signed() int64 {
	return t.Kind.Sign() * t.Amount.Cents
}
