package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RawRecord is one untyped row from a record store, before validation.
type RawRecord struct {
	Line        int // 1-based position in the source, 0 when unknown
	Date        string
	Kind        string
	Category    string
	Amount      string
	Description string
}

// ValidationError explains why a raw record or a transaction was refused.
type ValidationError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Reason is the short human readable cause, without position.
func (e *ValidationError) Reason() string {
	return e.Err.Error()
}

// ParseRecord turns a raw record into a validated transaction.
// It is pure: the same record always yields the same result.
func ParseRecord(raw RawRecord) (Transaction, error) {
	fail := func(field, value string, err error) (Transaction, error) {
		return Transaction{}, &ValidationError{Line: raw.Line, Field: field, Value: value, Err: err}
	}

	date, err := ParseDate(raw.Date)
	if err != nil {
		return fail("date", raw.Date, err)
	}
	kind, err := ParseKind(raw.Kind)
	if err != nil {
		return fail("kind", raw.Kind, err)
	}
	category := NormalizeCategory(raw.Category)
	if category == "" {
		return fail("category", raw.Category, ErrEmptyCategory)
	}
	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return fail("amount", raw.Amount, err)
	}
	description := strings.TrimSpace(raw.Description)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fail("description", truncate(description, 20)+"...", ErrDescriptionTooLong)
	}

	return Transaction{
		Date:        date,
		Kind:        kind,
		Category:    category,
		Amount:      amount,
		Description: description,
	}, nil
}

// ToRecord is the inverse of ParseRecord: the canonical textual form of t.
func ToRecord(t Transaction) RawRecord {
	return RawRecord{
		Date:        t.Date.String(),
		Kind:        t.Kind.String(),
		Category:    t.Category,
		Amount:      t.Amount.String(),
		Description: t.Description,
	}
}

// CheckTransaction validates an already typed transaction and reports the
// failing field the same way ParseRecord does.
func CheckTransaction(t Transaction) error {
	err := t.Validate()
	if err == nil {
		return nil
	}
	field, value := "", ""
	switch err {
	case ErrInvalidDate:
		field, value = "date", t.Date.String()
	case ErrInvalidKind:
		field, value = "kind", string(t.Kind)
	case ErrEmptyCategory:
		field, value = "category", t.Category
	case ErrInvalidAmount:
		field, value = "amount", t.Amount.String()
	case ErrDescriptionTooLong:
		field, value = "description", ""
	}
	return &ValidationError{Field: field, Value: value, Err: err}
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
