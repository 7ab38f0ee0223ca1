// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/timeseries"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

func withPrincipal(r *http.Request, p auth.Principal) context.Context {
	return context.WithValue(r.Context(), principalKey{}, p)
}

// PrincipalFrom returns the authenticated principal of a request, if any.
func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

// RequestBodyParser handles JSON and form-encoded bodies alike.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]interface{}
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body of r once.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Record returns the five transaction fields of the body, unvalidated.
func (p *RequestBodyParser) Record() core.RawRecord {
	kind := p.Get("kind")
	if kind == "" {
		kind = p.Get("type")
	}
	return core.RawRecord{
		Date:        p.Get("date"),
		Kind:        kind,
		Category:    p.Get("category"),
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
	}
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ParseFilter reads kind, category, match, from and to query parameters.
func ParseFilter(query url.Values) (ledger.Filter, error) {
	var f ledger.Filter
	if v := strings.TrimSpace(query.Get("kind")); v != "" {
		k, err := core.ParseKind(v)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("kind: %w", err)
		}
		f = f.WithKind(k)
	}

	from, err := parseDateParam(query, "from")
	if err != nil {
		return ledger.Filter{}, err
	}
	to, err := parseDateParam(query, "to")
	if err != nil {
		return ledger.Filter{}, err
	}
	if from != nil || to != nil {
		if from != nil && to != nil && from.After(*to) {
			return ledger.Filter{}, errors.New("from must not be after to")
		}
		f = f.Between(from, to)
	}

	if c := strings.TrimSpace(query.Get("category")); c != "" {
		match := ledger.MatchExact
		switch strings.ToLower(strings.TrimSpace(query.Get("match"))) {
		case "", "exact":
		case "substring", "contains":
			match = ledger.MatchSubstring
		default:
			return ledger.Filter{}, fmt.Errorf("match must be exact or substring")
		}
		f = f.InCategory(c, match)
	}
	return f, nil
}

// parseDateParam returns nil when the parameter is absent.
func parseDateParam(query url.Values, name string) (*core.Date, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &d, nil
}

// parseKindParam defaults to Expense.
func parseKindParam(query url.Values) (core.Kind, error) {
	v := strings.TrimSpace(query.Get("kind"))
	if v == "" {
		return core.Expense, nil
	}
	return core.ParseKind(v)
}

// parseGranularityParam leaves the choice to the session when absent.
func parseGranularityParam(query url.Values) (timeseries.Granularity, error) {
	v := strings.TrimSpace(query.Get("granularity"))
	if v == "" {
		return "", nil
	}
	return timeseries.ParseGranularity(v)
}
