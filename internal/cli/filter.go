package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

type filterFlags struct {
	kind      string
	category  string
	substring bool
	from      string
	to        string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.kind, "kind", "", "Income or Expense")
	fs.StringVar(&f.category, "category", "", "category to match")
	fs.BoolVar(&f.substring, "contains", false, "match the category as a case-insensitive substring")
	fs.StringVar(&f.from, "from", "", "first date included (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "last date included (YYYY-MM-DD)")
}

func (f *filterFlags) filter() (ledger.Filter, error) {
	var out ledger.Filter
	if strings.TrimSpace(f.kind) != "" {
		k, err := core.ParseKind(f.kind)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("--kind: %w", err)
		}
		out = out.WithKind(k)
	}
	from, err := optionalDate("--from", f.from)
	if err != nil {
		return ledger.Filter{}, err
	}
	to, err := optionalDate("--to", f.to)
	if err != nil {
		return ledger.Filter{}, err
	}
	if from != nil || to != nil {
		out = out.Between(from, to)
	}
	if strings.TrimSpace(f.category) != "" {
		match := ledger.MatchExact
		if f.substring {
			match = ledger.MatchSubstring
		}
		out = out.InCategory(f.category, match)
	}
	return out, nil
}

func optionalDate(flag, v string) (*core.Date, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", flag, err)
	}
	return &d, nil
}
