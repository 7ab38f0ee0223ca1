package ledger

import (
	"errors"
	"math/rand"
	"testing"

	"bilancio/internal/core"
)

func tx(date core.Date, kind core.Kind, category string, cents int64) core.Transaction {
	return core.Transaction{Date: date, Kind: kind, Category: category, Amount: core.Money{Cents: cents}}
}

func mustAdd(t *testing.T, l *Ledger, txs ...core.Transaction) []core.Transaction {
	t.Helper()
	out := make([]core.Transaction, 0, len(txs))
	for _, x := range txs {
		added, err := l.Add(x)
		if err != nil {
			t.Fatalf("add %+v: %v", x, err)
		}
		out = append(out, added)
	}
	return out
}

func TestLoadSkipsInvalidRecords(t *testing.T) {
	records := []core.RawRecord{
		{Line: 2, Date: "2025-01-03", Kind: "Expense", Category: "Food", Amount: "20"},
		{Line: 3, Date: "2025-01-04", Kind: "Income", Category: "Salary", Amount: "2000"},
		{Line: 4, Date: "2025-01-05", Kind: "Expense", Category: "Food", Amount: "-50"},
		{Line: 5, Date: "2025-01-06", Kind: "expense", Category: "Rent", Amount: "800"},
		{Line: 6, Date: "2025-01-07", Kind: "Expense", Category: "Fun", Amount: "15.5"},
	}
	l := New()
	mustAdd(t, l, tx(core.NewDate(2020, 1, 1), core.Income, "old", 1))

	report := l.Load(records)
	if l.Len() != 4 || report.Loaded != 4 || report.Skipped != 1 {
		t.Fatalf("unexpected report %+v, len=%d", report, l.Len())
	}
	if len(report.Errors) != 1 || report.Errors[0].Line != 4 || report.Errors[0].Field != "amount" {
		t.Fatalf("unexpected errors %+v", report.Errors)
	}
	for _, x := range l.All() {
		if x.ID == "" {
			t.Fatalf("loaded transaction without id: %+v", x)
		}
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	l := New()
	mustAdd(t, l, tx(core.NewDate(2025, 1, 1), core.Income, "Salary", 100))

	bads := []core.Transaction{
		tx(core.NewDate(2025, 1, 1), core.Expense, "Food", 0),
		tx(core.NewDate(2025, 1, 1), core.Expense, "Food", -10),
		tx(core.NewDate(2025, 1, 1), "Transfer", "Food", 10),
		tx(core.NewDate(2025, 1, 1), core.Expense, " ", 10),
		tx(core.Date{}, core.Expense, "Food", 10),
	}
	for i, b := range bads {
		_, err := l.Add(b)
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
		if l.Len() != 1 {
			t.Fatalf("case %d: ledger size changed to %d", i, l.Len())
		}
	}
}

func TestFindAndRemove(t *testing.T) {
	l := New()
	mustAdd(t, l,
		tx(core.NewDate(2025, 1, 5), core.Expense, "Groceries", 3000),
		tx(core.NewDate(2025, 2, 5), core.Expense, "groceries ", 2000),
		tx(core.NewDate(2025, 2, 9), core.Expense, "Eating out", 1500),
		tx(core.NewDate(2025, 3, 1), core.Income, "Salary", 200000),
	)

	if got := l.Find(Filter{Category: "GROCERIES"}); len(got) != 2 {
		t.Fatalf("exact category: got %d", len(got))
	}
	if got := l.Find(Filter{Category: "out", CategoryMatch: MatchSubstring}); len(got) != 1 || got[0].Category != "Eating out" {
		t.Fatalf("substring category: got %+v", got)
	}
	from, to := core.NewDate(2025, 2, 1), core.NewDate(2025, 2, 28)
	if got := l.Find(OfKind(core.Expense).Between(&from, &to)); len(got) != 2 {
		t.Fatalf("range: got %d", len(got))
	}
	if got := l.Find(Filter{}); len(got) != 4 {
		t.Fatalf("empty filter: got %d", len(got))
	}

	if n := l.Remove(Filter{Category: "groceries"}); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if l.Len() != 2 {
		t.Fatalf("len after remove = %d", l.Len())
	}
}

func TestReplaceMovesToEnd(t *testing.T) {
	l := New()
	added := mustAdd(t, l,
		tx(core.NewDate(2025, 1, 1), core.Expense, "A", 100),
		tx(core.NewDate(2025, 1, 2), core.Expense, "B", 200),
	)
	edited, err := l.Replace(added[0].ID, tx(core.NewDate(2025, 1, 1), core.Income, "A2", 150))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	all := l.All()
	if len(all) != 2 || all[1].ID != added[0].ID || all[1].Kind != core.Income || edited.Category != "A2" {
		t.Fatalf("unexpected order after replace: %+v", all)
	}
	if _, err := l.Replace("missing", added[1]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := l.Replace(added[1].ID, tx(core.NewDate(2025, 1, 2), core.Expense, "B", 0)); err == nil {
		t.Fatalf("expected validation error")
	}
	if l.Len() != 2 {
		t.Fatalf("failed replace changed the ledger")
	}
}

func TestTotalEmptyIsZero(t *testing.T) {
	l := New()
	if got := l.Total(core.Expense, Filter{}); got.Cents != 0 {
		t.Fatalf("empty ledger total = %d", got.Cents)
	}
	mustAdd(t, l, tx(core.NewDate(2025, 1, 1), core.Income, "Salary", 100))
	if got := l.Total(core.Expense, Filter{Category: "none"}); got.Cents != 0 {
		t.Fatalf("empty filter total = %d", got.Cents)
	}
}

func TestTotalByCategoryAndRange(t *testing.T) {
	l := New()
	mustAdd(t, l,
		tx(core.NewDate(2025, 1, 5), core.Expense, "Food", 1000),
		tx(core.NewDate(2025, 1, 20), core.Expense, "Rent", 50000),
		tx(core.NewDate(2025, 2, 5), core.Expense, "food", 700),
		tx(core.NewDate(2025, 2, 5), core.Income, "Food", 99),
	)
	if got := l.Total(core.Expense, Filter{Category: "FOOD"}); got.Cents != 1700 {
		t.Fatalf("food total = %d", got.Cents)
	}
	to := core.NewDate(2025, 1, 31)
	if got := l.Total(core.Expense, Filter{To: &to}); got.Cents != 51000 {
		t.Fatalf("january total = %d", got.Cents)
	}
}

func TestBalanceIndependentOfOrder(t *testing.T) {
	txs := []core.Transaction{
		tx(core.NewDate(2025, 1, 1), core.Income, "Salary", 250000),
		tx(core.NewDate(2025, 1, 3), core.Expense, "Rent", 90000),
		tx(core.NewDate(2025, 1, 9), core.Expense, "Food", 12345),
		tx(core.NewDate(2025, 2, 1), core.Income, "Gift", 5000),
		tx(core.NewDate(2025, 2, 2), core.Expense, "Food", 777),
	}
	var want int64
	for _, x := range txs {
		if x.Kind == core.Income {
			want += x.Amount.Cents
		} else {
			want -= x.Amount.Cents
		}
	}

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 10; round++ {
		rng.Shuffle(len(txs), func(i, j int) { txs[i], txs[j] = txs[j], txs[i] })
		l := New()
		mustAdd(t, l, txs...)
		if got := l.Balance(nil); got.Cents != want {
			t.Fatalf("round %d: balance = %d, want %d", round, got.Cents, want)
		}
	}
}

func TestBalanceAsOf(t *testing.T) {
	l := New()
	mustAdd(t, l,
		tx(core.NewDate(2025, 1, 1), core.Income, "Salary", 1000),
		tx(core.NewDate(2025, 1, 15), core.Expense, "Food", 300),
		tx(core.NewDate(2025, 2, 1), core.Expense, "Food", 200),
	)
	asOf := core.NewDate(2025, 1, 15)
	if got := l.Balance(&asOf); got.Cents != 700 {
		t.Fatalf("balance as of = %d, want 700", got.Cents)
	}
	before := core.NewDate(2024, 12, 31)
	if got := l.Balance(&before); got.Cents != 0 {
		t.Fatalf("balance before first = %d", got.Cents)
	}
}

func TestRunningBalanceStableOrder(t *testing.T) {
	l := New()
	added := mustAdd(t, l,
		tx(core.NewDate(2025, 1, 10), core.Expense, "Food", 100),
		tx(core.NewDate(2025, 1, 1), core.Income, "Salary", 1000),
		tx(core.NewDate(2025, 1, 10), core.Expense, "Fun", 50),
	)
	points := l.RunningBalance(nil)
	if len(points) != 3 {
		t.Fatalf("points = %d", len(points))
	}
	wantIDs := []string{added[1].ID, added[0].ID, added[2].ID}
	wantBal := []int64{1000, 900, 850}
	for i, p := range points {
		if p.TransactionID != wantIDs[i] || p.Balance.Cents != wantBal[i] {
			t.Fatalf("point %d = %+v", i, p)
		}
	}
}

func TestByCategoryAndOverview(t *testing.T) {
	l := New()
	mustAdd(t, l,
		tx(core.NewDate(2025, 1, 1), core.Expense, "Food", 1000),
		tx(core.NewDate(2025, 1, 2), core.Expense, "Rent", 5000),
		tx(core.NewDate(2025, 1, 3), core.Expense, "FOOD", 500),
		tx(core.NewDate(2025, 1, 4), core.Income, "Salary", 10000),
	)
	cats := l.ByCategory(core.Expense, Filter{})
	if len(cats) != 2 || cats[0].Name != "Rent" || cats[1].Name != "Food" || cats[1].Amount.Cents != 1500 || cats[1].Count != 2 {
		t.Fatalf("unexpected categories %+v", cats)
	}

	ov := l.Overview(Filter{})
	if ov.Income.Cents != 10000 || ov.Expense.Cents != 6500 || ov.Balance.Cents != 3500 || ov.Count != 4 {
		t.Fatalf("unexpected overview %+v", ov)
	}
}

func TestIDsStableAcrossLoads(t *testing.T) {
	records := []core.RawRecord{
		{Line: 2, Date: "2025-01-03", Kind: "Expense", Category: "Food", Amount: "20"},
		{Line: 3, Date: "2025-01-03", Kind: "Expense", Category: "Food", Amount: "20"},
		{Line: 4, Date: "2025-01-04", Kind: "Income", Category: "Salary", Amount: "2000"},
	}
	first, second := New(), New()
	first.Load(records)
	second.Load(records)

	a, b := first.All(), second.All()
	seen := map[string]bool{}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("record %d: id %s on first load, %s on second", i, a[i].ID, b[i].ID)
		}
		if seen[a[i].ID] {
			t.Fatalf("duplicate id %s for identical records", a[i].ID)
		}
		seen[a[i].ID] = true
		if _, err := second.Get(a[i].ID); err != nil {
			t.Fatalf("Get(%s) on reloaded ledger: %v", a[i].ID, err)
		}
	}
}

func TestAddedIDSurvivesReload(t *testing.T) {
	l := New()
	l.Load([]core.RawRecord{{Date: "2025-01-03", Kind: "Expense", Category: "Food", Amount: "20"}})
	added := mustAdd(t, l,
		tx(core.NewDate(2025, 1, 3), core.Expense, "Food", 2000),
		tx(core.NewDate(2025, 2, 1), core.Income, "Salary", 100000))

	var records []core.RawRecord
	for _, x := range l.All() {
		records = append(records, core.ToRecord(x))
	}
	reloaded := New()
	reloaded.Load(records)
	for _, x := range added {
		got, err := reloaded.Get(x.ID)
		if err != nil {
			t.Fatalf("Get(%s) after reload: %v", x.ID, err)
		}
		if got.Category != x.Category || got.Amount != x.Amount {
			t.Fatalf("id %s now names %+v, want %+v", x.ID, got, x)
		}
	}
}

func TestLargeAmountsDoNotWrap(t *testing.T) {
	l := New()
	report := l.Load([]core.RawRecord{
		{Line: 2, Date: "2025-01-03", Kind: "Expense", Category: "Big", Amount: "90000000000000000"},
		{Line: 3, Date: "2025-01-04", Kind: "Expense", Category: "Big", Amount: "100000000000"},
		{Line: 4, Date: "2025-01-05", Kind: "Expense", Category: "Big", Amount: "100000000000"},
	})
	if report.Loaded != 2 || report.Skipped != 1 || report.Errors[0].Field != "amount" {
		t.Fatalf("unexpected report %+v", report)
	}
	want := int64(2 * core.MaxAmountCents)
	if got := l.Total(core.Expense, Filter{}); got.Cents != want {
		t.Fatalf("Total(Expense) = %d, want %d", got.Cents, want)
	}
	if got := l.Balance(nil); got.Cents != -want {
		t.Fatalf("Balance() = %d, want %d", got.Cents, -want)
	}
}
