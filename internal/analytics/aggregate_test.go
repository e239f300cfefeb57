package analytics

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mk(id int64, date core.Date, amount string, cat *int64) core.Transaction {
	return core.Transaction{ID: id, Date: date, Description: "t", Amount: dec(amount), CategoryID: cat}
}

var (
	food  = core.Category{ID: 1, Name: "Food", Color: "#111111"}
	other = core.Category{ID: 2, Name: "Other", Color: "#222222"}
)

func TestBalance(t *testing.T) {
	txs := []core.Transaction{
		mk(1, core.NewDate(2024, 1, 1), "1000", nil),
		mk(2, core.NewDate(2024, 1, 2), "-250.25", nil),
		mk(3, core.NewDate(2024, 1, 3), "-0.75", nil),
	}
	if got := Balance(txs); !got.Equal(dec("749")) {
		t.Fatalf("balance = %s", got)
	}
	if got := Balance(nil); !got.IsZero() {
		t.Fatalf("empty balance = %s", got)
	}
}

func TestSpendByCategory(t *testing.T) {
	txs := []core.Transaction{
		mk(1, core.NewDate(2024, 1, 1), "-100", core.Int64Ptr(1)),
		mk(2, core.NewDate(2024, 1, 1), "-10", core.Int64Ptr(2)),
		mk(3, core.NewDate(2024, 1, 1), "500", core.Int64Ptr(1)),
	}
	got := SpendByCategory(txs, []core.Category{food, other})
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Category.Name != "Food" || !got[0].Amount.Equal(dec("100")) || got[0].Count != 1 {
		t.Fatalf("unexpected first entry %+v", got[0])
	}
	if got[1].Category.Name != "Other" || !got[1].Amount.Equal(dec("10")) {
		t.Fatalf("unexpected second entry %+v", got[1])
	}
	if len(got[0].Transactions) != 1 || got[0].Transactions[0].ID != 1 {
		t.Fatalf("constituents not tracked: %+v", got[0].Transactions)
	}
}

func TestSpendByCategoryOrphansFoldIntoUncategorized(t *testing.T) {
	txs := []core.Transaction{
		mk(1, core.NewDate(2024, 1, 1), "-5", core.Int64Ptr(42)),
		mk(2, core.NewDate(2024, 1, 1), "-5", nil),
		mk(3, core.NewDate(2024, 1, 1), "-5", core.Int64Ptr(1)),
	}
	got := SpendByCategory(txs, []core.Category{food})
	if len(got) != 2 {
		t.Fatalf("expected food and uncategorized, got %+v", got)
	}
	if got[0].Category.ID != core.UncategorizedID || !got[0].Amount.Equal(dec("10")) || got[0].Count != 2 {
		t.Fatalf("unexpected uncategorized bucket %+v", got[0])
	}
	if got[0].Category.Color != core.UncategorizedColor {
		t.Fatalf("unexpected colour %q", got[0].Category.Color)
	}
}

func TestSpendByCategoryTieOrder(t *testing.T) {
	txs := []core.Transaction{
		mk(1, core.NewDate(2024, 1, 1), "-5", nil),
		mk(2, core.NewDate(2024, 1, 1), "-5", core.Int64Ptr(2)),
		mk(3, core.NewDate(2024, 1, 1), "-5", core.Int64Ptr(1)),
	}
	got := SpendByCategory(txs, []core.Category{food, other})
	names := []string{got[0].Category.Name, got[1].Category.Name, got[2].Category.Name}
	if names[0] != "Food" || names[1] != "Other" || names[2] != core.UncategorizedName {
		t.Fatalf("unexpected tie order %v", names)
	}
}

func TestMonthlyExpensesOrdering(t *testing.T) {
	txs := []core.Transaction{
		mk(1, core.NewDate(2024, 2, 10), "-20", nil),
		mk(2, core.NewDate(2023, 12, 5), "-5", nil),
		mk(3, core.NewDate(2024, 10, 1), "-7", nil),
		mk(4, core.NewDate(2024, 2, 11), "-1.50", nil),
		mk(5, core.NewDate(2024, 3, 1), "900", nil),
	}
	got := MonthlyExpenses(txs)
	want := []struct {
		label  string
		amount string
	}{{"12/2023", "5"}, {"2/2024", "21.5"}, {"10/2024", "7"}}
	if len(got) != len(want) {
		t.Fatalf("expected %d months, got %+v", len(want), got)
	}
	for i, w := range want {
		if got[i].Label != w.label || !got[i].Amount.Equal(dec(w.amount)) {
			t.Fatalf("month %d: got %s=%s, want %s=%s", i, got[i].Label, got[i].Amount, w.label, w.amount)
		}
	}
}

func TestSummarize(t *testing.T) {
	txs := []core.Transaction{
		mk(1, core.NewDate(2024, 1, 1), "2000", nil),
		mk(2, core.NewDate(2024, 1, 2), "-500", nil),
		mk(3, core.NewDate(2024, 1, 3), "-300", nil),
	}
	s := Summarize(txs)
	if !s.TotalIncome.Equal(dec("2000")) || !s.TotalExpense.Equal(dec("800")) || !s.NetSavings.Equal(dec("1200")) {
		t.Fatalf("unexpected summary %+v", s)
	}
	if !s.SavingsRate.Equal(dec("60")) {
		t.Fatalf("savings rate = %s", s.SavingsRate)
	}
}

func TestSummarizeWithoutIncome(t *testing.T) {
	for _, txs := range [][]core.Transaction{
		nil,
		{mk(1, core.NewDate(2024, 1, 1), "-50", nil)},
		{mk(1, core.NewDate(2024, 1, 1), "0", nil)},
	} {
		s := Summarize(txs)
		if !s.SavingsRate.IsZero() || !s.TotalIncome.IsZero() {
			t.Fatalf("expected zero savings rate, got %+v", s)
		}
	}
}

func TestFilter(t *testing.T) {
	txs := []core.Transaction{
		mk(1, core.NewDate(2024, 1, 1), "100", nil),
		mk(2, core.NewDate(2024, 1, 15), "-10", core.Int64Ptr(1)),
		mk(3, core.NewDate(2024, 1, 31), "-20", core.Int64Ptr(2)),
		mk(4, core.NewDate(2024, 2, 1), "-30", core.Int64Ptr(1)),
		mk(5, core.NewDate(2024, 1, 20), "-40", core.Int64Ptr(77)),
	}
	cats := []core.Category{food, other}
	jan := core.DateRange{Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31)}

	cases := []struct {
		token string
		r     core.DateRange
		ids   []int64
	}{
		{"all", jan, []int64{1, 2, 3, 5}},
		{"income", jan, []int64{1}},
		{"expense", jan, []int64{2, 3, 5}},
		{"1", jan, []int64{2}},
		{"1", core.DateRange{}, []int64{2, 4}},
		{"uncategorized", core.DateRange{}, []int64{1, 5}},
		{"", core.DateRange{Start: core.NewDate(2024, 1, 31)}, []int64{3, 4}},
	}
	for _, tc := range cases {
		f, err := ParseFilter(tc.token)
		if err != nil {
			t.Fatalf("%q: %v", tc.token, err)
		}
		got := Filter(txs, cats, tc.r, f)
		if len(got) != len(tc.ids) {
			t.Fatalf("%q: expected ids %v, got %+v", tc.token, tc.ids, got)
		}
		for i, id := range tc.ids {
			if got[i].ID != id {
				t.Fatalf("%q: expected ids %v, got id %d at %d", tc.token, tc.ids, got[i].ID, i)
			}
		}
	}
}

func TestParseFilterRejectsUnknownToken(t *testing.T) {
	if _, err := ParseFilter("groceries"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	f, err := ParseFilter(" Expense ")
	if err != nil || f.Kind != FilterExpense || f.String() != "expense" {
		t.Fatalf("unexpected %+v err=%v", f, err)
	}
}

func TestDeletedCategoryBecomesUncategorized(t *testing.T) {
	txs := []core.Transaction{
		mk(1, core.NewDate(2024, 1, 1), "-30", core.Int64Ptr(2)),
		mk(2, core.NewDate(2024, 1, 1), "-10", core.Int64Ptr(1)),
	}
	before := SpendByCategory(txs, []core.Category{food, other})
	after := SpendByCategory(txs, []core.Category{food})
	if before[0].Category.Name != "Other" {
		t.Fatalf("unexpected before %+v", before)
	}
	if after[0].Category.ID != core.UncategorizedID || !after[0].Amount.Equal(dec("30")) {
		t.Fatalf("unexpected after %+v", after)
	}
	if total := TotalExpense(txs); !total.Equal(dec("40")) {
		t.Fatalf("no transaction may be lost, total %s", total)
	}
}
