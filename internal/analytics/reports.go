package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/store"
)

// MonthlyFlow is income and expense for one calendar month.
type MonthlyFlow struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CategoryShare is one slice of the category report.
type CategoryShare struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Color string          `json:"color"`
	Value decimal.Decimal `json:"value"`
}

// Dashboard is the landing overview of a ledger.
type Dashboard struct {
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transactionCount"`
	CategoryCount    int             `json:"categoryCount"`
	SpendByCategory  []CategoryShare `json:"spendByCategory"`
	MonthlyExpenses  []MonthlyTotal  `json:"monthlyExpenses"`
}

// MonthlyFlows groups income and expense by month, ordered by year then month.
func MonthlyFlows(txs []core.Transaction) []MonthlyFlow {
	type key struct{ year, month int }
	flows := map[key]*MonthlyFlow{}
	for _, tx := range txs {
		k := key{tx.Date.Year(), tx.Date.Month()}
		f, ok := flows[k]
		if !ok {
			f = &MonthlyFlow{Year: k.year, Month: k.month, Label: monthLabel(k.year, k.month), Income: decimal.Zero, Expense: decimal.Zero}
			flows[k] = f
		}
		switch {
		case tx.IsIncome():
			f.Income = f.Income.Add(tx.Amount)
		case tx.IsExpense():
			f.Expense = f.Expense.Add(tx.Magnitude())
		}
	}

	out := make([]MonthlyFlow, 0, len(flows))
	for _, f := range flows {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		return monthLess(out[i].Year, out[i].Month, out[j].Year, out[j].Month)
	})
	return out
}

// CategoryReport lists non-zero category expense totals with their colours,
// largest first.
func CategoryReport(txs []core.Transaction, cats []core.Category) []CategoryShare {
	spend := SpendByCategory(txs, cats)
	out := make([]CategoryShare, 0, len(spend))
	for _, s := range spend {
		if s.Amount.IsZero() {
			continue
		}
		out = append(out, CategoryShare{ID: s.Category.ID, Name: s.Category.Name, Color: s.Category.Color, Value: s.Amount})
	}
	return out
}

// BuildDashboard assembles the overview for a snapshot.
func BuildDashboard(snap store.Snapshot) Dashboard {
	return Dashboard{
		Balance:          Balance(snap.Transactions),
		TransactionCount: len(snap.Transactions),
		CategoryCount:    len(snap.Categories),
		SpendByCategory:  CategoryReport(snap.Transactions, snap.Categories),
		MonthlyExpenses:  MonthlyExpenses(snap.Transactions),
	}
}

// SortKey orders a transaction listing.
type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByAmount SortKey = "amount"
)

// Query describes a transaction listing: description search, category filter and sort.
type Query struct {
	Search     string
	CategoryID *int64
	SortBy     SortKey
	Descending bool
}

// List applies q to txs. Search is a case-insensitive substring match on the
// description. Ties keep insertion order.
func List(txs []core.Transaction, q Query) []core.Transaction {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if needle != "" && !strings.Contains(strings.ToLower(tx.Description), needle) {
			continue
		}
		if q.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *q.CategoryID) {
			continue
		}
		out = append(out, tx)
	}

	var cmp func(a, b core.Transaction) int
	switch q.SortBy {
	case SortByAmount:
		cmp = func(a, b core.Transaction) int { return a.Amount.Cmp(b.Amount) }
	case SortByDate:
		cmp = func(a, b core.Transaction) int { return a.Date.Compare(b.Date.Time) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if q.Descending {
			return c > 0
		}
		return c < 0
	})
	return out
}
