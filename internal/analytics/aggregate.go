// Package analytics derives balances, category totals, monthly series and summary
// statistics from a ledger snapshot.
//
// Every function is pure: inputs are never modified and results are recomputed on
// each call.
package analytics

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// CategorySpend is the expense total of one category.
type CategorySpend struct {
	Category     core.Category      `json:"category"`
	Amount       decimal.Decimal    `json:"amount"`
	Count        int                `json:"count"`
	Transactions []core.Transaction `json:"-"`
}

// MonthlyTotal is the expense total of one calendar month.
type MonthlyTotal struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary holds income/expense statistics of a transaction set.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	NetSavings   decimal.Decimal `json:"netSavings"`
	// SavingsRate is a percentage of income; zero when there is no income.
	SavingsRate decimal.Decimal `json:"savingsRate"`
	Count       int             `json:"count"`
}

// Balance is the signed sum of all amounts.
func Balance(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}

// SpendByCategory totals expenses per category. References to missing categories
// count as Uncategorized. Only categories with at least one expense are returned,
// largest first; ties keep category order with Uncategorized last.
func SpendByCategory(txs []core.Transaction, cats []core.Category) []CategorySpend {
	idx := core.NewCategoryIndex(cats)
	order := make(map[int64]int, len(cats)+1)
	for i, c := range cats {
		if _, ok := order[c.ID]; !ok {
			order[c.ID] = i
		}
	}
	order[core.UncategorizedID] = len(cats)

	byID := map[int64]*CategorySpend{}
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		c := idx.Resolve(tx.CategoryID)
		entry, ok := byID[c.ID]
		if !ok {
			entry = &CategorySpend{Category: c, Amount: decimal.Zero}
			byID[c.ID] = entry
		}
		entry.Amount = entry.Amount.Add(tx.Magnitude())
		entry.Count++
		entry.Transactions = append(entry.Transactions, tx)
	}

	out := make([]CategorySpend, 0, len(byID))
	for _, e := range byID {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return order[out[i].Category.ID] < order[out[j].Category.ID]
	})
	return out
}

// TotalExpense sums the magnitude of every negative amount.
func TotalExpense(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.IsExpense() {
			total = total.Add(tx.Magnitude())
		}
	}
	return total
}

// TotalIncome sums every positive amount.
func TotalIncome(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.IsIncome() {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// MonthlyExpenses groups expenses by calendar month, ordered by year then month.
func MonthlyExpenses(txs []core.Transaction) []MonthlyTotal {
	type key struct{ year, month int }
	sums := map[key]decimal.Decimal{}
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		k := key{tx.Date.Year(), tx.Date.Month()}
		sums[k] = sums[k].Add(tx.Magnitude())
	}

	out := make([]MonthlyTotal, 0, len(sums))
	for k, v := range sums {
		out = append(out, MonthlyTotal{Year: k.year, Month: k.month, Label: monthLabel(k.year, k.month), Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return monthLess(out[i].Year, out[i].Month, out[j].Year, out[j].Month)
	})
	return out
}

// Summarize computes income, expense, net savings and savings rate.
func Summarize(txs []core.Transaction) Summary {
	income := TotalIncome(txs)
	expense := TotalExpense(txs)
	net := income.Sub(expense)
	rate := decimal.Zero
	if !income.IsZero() {
		rate = core.Percent(net, income)
	}
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		NetSavings:   net,
		SavingsRate:  rate,
		Count:        len(txs),
	}
}

func monthLabel(year, month int) string {
	return fmt.Sprintf("%d/%d", month, year)
}

func monthLess(y1, m1, y2, m2 int) bool {
	if y1 != y2 {
		return y1 < y2
	}
	return m1 < m2
}
