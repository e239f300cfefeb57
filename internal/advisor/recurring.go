package advisor

import (
	"sort"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// RecurringTolerance is the largest absolute-amount difference, exclusive, at
// which two expenses are considered the same recurring charge.
var RecurringTolerance = decimal.NewFromInt(5)

// Recurring returns every expense for which another expense with a different id
// has an absolute amount within RecurringTolerance. Results keep input order.
//
// Expenses are sorted by magnitude so each one only has to look at neighbours
// inside the tolerance window. The scan degrades towards quadratic only when
// many entries share one id and a narrow amount band.
func Recurring(txs []core.Transaction) []core.Transaction {
	type entry struct {
		pos int
		id  int64
		mag decimal.Decimal
	}
	var expenses []entry
	for i, tx := range txs {
		if tx.IsExpense() {
			expenses = append(expenses, entry{pos: i, id: tx.ID, mag: tx.Magnitude()})
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].mag.LessThan(expenses[j].mag)
	})

	within := func(a, b entry) bool {
		return a.mag.Sub(b.mag).Abs().LessThan(RecurringTolerance)
	}

	flagged := make([]bool, len(txs))
	for i, e := range expenses {
		match := false
		for j := i - 1; j >= 0 && within(e, expenses[j]); j-- {
			if expenses[j].id != e.id {
				match = true
				break
			}
		}
		for j := i + 1; !match && j < len(expenses) && within(e, expenses[j]); j++ {
			if expenses[j].id != e.id {
				match = true
			}
		}
		flagged[e.pos] = match
	}

	var out []core.Transaction
	for i, tx := range txs {
		if flagged[i] {
			out = append(out, tx)
		}
	}
	return out
}
