package advisor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"spendwise/internal/analytics"
	"spendwise/internal/core"
)

// Severity tags a recommendation for display.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityTip     Severity = "tip"
)

// Kind identifies the rule that produced a recommendation.
type Kind string

const (
	KindHighConcentration  Kind = "high_concentration"
	KindUnusualSpending    Kind = "unusual_spending"
	KindSavingsOpportunity Kind = "savings_opportunity"
	KindPositiveTrend      Kind = "positive_trend"
	KindBudgetSuggestion   Kind = "budget_suggestion"
	KindRecurringExpenses  Kind = "recurring_expenses"
)

var (
	unusualShare   = decimal.NewFromInt(30)
	averageShare   = decimal.NewFromInt(20)
	savingsFactor  = decimal.RequireFromString("0.2")
	budgetBuffer   = decimal.RequireFromString("1.1")
	budgetTopCount = 3
)

// Facts are the aggregates every rule reads from.
type Facts struct {
	Spend     []analytics.CategorySpend
	Summary   analytics.Summary
	Recurring []core.Transaction
}

// Finding is one match of a rule. Unused fields stay zero.
type Finding struct {
	Category string
	Amount   decimal.Decimal
	Percent  decimal.Decimal
	Count    int
}

// Rule pairs a selector with a message formatter. Select returns one Finding
// per recommendation to emit, or none.
type Rule struct {
	Kind     Kind
	Title    string
	Severity Severity
	Select   func(Facts) []Finding
	Format   func(Finding) string
}

// DefaultRules returns the built-in rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind:     KindHighConcentration,
			Title:    "High Spending Alert",
			Severity: SeverityWarning,
			Select:   selectTopCategoryShare,
			Format: func(f Finding) string {
				return fmt.Sprintf("%s%% of your expenses go to %s. Consider setting a budget limit.",
					core.FormatPercent(f.Percent), f.Category)
			},
		},
		{
			Kind:     KindUnusualSpending,
			Title:    "Unusual Spending Detected",
			Severity: SeverityInfo,
			Select:   selectUnusualSpending,
			Format: func(f Finding) string {
				return fmt.Sprintf("Your %s spending is %s%% higher than average.",
					f.Category, core.FormatPercent(f.Percent))
			},
		},
		{
			Kind:     KindSavingsOpportunity,
			Title:    "Savings Opportunity",
			Severity: SeveritySuccess,
			Select:   selectSavingsOpportunity,
			Format: func(f Finding) string {
				return fmt.Sprintf("You could save $%s per month by reducing %s expenses by 20%%.",
					core.FormatCurrency(f.Amount), f.Category)
			},
		},
		{
			Kind:     KindPositiveTrend,
			Title:    "Great Progress!",
			Severity: SeveritySuccess,
			Select:   selectPositiveTrend,
			Format: func(f Finding) string {
				return fmt.Sprintf("Your spending decreased by %s%% compared to last period. Keep it up!",
					core.FormatPercent(f.Percent))
			},
		},
		{
			Kind:     KindBudgetSuggestion,
			Title:    "Budget Suggestion",
			Severity: SeverityTip,
			Select:   selectBudgets,
			Format: func(f Finding) string {
				return fmt.Sprintf("Based on your spending, we recommend a %s budget of $%s/month.",
					f.Category, core.FormatCurrency(f.Amount))
			},
		},
		{
			Kind:     KindRecurringExpenses,
			Title:    "Recurring Expenses Detected",
			Severity: SeverityInfo,
			Select:   selectRecurring,
			Format: func(f Finding) string {
				return fmt.Sprintf("You have %d recurring expenses totaling $%s/month.",
					f.Count, core.FormatCurrency(f.Amount))
			},
		},
	}
}

func selectTopCategoryShare(f Facts) []Finding {
	if len(f.Spend) == 0 || f.Summary.TotalExpense.IsZero() {
		return nil
	}
	top := f.Spend[0]
	return []Finding{{
		Category: top.Category.Name,
		Amount:   top.Amount,
		Percent:  core.Percent(top.Amount, f.Summary.TotalExpense),
	}}
}

func selectUnusualSpending(f Facts) []Finding {
	if f.Summary.TotalExpense.IsZero() {
		return nil
	}
	var out []Finding
	for _, s := range f.Spend {
		share := core.Percent(s.Amount, f.Summary.TotalExpense)
		if share.GreaterThan(unusualShare) {
			out = append(out, Finding{Category: s.Category.Name, Amount: s.Amount, Percent: share.Sub(averageShare)})
		}
	}
	return out
}

func selectSavingsOpportunity(f Facts) []Finding {
	if len(f.Spend) == 0 {
		return nil
	}
	top := f.Spend[0]
	return []Finding{{Category: top.Category.Name, Amount: top.Amount.Mul(savingsFactor)}}
}

func selectPositiveTrend(f Facts) []Finding {
	s := f.Summary
	if !s.TotalIncome.GreaterThan(s.TotalExpense) {
		return nil
	}
	return []Finding{{Amount: s.NetSavings, Percent: s.SavingsRate}}
}

func selectBudgets(f Facts) []Finding {
	n := min(len(f.Spend), budgetTopCount)
	out := make([]Finding, 0, n)
	for _, s := range f.Spend[:n] {
		out = append(out, Finding{Category: s.Category.Name, Amount: s.Amount.Mul(budgetBuffer)})
	}
	return out
}

func selectRecurring(f Facts) []Finding {
	if len(f.Recurring) == 0 {
		return nil
	}
	total := decimal.Zero
	for _, tx := range f.Recurring {
		total = total.Add(tx.Magnitude())
	}
	return []Finding{{Amount: total, Count: len(f.Recurring)}}
}
