package analytics

import (
	"strconv"
	"strings"

	"spendwise/internal/core"
)

// FilterKind selects which transactions a FilterToken keeps.
type FilterKind int

const (
	FilterAll FilterKind = iota
	FilterIncome
	FilterExpense
	FilterCategory
	FilterUncategorized
)

// FilterToken is a parsed report filter: "all", "income", "expense",
// "uncategorized" or a category id.
type FilterToken struct {
	Kind       FilterKind
	CategoryID int64
}

// ParseFilter parses a report filter token. An empty token means "all".
func ParseFilter(s string) (FilterToken, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "all":
		return FilterToken{Kind: FilterAll}, nil
	case "income":
		return FilterToken{Kind: FilterIncome}, nil
	case "expense":
		return FilterToken{Kind: FilterExpense}, nil
	case "uncategorized":
		return FilterToken{Kind: FilterUncategorized}, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return FilterToken{}, &core.ValidationError{Field: "filter", Value: s, Reason: "must be all, income, expense, uncategorized or a category id"}
	}
	return FilterToken{Kind: FilterCategory, CategoryID: id}, nil
}

func (f FilterToken) String() string {
	switch f.Kind {
	case FilterIncome:
		return "income"
	case FilterExpense:
		return "expense"
	case FilterUncategorized:
		return "uncategorized"
	case FilterCategory:
		return strconv.FormatInt(f.CategoryID, 10)
	default:
		return "all"
	}
}

// Match reports whether tx passes the filter. known is consulted only for
// FilterUncategorized, where orphaned references count as uncategorized.
func (f FilterToken) Match(tx core.Transaction, known core.CategoryIndex) bool {
	switch f.Kind {
	case FilterIncome:
		return tx.IsIncome()
	case FilterExpense:
		return tx.IsExpense()
	case FilterCategory:
		return tx.CategoryID != nil && *tx.CategoryID == f.CategoryID
	case FilterUncategorized:
		return known.Resolve(tx.CategoryID).ID == core.UncategorizedID
	default:
		return true
	}
}

// Filter keeps transactions inside the inclusive date range that match the token.
// Input order is preserved.
func Filter(txs []core.Transaction, cats []core.Category, r core.DateRange, f FilterToken) []core.Transaction {
	idx := core.NewCategoryIndex(cats)
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if r.Contains(tx.Date) && f.Match(tx, idx) {
			out = append(out, tx)
		}
	}
	return out
}
