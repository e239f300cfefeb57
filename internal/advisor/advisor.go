// Package advisor turns aggregate spending figures into short advisory messages.
//
// Recommendations come from a fixed table of rules. Every rule is evaluated on
// each call and all matches are emitted in table order; nothing is cached.
package advisor

import (
	"spendwise/internal/analytics"
	"spendwise/internal/core"
)

// Recommendation is one advisory message.
type Recommendation struct {
	Kind     Kind     `json:"kind"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Advisor evaluates a rule table.
type Advisor struct {
	rules []Rule
}

// New creates an Advisor. With no rules the default table is used.
func New(rules ...Rule) *Advisor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Advisor{rules: rules}
}

// Analyze computes the facts the rules read from.
func Analyze(txs []core.Transaction, cats []core.Category) Facts {
	return Facts{
		Spend:     analytics.SpendByCategory(txs, cats),
		Summary:   analytics.Summarize(txs),
		Recurring: Recurring(txs),
	}
}

// Evaluate runs every rule against txs. An empty transaction set yields an empty,
// non-nil list.
func (a *Advisor) Evaluate(txs []core.Transaction, cats []core.Category) []Recommendation {
	out := []Recommendation{}
	if len(txs) == 0 {
		return out
	}
	facts := Analyze(txs, cats)
	for _, r := range a.rules {
		for _, f := range r.Select(facts) {
			out = append(out, Recommendation{
				Kind:     r.Kind,
				Title:    r.Title,
				Message:  r.Format(f),
				Severity: r.Severity,
			})
		}
	}
	return out
}

// Evaluate runs the default rule table.
func Evaluate(txs []core.Transaction, cats []core.Category) []Recommendation {
	return New().Evaluate(txs, cats)
}
