package http

import (
	"net/http"
	"time"

	"spendwise/internal/analytics"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, analytics.BuildDashboard(sessionFrom(r.Context()).Store.Snapshot()))
}

// handleReports returns a monthly income/expense series or a category breakdown
// over the transactions matching the range and filter. Without bounds the report
// covers the current year to date.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	q, err := ParseReportQuery(r.URL.Query(), core.DateOf(time.Now()))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}

	snap := sessionFrom(r.Context()).Store.Snapshot()
	txs := analytics.Filter(snap.Transactions, snap.Categories, q.Range, q.Filter)

	var rows any
	switch q.Type {
	case ReportCategory:
		rows = analytics.CategoryReport(txs, snap.Categories)
	default:
		rows = analytics.MonthlyFlows(txs)
	}

	writeJSON(w, map[string]any{
		"type":    q.Type,
		"filter":  q.Filter.String(),
		"summary": analytics.Summarize(txs),
		"rows":    rows,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	snap := sessionFrom(r.Context()).Store.Snapshot()
	writeJSON(w, map[string]any{
		"summary":         analytics.Summarize(snap.Transactions),
		"recommendations": s.advisor.Evaluate(snap.Transactions, snap.Categories),
	})
}
