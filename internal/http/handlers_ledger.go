package http

import (
	"net/http"

	"spendwise/internal/analytics"
	applog "spendwise/internal/log"
)

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type reassignRequest struct {
	CategoryID *int64 `json:"categoryId"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := ParseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	txs := analytics.List(sessionFrom(r.Context()).Store.Transactions(), q)
	writeJSON(w, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// handleReassignCategory sets or clears a transaction's category. Unknown
// transaction ids are ignored.
func (s *Server) handleReassignCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req reassignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	if sessionFrom(r.Context()).Store.ReassignCategory(id, req.CategoryID) {
		s.metrics.reassignments.Inc()
		var category any = "none"
		if req.CategoryID != nil {
			category = *req.CategoryID
		}
		ledgerLog(r).Operation(r.Context(), applog.OpUpdate, nil,
			applog.FieldTransactionID, id, applog.FieldCategoryID, category)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, sessionFrom(r.Context()).Store.Categories())
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	c, err := sessionFrom(r.Context()).Store.AddCategory(req.Name, req.Color)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.metrics.categoryWrites.WithLabelValues(applog.OpCreate).Inc()
	ledgerLog(r).Operation(r.Context(), applog.OpCreate, nil, applog.FieldCategoryID, c.ID)
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

// handleUpdateCategory renames or recolours a category. Unknown ids are a
// no-op answered with 204.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	c, ok, err := sessionFrom(r.Context()).Store.UpdateCategory(id, req.Name, req.Color)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.metrics.categoryWrites.WithLabelValues(applog.OpUpdate).Inc()
	ledgerLog(r).Operation(r.Context(), applog.OpUpdate, nil, applog.FieldCategoryID, id)
	writeJSON(w, c)
}

// handleDeleteCategory removes a category. Transactions that referenced it fall
// into the uncategorized bucket. Unknown ids are a no-op.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if sessionFrom(r.Context()).Store.DeleteCategory(id) {
		s.metrics.categoryWrites.WithLabelValues(applog.OpDelete).Inc()
		ledgerLog(r).Operation(r.Context(), applog.OpDelete, nil, applog.FieldCategoryID, id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ledgerLog is the request logger retagged for ledger writes.
func ledgerLog(r *http.Request) *applog.Logger {
	return applog.FromContext(r.Context()).WithComponent(applog.ComponentLedger)
}
