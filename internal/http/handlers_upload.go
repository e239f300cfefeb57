package http

import (
	"context"
	"errors"
	"net/http"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
)

// handlePreview returns the header row and the first rows of an uploaded statement.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	up, err := ReadUpload(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		s.uploadError(w, r, applog.OpPreview, err)
		return
	}
	defer up.Close()

	p, err := s.imports.Preview(r.Context(), up.Body)
	if err != nil {
		s.uploadError(w, r, applog.OpPreview, err)
		return
	}
	writeJSON(w, p)
}

// handleImport maps an uploaded statement into the session ledger.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	up, err := ReadUpload(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		s.uploadError(w, r, applog.OpImport, err)
		return
	}
	defer up.Close()

	res, err := s.imports.Import(r.Context(), sess.Store, sess.Username, up.Body, up.Mapping)
	if err != nil {
		s.uploadError(w, r, applog.OpImport, err)
		return
	}
	s.metrics.imports.Inc()
	s.metrics.importedRows.Add(float64(res.Imported))
	s.metrics.skippedRows.Add(float64(res.Skipped))

	writeJSON(w, res)
}

// statusClientClosedRequest records uploads the client abandoned. Nobody reads it.
const statusClientClosedRequest = 499

// uploadError maps an exhausted body limit to 413 and everything else through ErrorFor.
func (s *Server) uploadError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, context.Canceled) {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Upload abandoned by client",
			applog.FieldOperation, op, applog.FieldError, err)
		w.WriteHeader(statusClientClosedRequest)
		return
	}
	if errors.Is(err, errUploadTooLarge) || isTooLarge(err) {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Upload rejected",
			applog.FieldOperation, op,
			applog.FieldReason, MsgPayloadTooLarge)
		ErrorResponse(http.StatusRequestEntityTooLarge, MsgPayloadTooLarge).Write(w)
		return
	}
	var ve *core.ValidationError
	if errors.As(err, &ve) && ve.Field == "content-type" {
		ErrorResponse(http.StatusUnsupportedMediaType, MsgUnsupportedMediaType).Write(w)
		return
	}
	writeError(w, r, op, err)
}
