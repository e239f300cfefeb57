package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"spendwise/internal/core"
)

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"validation error", &core.ValidationError{Field: "name", Reason: "category name cannot be empty"}, http.StatusBadRequest, "name: category name cannot be empty"},
		{"wrapped validation", fmt.Errorf("preview: %w", core.ErrEmptyCategoryName), http.StatusBadRequest, "name: category name cannot be empty"},
		{"auth", core.ErrAuth, http.StatusUnauthorized, MsgInvalidCredentials},
		{"conflict", core.Conflict("Username already exists"), http.StatusConflict, "Username already exists"},
		{"not found", core.NotFound("category"), http.StatusNotFound, MsgNotFound},
		{"transient", core.Transient("create user", errors.New("database is locked")), http.StatusServiceUnavailable, MsgServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, MsgServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorFor(tt.err).Write(rec)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var body MessageBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, body.Message)
			}
		})
	}
}

func TestErrorForTransientSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorFor(core.Transient("ping", errors.New("timeout"))).Write(rec)
	if got := rec.Header().Get("Retry-After"); got != "5" {
		t.Errorf("expected Retry-After 5, got %q", got)
	}
}

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "yes").
		Cookie(&http.Cookie{Name: "c", Value: "v"}).
		Body(map[string]int{"id": 7}).
		Write(rec)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec.Header().Get("X-Test") != "yes" || rec.Header().Get("Set-Cookie") == "" {
		t.Errorf("headers not applied: %v", rec.Header())
	}
	if rec.Body.String() != "{\"id\":7}\n" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Body(map[string]int{"id": 7}).Write(rec)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("204 must not carry a body, got %d %q", rec.Code, rec.Body.String())
	}
}
