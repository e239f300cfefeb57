package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "spendwise/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Level: slog.LevelDebug})
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, logger)

	var seen string
	var scoped *applog.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		scoped = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if !strings.HasPrefix(seen, "req_") || rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("request id %q not propagated (header %q)", seen, rr.Header().Get(RequestIDHeader))
	}
	if scoped == nil || scoped.Component() != applog.ComponentHTTP {
		t.Fatalf("request logger missing: %+v", scoped)
	}
	out := buf.String()
	for _, want := range []string{"HTTP request completed", "status_code=418", "client_ip=10.0.0.1", seen} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMiddlewareKeepsClientRequestID(t *testing.T) {
	m := NewMiddleware(nil, applog.Discard())
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get(RequestIDHeader) != "upstream-42" {
		t.Fatalf("expected upstream id, got %q", rr.Header().Get(RequestIDHeader))
	}
}

func TestMetrics(t *testing.T) {
	m := NewMiddleware(nil, applog.Discard())
	statuses := []int{http.StatusOK, http.StatusInternalServerError, http.StatusServiceUnavailable}
	for _, code := range statuses {
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	got := m.GetMetrics()
	if got.TotalRequests != 3 || got.ServerErrors != 2 {
		t.Fatalf("unexpected metrics %+v", got)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
