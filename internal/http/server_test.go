package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spendwise/internal/auth"
	applog "spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/session"
)

const testStatement = `Date,Description,Amount
01/15/2024,Coffee,-4.50
01/16/2024,Salary,2000.00
02/03/2024,Groceries,-45.10
02/04/2024,Broken,abc
`

func newTestServer(t *testing.T, checks map[string]Check) *Server {
	t.Helper()
	logger := applog.Discard()
	sessions := session.NewRegistry(session.Config{}, logger)
	t.Cleanup(sessions.Close)

	s := NewServer(Options{
		MaxUploadBytes:     1 << 20,
		RateLimitPerMinute: 1000,
	}, Deps{
		Auth:     auth.NewService(auth.NewMemoryRepository(), logger),
		Sessions: sessions,
		Imports:  services.NewImportService(nil, 0, logger),
		Checks:   checks,
		Logger:   logger,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, target, token, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func login(t *testing.T, s *Server, username string) string {
	t.Helper()
	body := `{"username":"` + username + `","password":"s3cret"}`
	if rec := do(t, s, http.MethodPost, "/register", "", "application/json", body); rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec := do(t, s, http.MethodPost, "/login", "", "application/json", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	token := rec.Header().Get(SessionHeader)
	if token == "" {
		t.Fatal("login did not return a session token")
	}
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"username":"ada","password":"s3cret","email":"ada@example.com"}`

	rec := do(t, s, http.MethodPost, "/register", "", "application/json", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var reg MessageBody
	decode(t, rec, &reg)
	if reg.Message != MsgRegistered || reg.Redirect != "/login" {
		t.Errorf("unexpected register body %+v", reg)
	}

	rec = do(t, s, http.MethodPost, "/register", "", "application/json", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}
	var dup MessageBody
	decode(t, rec, &dup)
	if dup.Message != "Username already exists" {
		t.Errorf("unexpected conflict message %q", dup.Message)
	}

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{"valid", `{"username":"ada","password":"s3cret"}`, http.StatusOK, MsgLoggedIn},
		{"wrong password", `{"username":"ada","password":"nope"}`, http.StatusUnauthorized, MsgInvalidCredentials},
		{"unknown user", `{"username":"bob","password":"s3cret"}`, http.StatusUnauthorized, MsgInvalidCredentials},
		{"malformed body", `{"username":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/login", "", "application/json", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantMsg == "" {
				return
			}
			var got MessageBody
			decode(t, rec, &got)
			if got.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, got.Message)
			}
		})
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	s := newTestServer(t, nil)
	token := login(t, s, "ada")

	rec := do(t, s, http.MethodPost, "/login", "", "application/json", `{"username":"ada","password":"s3cret"}`)
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("login did not set the session cookie")
	}
	if cookie.MaxAge <= 0 || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("session cookie would be discarded: %+v", cookie)
	}
	if want := int(session.DefaultConfig().TTL.Seconds()); cookie.MaxAge != want {
		t.Errorf("expected Max-Age %d, got %d", want, cookie.MaxAge)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie session: expected 200, got %d", rec.Code)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	s := newTestServer(t, nil)

	for _, target := range []string{"/api/dashboard", "/api/transactions", "/api/recommendations"} {
		rec := do(t, s, http.MethodGet, target, "", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", target, rec.Code)
		}
		rec = do(t, s, http.MethodGet, target, "not-a-token", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s with bad token: expected 401, got %d", target, rec.Code)
		}
	}
}

func TestLogoutEndsSession(t *testing.T) {
	s := newTestServer(t, nil)
	token := login(t, s, "ada")

	if rec := do(t, s, http.MethodPost, "/logout", token, "", ""); rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/dashboard", token, "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/logout", token, "", ""); rec.Code != http.StatusOK {
		t.Fatalf("second logout: expected 200, got %d", rec.Code)
	}
}

func TestUploadFlow(t *testing.T) {
	s := newTestServer(t, nil)
	token := login(t, s, "ada")

	rec := do(t, s, http.MethodPost, "/api/uploads/preview", token, "text/csv", testStatement)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var preview struct {
		Headers []string            `json:"headers"`
		Rows    []map[string]string `json:"rows"`
	}
	decode(t, rec, &preview)
	if strings.Join(preview.Headers, ",") != "Date,Description,Amount" || len(preview.Rows) != 4 {
		t.Fatalf("unexpected preview %+v", preview)
	}

	rec = do(t, s, http.MethodPost, "/api/uploads?date=Date&description=Description&amount=Amount", token, "text/csv", testStatement)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		BatchID  string `json:"batchId"`
		Imported int    `json:"imported"`
		Skipped  int    `json:"skipped"`
	}
	decode(t, rec, &res)
	if res.Imported != 3 || res.Skipped != 1 || res.BatchID == "" {
		t.Fatalf("unexpected import result %+v", res)
	}

	rec = do(t, s, http.MethodGet, "/api/dashboard", token, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", rec.Code)
	}
	var dash struct {
		TransactionCount int   `json:"transactionCount"`
		MonthlyExpenses  []any `json:"monthlyExpenses"`
	}
	decode(t, rec, &dash)
	if dash.TransactionCount != 3 || len(dash.MonthlyExpenses) != 2 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	rec = do(t, s, http.MethodGet, "/api/transactions?search=co&sort=amount&order=asc", token, "", "")
	var list struct {
		Transactions []struct {
			Description string `json:"description"`
		} `json:"transactions"`
		Count int `json:"count"`
	}
	decode(t, rec, &list)
	if list.Count != 1 || list.Transactions[0].Description != "Coffee" {
		t.Fatalf("unexpected listing %+v", list)
	}

	rec = do(t, s, http.MethodGet, "/api/reports?type=monthly&filter=expense&start=2024-01-01", token, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reports: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report struct {
		Type string `json:"type"`
		Rows []any  `json:"rows"`
	}
	decode(t, rec, &report)
	if report.Type != ReportMonthly || len(report.Rows) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	rec = do(t, s, http.MethodGet, "/api/recommendations", token, "", "")
	var recs struct {
		Summary struct {
			Count int `json:"count"`
		} `json:"summary"`
		Recommendations []any `json:"recommendations"`
	}
	decode(t, rec, &recs)
	if recs.Summary.Count != 3 || recs.Recommendations == nil {
		t.Fatalf("unexpected recommendations %+v", recs)
	}
}

func TestUploadsAreIsolatedPerSession(t *testing.T) {
	s := newTestServer(t, nil)
	ada := login(t, s, "ada")
	bob := login(t, s, "bob")

	do(t, s, http.MethodPost, "/api/uploads?date=Date&description=Description&amount=Amount", ada, "text/csv", testStatement)

	var dash struct {
		TransactionCount int `json:"transactionCount"`
	}
	decode(t, do(t, s, http.MethodGet, "/api/dashboard", bob, "", ""), &dash)
	if dash.TransactionCount != 0 {
		t.Fatalf("bob sees %d transactions from ada's upload", dash.TransactionCount)
	}
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t, nil)
	token := login(t, s, "ada")

	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
		wantCode    int
	}{
		{"missing mapping", "/api/uploads", "text/csv", testStatement, http.StatusBadRequest},
		{"unknown column", "/api/uploads?date=When&description=Description&amount=Amount", "text/csv", testStatement, http.StatusBadRequest},
		{"empty file", "/api/uploads/preview", "text/csv", "", http.StatusBadRequest},
		{"unsupported media type", "/api/uploads/preview", "application/json", `{}`, http.StatusUnsupportedMediaType},
		{"too large", "/api/uploads?date=a&description=b&amount=b", "text/csv", "a,b\n" + strings.Repeat("1,2\n", 1<<19), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.target, token, tt.contentType, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCanceledUploadIsNotAServerError(t *testing.T) {
	s := newTestServer(t, nil)
	token := login(t, s, "ada")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/uploads?date=Date&description=Description&amount=Amount",
		strings.NewReader(testStatement)).WithContext(ctx)
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set(SessionHeader, token)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != statusClientClosedRequest || rec.Body.Len() != 0 {
		t.Fatalf("expected a bare %d, got %d: %s", statusClientClosedRequest, rec.Code, rec.Body.String())
	}
	var list struct {
		Count int `json:"count"`
	}
	decode(t, do(t, s, http.MethodGet, "/api/transactions", token, "", ""), &list)
	if list.Count != 0 {
		t.Fatalf("canceled import must not touch the ledger, found %d transactions", list.Count)
	}
}

func TestCategoryCRUD(t *testing.T) {
	s := newTestServer(t, nil)
	token := login(t, s, "ada")

	rec := do(t, s, http.MethodPost, "/api/categories", token, "application/json", `{"name":"Travel","color":"#123456"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	decode(t, rec, &created)
	if created.ID != 9 || created.Name != "Travel" {
		t.Fatalf("unexpected category %+v", created)
	}

	if rec := do(t, s, http.MethodPost, "/api/categories", token, "application/json", `{"name":"  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank name: expected 400, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPut, "/api/categories/9", token, "application/json", `{"name":"Trips","color":"#654321"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, "/api/categories/99", token, "application/json", `{"name":"Ghost"}`); rec.Code != http.StatusNoContent {
		t.Errorf("update unknown: expected 204, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, "/api/categories/abc", token, "application/json", `{"name":"Ghost"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id: expected 400, got %d", rec.Code)
	}

	do(t, s, http.MethodPost, "/api/uploads?date=Date&description=Description&amount=Amount", token, "text/csv", testStatement)
	if rec := do(t, s, http.MethodPut, "/api/transactions/1/category", token, "application/json", `{"categoryId":9}`); rec.Code != http.StatusNoContent {
		t.Fatalf("reassign: expected 204, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, "/api/transactions/999/category", token, "application/json", `{"categoryId":9}`); rec.Code != http.StatusNoContent {
		t.Fatalf("reassign unknown: expected 204, got %d", rec.Code)
	}

	var list struct {
		Count int `json:"count"`
	}
	decode(t, do(t, s, http.MethodGet, "/api/transactions?category=9", token, "", ""), &list)
	if list.Count != 1 {
		t.Fatalf("expected one transaction in category 9, got %d", list.Count)
	}

	if rec := do(t, s, http.MethodDelete, "/api/categories/9", token, "", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/categories/9", token, "", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("second delete: expected 204, got %d", rec.Code)
	}

	var report struct {
		Summary struct {
			Count int `json:"count"`
		} `json:"summary"`
	}
	decode(t, do(t, s, http.MethodGet, "/api/reports?filter=uncategorized&start=2024-01-01", token, "", ""), &report)
	if report.Summary.Count != 3 {
		t.Fatalf("orphaned transaction should count as uncategorized, got %d", report.Summary.Count)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	failing := errors.New("database is locked")
	tests := []struct {
		name     string
		checks   map[string]Check
		wantCode int
		wantStat string
	}{
		{"no checks", nil, http.StatusOK, "ready"},
		{"passing check", map[string]Check{"users": func(context.Context) error { return nil }}, http.StatusOK, "ready"},
		{"failing check", map[string]Check{"users": func(context.Context) error { return failing }}, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.checks)

			if rec := do(t, s, http.MethodGet, "/healthz", "", "", ""); rec.Code != http.StatusOK {
				t.Fatalf("healthz: expected 200, got %d", rec.Code)
			}

			rec := do(t, s, http.MethodGet, "/readyz", "", "", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("readyz: expected %d, got %d", tt.wantCode, rec.Code)
			}
			var body struct {
				Status string `json:"status"`
			}
			decode(t, rec, &body)
			if body.Status != tt.wantStat {
				t.Errorf("expected status %q, got %q", tt.wantStat, body.Status)
			}
		})
	}
}

func TestMetricsCountsActivity(t *testing.T) {
	s := newTestServer(t, nil)
	login(t, s, "ada")
	do(t, s, http.MethodPost, "/login", "", "application/json", `{"username":"ada","password":"wrong"}`)

	rec := do(t, s, http.MethodGet, "/metrics", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"\nspendwise_logins_total 1\n",
		"\nspendwise_failed_logins_total 1\n",
		"\nspendwise_registrations_total 1\n",
		"\nspendwise_active_sessions 1\n",
		"# TYPE spendwise_http_requests_total counter\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestUnknownRouteReturnsJSON(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/nope", "", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	rec = do(t, s, http.MethodDelete, "/healthz", "", "", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
