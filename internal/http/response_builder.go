// Package http exposes the JSON API: authentication, statement uploads, the
// session ledger, dashboards, reports and recommendations.
//
// This file implements the Builder Pattern for JSON responses and the single
// translation from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
)

// Messages sent to clients. Auth and server failures stay generic.
const (
	MsgServerError          = "Server error"
	MsgInvalidCredentials   = "Invalid username or password"
	MsgUsernameTaken        = "Username already exists"
	MsgRegistered           = "Registration successful"
	MsgLoggedIn             = "Login successful"
	MsgLoggedOut            = "Logout successful"
	MsgSessionRequired      = "Authentication required"
	MsgServiceUnavailable   = "Service temporarily unavailable"
	MsgRateLimited          = "Rate limit exceeded. Please try again later."
	MsgNotFound             = "Not found"
	MsgMethodNotAllowed     = "Method not allowed"
	MsgPayloadTooLarge      = "Upload is too large"
	MsgUnsupportedMediaType = "Expected multipart/form-data or text/csv"
)

// MessageBody is the {message, redirect?} envelope used by auth endpoints and errors.
type MessageBody struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
	Field    string `json:"field,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
	cookies    []*http.Cookie
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Cookie attaches a cookie to the response.
func (b *JSONResponseBuilder) Cookie(c *http.Cookie) *JSONResponseBuilder {
	b.cookies = append(b.cookies, c)
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Message sets a {message} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(MessageBody{Message: msg})
}

// Write sends the built response. A 204 or a nil body writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	for _, c := range b.cookies {
		http.SetCookie(w, c)
	}

	if b.body == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"` + MsgServerError + `"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// ErrorResponse creates a standard {message} error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, MsgServerError)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}

// ErrorFor maps err onto a status code and client message. Validation errors
// expose their reason; everything unexpected becomes a generic server error.
func ErrorFor(err error) *JSONResponseBuilder {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return NewJSONResponse().Status(http.StatusBadRequest).
			Body(MessageBody{Message: verr.Error(), Field: verr.Field})
	case errors.Is(err, core.ErrValidation):
		return BadRequestError(err.Error())
	case errors.Is(err, core.ErrAuth):
		return ErrorResponse(http.StatusUnauthorized, MsgInvalidCredentials)
	case errors.Is(err, core.ErrConflict):
		return ErrorResponse(http.StatusConflict, conflictMessage(err))
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(MsgNotFound)
	case errors.Is(err, core.ErrTransient):
		return ErrorResponse(http.StatusServiceUnavailable, MsgServiceUnavailable).Header("Retry-After", "5")
	default:
		return InternalServerError()
	}
}

func conflictMessage(err error) string {
	if msg, ok := strings.CutPrefix(err.Error(), core.ErrConflict.Error()+": "); ok && msg != "" {
		return msg
	}
	return MsgUsernameTaken
}

// writeError logs unexpected failures with the request logger and sends the
// mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	logger := applog.FromContext(r.Context())
	switch {
	case resp.statusCode >= 500:
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldOperation, op, applog.FieldError, err)
	case resp.statusCode != http.StatusUnauthorized:
		logger.DebugContext(r.Context(), "Request rejected", applog.FieldOperation, op, applog.FieldError, err)
	}
	resp.Write(w)
}

// writeJSON sends v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	NewJSONResponse().Body(v).Write(w)
}
