package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/analytics"
	"spendwise/internal/core"
)

const maxJSONBody = 64 << 10

var errUploadTooLarge = &core.ValidationError{Field: "file", Reason: MsgPayloadTooLarge}

// Report types accepted by GET /api/reports.
const (
	ReportMonthly  = "monthly"
	ReportCategory = "category"
)

// ReportQuery is the parsed query of GET /api/reports.
type ReportQuery struct {
	Type   string
	Range  core.DateRange
	Filter analytics.FilterToken
}

// ParseListQuery reads search, category, sort and order from a transactions query.
func ParseListQuery(query url.Values) (analytics.Query, error) {
	q := analytics.Query{
		Search: sanitizeInput(query.Get("search")),
		SortBy: analytics.SortByDate,
	}

	if v := strings.TrimSpace(query.Get("category")); v != "" && v != "all" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return analytics.Query{}, &core.ValidationError{Field: "category", Value: v, Reason: "category must be a numeric id"}
		}
		q.CategoryID = &id
	}

	switch v := strings.ToLower(strings.TrimSpace(query.Get("sort"))); v {
	case "", string(analytics.SortByDate):
	case string(analytics.SortByAmount):
		q.SortBy = analytics.SortByAmount
	default:
		return analytics.Query{}, &core.ValidationError{Field: "sort", Value: v, Reason: "sort must be date or amount"}
	}

	switch v := strings.ToLower(strings.TrimSpace(query.Get("order"))); v {
	case "", "desc":
		q.Descending = true
	case "asc":
	default:
		return analytics.Query{}, &core.ValidationError{Field: "order", Value: v, Reason: "order must be asc or desc"}
	}
	return q, nil
}

// ParseReportQuery reads type, start, end and filter. A missing end defaults to
// today and a missing start to January 1st of the end's year.
func ParseReportQuery(query url.Values, today core.Date) (ReportQuery, error) {
	rq := ReportQuery{Type: ReportMonthly}

	switch v := strings.ToLower(strings.TrimSpace(query.Get("type"))); v {
	case "", ReportMonthly:
	case ReportCategory:
		rq.Type = ReportCategory
	default:
		return ReportQuery{}, &core.ValidationError{Field: "type", Value: v, Reason: "type must be monthly or category"}
	}

	var err error
	if rq.Range.Start, err = parseBound(query, "start"); err != nil {
		return ReportQuery{}, err
	}
	if rq.Range.End, err = parseBound(query, "end"); err != nil {
		return ReportQuery{}, err
	}
	if rq.Range.End.IsZero() {
		rq.Range.End = today
	}
	if rq.Range.Start.IsZero() {
		rq.Range.Start = core.NewDate(rq.Range.End.Year(), 1, 1)
	}
	if rq.Range.End.Before(rq.Range.Start.Time) {
		return ReportQuery{}, &core.ValidationError{Field: "end", Value: rq.Range.End.String(), Reason: "end is before start"}
	}

	if rq.Filter, err = analytics.ParseFilter(query.Get("filter")); err != nil {
		return ReportQuery{}, err
	}
	return rq, nil
}

func parseBound(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: key, Value: v, Reason: "date is not recognised"}
	}
	return d, nil
}

// decodeJSON decodes a bounded JSON body into v. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if isTooLarge(err) {
			return &core.ValidationError{Field: "body", Reason: "request body too large"}
		}
		return &core.ValidationError{Field: "body", Reason: "request body must be valid JSON"}
	}
	return nil
}

// pathID parses a numeric chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &core.ValidationError{Field: name, Value: raw, Reason: "must be a numeric id"}
	}
	return id, nil
}

// Upload is a statement received either as a multipart "file" part or as a raw
// text/csv body.
type Upload struct {
	Body    io.Reader
	Mapping core.ColumnMapping
	close   func() error
}

// Close releases temporary files held by a multipart upload.
func (u *Upload) Close() error {
	if u.close == nil {
		return nil
	}
	return u.close()
}

// ReadUpload extracts the statement and column mapping from r. With a raw CSV
// body the mapping comes from the query string.
func ReadUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, &core.ValidationError{Field: "content-type", Reason: MsgUnsupportedMediaType}
	}

	switch {
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(min(maxBytes, 32<<20)); err != nil {
			if isTooLarge(err) {
				return nil, errUploadTooLarge
			}
			return nil, &core.ValidationError{Field: "file", Reason: fmt.Sprintf("invalid multipart body: %v", err)}
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			_ = r.MultipartForm.RemoveAll()
			return nil, &core.ValidationError{Field: "file", Reason: "a file part is required"}
		}
		return &Upload{
			Body:    f,
			Mapping: mappingFrom(r.MultipartForm.Value),
			close: func() error {
				err := f.Close()
				_ = r.MultipartForm.RemoveAll()
				return err
			},
		}, nil
	case mediaType == "text/csv" || mediaType == "text/plain" || mediaType == "application/csv":
		return &Upload{Body: r.Body, Mapping: mappingFrom(r.URL.Query())}, nil
	default:
		return nil, &core.ValidationError{Field: "content-type", Value: mediaType, Reason: MsgUnsupportedMediaType}
	}
}

func mappingFrom(v url.Values) core.ColumnMapping {
	get := func(k string) string {
		if vals, ok := v[k]; ok && len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}
	return core.ColumnMapping{
		Date:        get("date"),
		Description: get("description"),
		Amount:      get("amount"),
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// isTooLarge reports whether err came from an exhausted MaxBytesReader.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
