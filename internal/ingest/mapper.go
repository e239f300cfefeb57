package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"spendwise/internal/core"
)

// IDSource hands out unique transaction ids.
type IDSource interface {
	NextID() int64
}

// Sequence is an IDSource counting up from a starting value.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a Sequence whose first id is start+1.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.last.Store(start)
	return s
}

func (s *Sequence) NextID() int64 {
	return s.last.Add(1)
}

// RowError records why a single row was skipped.
type RowError struct {
	Line  int    `json:"line"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
	Err   error  `json:"-"`
}

func (e RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// MarshalJSON adds the skip reason so API clients can show it.
func (e RowError) MarshalJSON() ([]byte, error) {
	out := struct {
		Line   int    `json:"line"`
		Field  string `json:"field,omitempty"`
		Value  string `json:"value,omitempty"`
		Reason string `json:"reason,omitempty"`
	}{Line: e.Line, Field: e.Field, Value: e.Value}
	if e.Err != nil {
		out.Reason = e.Err.Error()
	}
	return json.Marshal(out)
}

// Result is the outcome of mapping a batch of rows.
type Result struct {
	Transactions []core.Transaction
	// Rows without a date or amount value.
	Dropped int
	Errors  []RowError
}

// Skipped counts rows that produced no transaction.
func (r Result) Skipped() int {
	return r.Dropped + len(r.Errors)
}

// Mapper converts raw statement rows to transactions.
type Mapper struct {
	ids IDSource
}

func NewMapper(ids IDSource) *Mapper {
	if ids == nil {
		ids = NewSequence(0)
	}
	return &Mapper{ids: ids}
}

// ValidateMapping checks that every field names a column and, when headers are
// known, that the columns exist.
func ValidateMapping(m core.ColumnMapping, headers []string) error {
	if strings.TrimSpace(m.Date) == "" || strings.TrimSpace(m.Description) == "" || strings.TrimSpace(m.Amount) == "" {
		return core.ErrIncompleteMapping
	}
	if len(headers) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		known[h] = struct{}{}
	}
	for _, col := range []string{m.Date, m.Description, m.Amount} {
		if _, ok := known[col]; !ok {
			return &core.ValidationError{Field: "mapping", Value: col, Reason: "column not found in file"}
		}
	}
	return nil
}

// Map normalizes rows according to m. Rows missing a date or amount value are
// dropped; rows whose values cannot be parsed are skipped and reported. Neither
// aborts the batch.
func (mp *Mapper) Map(rows []Row, m core.ColumnMapping) (Result, error) {
	return mp.mapRows(rows, nil, m)
}

// MapTable maps a parsed table, reporting source line numbers in row errors.
func (mp *Mapper) MapTable(t Table, m core.ColumnMapping) (Result, error) {
	if err := ValidateMapping(m, t.Headers); err != nil {
		return Result{}, err
	}
	res, err := mp.mapRows(t.Rows, t.Lines, m)
	if err != nil {
		return Result{}, err
	}
	errs := make([]RowError, 0, len(t.Errors)+len(res.Errors))
	errs = append(errs, t.Errors...)
	res.Errors = append(errs, res.Errors...)
	return res, nil
}

func (mp *Mapper) mapRows(rows []Row, lines []int, m core.ColumnMapping) (Result, error) {
	if err := ValidateMapping(m, nil); err != nil {
		return Result{}, err
	}
	res := Result{Transactions: make([]core.Transaction, 0, len(rows))}
	for i, row := range rows {
		line := i + 2 // header is line 1
		if i < len(lines) {
			line = lines[i]
		}

		rawDate := strings.TrimSpace(row[m.Date])
		rawAmount := strings.TrimSpace(row[m.Amount])
		if rawDate == "" || rawAmount == "" {
			res.Dropped++
			continue
		}

		amount, err := core.ParseAmount(rawAmount)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Field: "amount", Value: rawAmount, Err: err})
			continue
		}
		date, err := core.ParseDate(rawDate)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Field: "date", Value: rawDate, Err: err})
			continue
		}

		tx := core.Transaction{
			Date:        date,
			Description: strings.TrimSpace(row[m.Description]),
			Amount:      amount,
		}
		if err := tx.Validate(); err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Field: "description", Value: clip(tx.Description, 40), Err: err})
			continue
		}
		tx.ID = mp.ids.NextID()
		res.Transactions = append(res.Transactions, tx)
	}
	return res, nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
