// Package ingest turns CSV bank statements into transaction records.
//
// Reading is split from mapping: ReadRows and Preview only understand the CSV
// dialect (comma separated, header row, standard quoting), while Mapper applies a
// user supplied ColumnMapping and normalizes dates and amounts.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"spendwise/internal/core"
)

// PreviewRows is the number of data rows returned by Preview.
const PreviewRows = 5

// rows read between context checks
const chunkSize = 512

// Row maps a header name to the raw cell value.
type Row map[string]string

// Table is a parsed CSV file.
type Table struct {
	Headers []string
	Rows    []Row
	// Lines of each row in the source, parallel to Rows.
	Lines  []int
	Errors []RowError
}

// Preview is a bounded, unnormalized sample of a statement.
type Preview struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

var ErrEmptyFile = &core.ValidationError{Field: "file", Reason: "file is empty or has no header row"}

// ReadRows parses every record of r. A limit above zero caps the number of data rows;
// exceeding it is a validation error. Records the CSV reader rejects are recorded in
// Table.Errors and skipped.
func ReadRows(ctx context.Context, r io.Reader, limit int) (Table, error) {
	return readTable(ctx, r, limit, false)
}

// ReadPreview parses the header and at most PreviewRows data rows.
func ReadPreview(ctx context.Context, r io.Reader) (Preview, error) {
	t, err := readTable(ctx, r, PreviewRows, true)
	if err != nil {
		return Preview{}, err
	}
	rows := t.Rows
	if rows == nil {
		rows = []Row{}
	}
	return Preview{Headers: t.Headers, Rows: rows}, nil
}

func readTable(ctx context.Context, r io.Reader, limit int, truncate bool) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, ErrEmptyFile
	}
	if err != nil {
		return Table{}, &core.ValidationError{Field: "file", Reason: fmt.Sprintf("unreadable header: %v", err)}
	}
	headers := normalizeHeaders(header)
	if len(headers) == 0 {
		return Table{}, ErrEmptyFile
	}

	t := Table{Headers: headers}
	for n := 0; ; n++ {
		if n%chunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return Table{}, err
			}
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				slog.DebugContext(ctx, "Skipping malformed CSV record", "line", pe.Line, "error", pe.Err)
				t.Errors = append(t.Errors, RowError{Line: pe.Line, Err: pe.Err})
				continue
			}
			return Table{}, fmt.Errorf("read csv: %w", err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		if limit > 0 && len(t.Rows) >= limit {
			if truncate {
				break
			}
			return Table{}, &core.ValidationError{Field: "file", Reason: fmt.Sprintf("file has more than %d rows", limit)}
		}

		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
		t.Lines = append(t.Lines, line)
	}
	return t, nil
}

func normalizeHeaders(record []string) []string {
	out := make([]string, 0, len(record))
	empty := true
	for i, h := range record {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h != "" {
			empty = false
		}
		out = append(out, h)
	}
	if empty {
		return nil
	}
	return out
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
