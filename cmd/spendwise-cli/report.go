package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"spendwise/internal/advisor"
	"spendwise/internal/analytics"
	"spendwise/internal/core"
	"spendwise/internal/ingest"
	"spendwise/internal/services"
)

// Report is everything analyze prints.
type Report struct {
	Import          services.ImportResult     `json:"import"`
	Filter          string                    `json:"filter"`
	Summary         analytics.Summary         `json:"summary"`
	Categories      []analytics.CategoryShare `json:"categories"`
	Months          []analytics.MonthlyFlow   `json:"months"`
	Recommendations []advisor.Recommendation  `json:"recommendations"`
}

// ReportOptions narrows the analyzed transactions.
type ReportOptions struct {
	Range  core.DateRange
	Filter analytics.FilterToken
}

// ParseReportOptions parses the --start, --end and --filter flags. Empty bounds
// leave the range open.
func ParseReportOptions(start, end, filter string) (ReportOptions, error) {
	var opts ReportOptions
	var err error
	if start = strings.TrimSpace(start); start != "" {
		if opts.Range.Start, err = core.ParseDate(start); err != nil {
			return ReportOptions{}, fmt.Errorf("--start: %w", err)
		}
	}
	if end = strings.TrimSpace(end); end != "" {
		if opts.Range.End, err = core.ParseDate(end); err != nil {
			return ReportOptions{}, fmt.Errorf("--end: %w", err)
		}
	}
	if !opts.Range.Start.IsZero() && !opts.Range.End.IsZero() && opts.Range.End.Before(opts.Range.Start.Time) {
		return ReportOptions{}, fmt.Errorf("--end %s is before --start %s", opts.Range.End, opts.Range.Start)
	}
	if opts.Filter, err = analytics.ParseFilter(filter); err != nil {
		return ReportOptions{}, fmt.Errorf("--filter: %w", err)
	}
	return opts, nil
}

// LoadMapping reads a YAML column mapping:
//
//	date: Booking Date
//	description: Payee
//	amount: Amount (EUR)
func LoadMapping(path string) (core.ColumnMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.ColumnMapping{}, fmt.Errorf("read mapping: %w", err)
	}
	var m core.ColumnMapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return core.ColumnMapping{}, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	return m, nil
}

var (
	heading  = color.New(color.Bold, color.FgCyan).SprintFunc()
	positive = color.New(color.FgGreen).SprintFunc()
	negative = color.New(color.FgRed).SprintFunc()
	faint    = color.New(color.Faint).SprintFunc()
)

func severityColor(s advisor.Severity) *color.Color {
	switch s {
	case advisor.SeverityWarning:
		return color.New(color.BgYellow, color.FgBlack)
	case advisor.SeveritySuccess:
		return color.New(color.BgGreen, color.FgBlack)
	case advisor.SeverityTip:
		return color.New(color.BgBlue, color.FgWhite)
	default:
		return color.New(color.BgWhite, color.FgBlack)
	}
}

// tabulate aligns rows with a tabwriter and returns the finished lines, so colour
// can be applied afterwards without escape codes skewing the column widths.
func tabulate(rows [][]string, flags uint) ([]string, error) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', flags)
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return lines, nil
}

func renderPreview(w io.Writer, p ingest.Preview) error {
	rows := [][]string{p.Headers}
	for _, row := range p.Rows {
		cells := make([]string, len(p.Headers))
		for i, h := range p.Headers {
			cells[i] = row[h]
		}
		rows = append(rows, cells)
	}
	lines, err := tabulate(rows, 0)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, heading(lines[0]))
	for _, l := range lines[1:] {
		fmt.Fprintln(w, l)
	}
	if len(p.Rows) == 0 {
		fmt.Fprintln(w, faint("(no data rows)"))
	}
	return nil
}

func renderReport(w io.Writer, r Report) error {
	fmt.Fprintf(w, "%s imported %d, dropped %d, skipped %d %s\n",
		heading("Import"), r.Import.Imported, r.Import.Dropped, r.Import.Skipped, faint("batch "+r.Import.BatchID))
	for _, e := range r.Import.Errors {
		fmt.Fprintf(w, "  %s %s\n", negative("skipped"), e.Error())
	}

	fmt.Fprintf(w, "\n%s %s\n", heading("Summary"), faint("filter "+r.Filter))
	lines, err := tabulate([][]string{
		{"  income", r.Summary.TotalIncome.StringFixed(2)},
		{"  expense", r.Summary.TotalExpense.StringFixed(2)},
		{"  net", r.Summary.NetSavings.StringFixed(2)},
		{"  savings rate", r.Summary.SavingsRate.StringFixed(1) + "%"},
		{"  transactions", fmt.Sprint(r.Summary.Count)},
	}, tabwriter.AlignRight)
	if err != nil {
		return err
	}
	lines[0] = positive(lines[0])
	lines[1] = negative(lines[1])
	lines[2] = signed(lines[2], r.Summary.NetSavings.IsNegative())
	fmt.Fprintln(w, strings.Join(lines, "\n"))

	if len(r.Categories) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Spending by category"))
		rows := make([][]string, 0, len(r.Categories))
		for _, c := range r.Categories {
			rows = append(rows, []string{"  " + c.Name, c.Value.StringFixed(2)})
		}
		if lines, err = tabulate(rows, 0); err != nil {
			return err
		}
		fmt.Fprintln(w, strings.Join(lines, "\n"))
	}

	if len(r.Months) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Monthly"))
		rows := [][]string{{"  month", "income", "expense"}}
		for _, m := range r.Months {
			rows = append(rows, []string{"  " + m.Label, m.Income.StringFixed(2), m.Expense.StringFixed(2)})
		}
		if lines, err = tabulate(rows, 0); err != nil {
			return err
		}
		lines[0] = faint(lines[0])
		fmt.Fprintln(w, strings.Join(lines, "\n"))
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Recommendations"))
		for _, rec := range r.Recommendations {
			badge := severityColor(rec.Severity).Sprintf(" %-7s ", rec.Severity)
			fmt.Fprintf(w, "  %s %s: %s\n", badge, rec.Title, rec.Message)
		}
	}
	return nil
}

func signed(s string, neg bool) string {
	if neg {
		return negative(s)
	}
	return positive(s)
}

func renderJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
