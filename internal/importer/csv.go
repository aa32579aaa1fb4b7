// Package importer reads and writes expenses as CSV.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/pennywise/internal/model"
)

// ErrMissingColumn is returned when a CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Column names understood by the importer. Matching is case-insensitive.
const (
	ColumnTitle       = "title"
	ColumnAmount      = "amount"
	ColumnDate        = "date"
	ColumnDescription = "description"
	ColumnCategory    = "category"
)

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	time.RFC3339,
}

// SkippedRow records a CSV row that was not imported.
type SkippedRow struct {
	Reason string
	Line   int
}

// Result is the outcome of parsing a CSV file.
type Result struct {
	Expenses []model.Expense
	Skipped  []SkippedRow
}

// ParseCSV reads expenses from CSV with a header row. Rows without a title or
// amount are skipped, as are rows whose amount or date cannot be parsed. A blank
// date means defaultDate. Negative amounts are stored as their absolute value.
func ParseCSV(r io.Reader, defaultDate time.Time) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := headerMap(header)
	for _, required := range []string{ColumnTitle, ColumnAmount} {
		if _, ok := columns[required]; !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	result := Result{Expenses: []model.Expense{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("failed to read csv row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		exp, reason := parseRecord(record, columns, defaultDate)
		if reason != "" {
			slog.Debug("Skipping CSV row", "line", line, "reason", reason)
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: reason})
			continue
		}
		result.Expenses = append(result.Expenses, exp)
	}

	slog.Info("Parsed CSV file",
		"expenses", len(result.Expenses),
		"skipped", len(result.Skipped))
	return result, nil
}

func parseRecord(record []string, columns map[string]int, defaultDate time.Time) (model.Expense, string) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	title := field(ColumnTitle)
	rawAmount := field(ColumnAmount)
	if title == "" || rawAmount == "" {
		return model.Expense{}, "missing title or amount"
	}

	amount, err := parseAmount(rawAmount)
	if err != nil {
		return model.Expense{}, fmt.Sprintf("invalid amount %q", rawAmount)
	}

	date := defaultDate
	if raw := field(ColumnDate); raw != "" {
		date, err = ParseDate(raw)
		if err != nil {
			return model.Expense{}, fmt.Sprintf("invalid date %q", raw)
		}
	}

	return model.NewExpense(title, field(ColumnDescription), amount, date, model.OriginImported), ""
}

func parseAmount(raw string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if amount < 0 {
		amount = -amount
	}
	return amount, nil
}

// ParseDate accepts YYYY-MM-DD, MM/DD/YYYY and RFC 3339 dates.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// headerMap maps lower-cased column names to their index.
func headerMap(record []string) map[string]int {
	m := make(map[string]int, len(record))
	for i, r := range record {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(r, "\ufeff")))
		if _, dup := m[name]; !dup {
			m[name] = i
		}
	}
	return m
}

// WriteCSV writes expenses with a header row of title, amount, category, date
// and description.
func WriteCSV(w io.Writer, expenses []model.Expense) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{ColumnTitle, ColumnAmount, ColumnCategory, ColumnDate, ColumnDescription}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, exp := range expenses {
		record := []string{
			exp.Title,
			strconv.FormatFloat(exp.Amount, 'f', 2, 64),
			string(exp.Category),
			exp.Date.Format("2006-01-02"),
			exp.Description,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write expense %s: %w", exp.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
