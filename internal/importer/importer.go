// Package importer implements bulk creation of transactions from CSV
// payloads with partial-failure tolerance: bad rows are reported, good rows
// are imported, and the batch never aborts midway.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"findash/internal/core"
	"findash/internal/ledger"
	"findash/internal/log"
)

// requiredColumns is the fixed external contract of the CSV header.
// The date column is optional; absent or unparseable dates fall back to now.
var requiredColumns = []string{"amount", "description", "category", "transaction_type"}

// coercionWorkers bounds the concurrent row-coercion stage.
const coercionWorkers = 8

// Result reports the outcome of one batch import.
type Result struct {
	TotalRows         int      `json:"total_rows"`
	SuccessfulImports int      `json:"successful_imports"`
	Errors            []string `json:"errors"`
}

// ParseError reports a payload that could not be processed at all: empty
// file, unreadable CSV, or a missing required column. Nothing is imported.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "csv: " + e.Reason
}

// Importer feeds parsed rows into the store through the same validation path
// as manual entry.
type Importer struct {
	writer ledger.TransactionWriter
	now    func() time.Time
}

func New(writer ledger.TransactionWriter) *Importer {
	return &Importer{writer: writer, now: time.Now}
}

// rowOutcome is the result of coercing one data row.
type rowOutcome struct {
	tx  core.Transaction
	err error
}

// ImportBatch parses payload and attempts to create one transaction per data
// row. Row numbering starts at 1 for the first data row. Coercion runs
// concurrently; creates are serialized in row order so id assignment matches
// file order.
func (i *Importer) ImportBatch(ctx context.Context, payload []byte) (Result, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return Result{}, &ParseError{Reason: "file is empty"}
	}

	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1 // ragged rows become row-level errors
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{}, &ParseError{Reason: "invalid CSV format"}
	}
	columns, err := mapColumns(header)
	if err != nil {
		return Result{}, err
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a malformed line surfaces as a row error below, not a
			// batch abort
			records = append(records, nil)
			continue
		}
		records = append(records, record)
	}

	outcomes := make([]rowOutcome, len(records))

	var g errgroup.Group
	g.SetLimit(coercionWorkers)
	for idx, record := range records {
		g.Go(func() error {
			outcomes[idx] = i.coerceRow(columns, record)
			return nil
		})
	}
	_ = g.Wait() // coercion never returns an error; failures are per-row

	result := Result{TotalRows: len(records), Errors: []string{}}
	for idx, outcome := range outcomes {
		rowNum := idx + 1
		if outcome.err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, outcome.err))
			continue
		}
		if _, err := i.writer.CreateTransaction(ctx, outcome.tx); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		result.SuccessfulImports++
	}

	slog.InfoContext(ctx, "CSV batch imported",
		log.FieldTotalRows, result.TotalRows,
		log.FieldImported, result.SuccessfulImports,
		"failed", len(result.Errors))

	return result, nil
}

// mapColumns builds a case-insensitive name -> position index from the
// header row and checks the required column contract.
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for pos, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = pos
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}
	return columns, nil
}

// coerceRow converts one CSV record into an unvalidated transaction.
// Validation proper happens in the store; coercion only deals with types.
func (i *Importer) coerceRow(columns map[string]int, record []string) rowOutcome {
	if record == nil {
		return rowOutcome{err: fmt.Errorf("malformed CSV line")}
	}
	field := func(name string) string {
		pos, ok := columns[name]
		if !ok || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	cents, err := core.ParseDecimalToCents(field("amount"))
	if err != nil {
		return rowOutcome{err: fmt.Errorf("invalid amount")}
	}

	return rowOutcome{tx: core.Transaction{
		Amount:      core.Money{Cents: cents},
		Description: field("description"),
		Category:    core.Category(strings.ToLower(field("category"))),
		Type:        core.TransactionType(strings.ToLower(field("transaction_type"))),
		Date:        i.parseDate(field("date")),
	}}
}

// parseDate accepts RFC 3339 or plain YYYY-MM-DD. Absent or unparseable
// dates fall back to the current time, as documented in the CSV contract.
func (i *Importer) parseDate(s string) time.Time {
	if s == "" {
		return i.now().UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return i.now().UTC()
}
