// Package table implements the row-oriented CSV boundary between pipeline
// stages. Compatibility is by column name only: a Frame knows which stage
// produced it so schema and conversion errors can name both.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Frame is an in-memory CSV table with a named header.
type Frame struct {
	Stage  string
	Header []string
	Rows   [][]string

	index map[string]int
}

// ReadCSV loads a CSV file. stage identifies the producer in error messages.
func ReadCSV(path, stage string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open %s: %w", stage, path, err)
	}
	defer f.Close()

	frame, err := Parse(f, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return frame, nil
}

// Parse reads a CSV stream whose first record is the header.
func Parse(r io.Reader, stage string) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty table, header row expected", stage)
		}
		return nil, fmt.Errorf("%s: failed to read header: %w", stage, err)
	}

	frame := &Frame{Stage: stage, Header: make([]string, len(header))}
	frame.index = make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		frame.Header[i] = name
		if _, dup := frame.index[name]; dup {
			return nil, fmt.Errorf("%s: duplicate column %q in header", stage, name)
		}
		frame.index[name] = i
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stage, err)
	}
	frame.Rows = records
	return frame, nil
}

// Require fails with a SchemaError for the first listed column that is absent.
func (f *Frame) Require(columns ...string) error {
	for _, col := range columns {
		if !f.Has(col) {
			return &SchemaError{Stage: f.Stage, Column: col}
		}
	}
	return nil
}

// Has reports whether the frame contains the column.
func (f *Frame) Has(column string) bool {
	_, ok := f.index[column]
	return ok
}

// Len returns the number of data rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// String returns the trimmed cell at row i, or "" when the column is absent.
func (f *Frame) String(i int, column string) string {
	idx, ok := f.index[column]
	if !ok || idx >= len(f.Rows[i]) {
		return ""
	}
	return strings.TrimSpace(f.Rows[i][idx])
}

// Int parses the cell at row i as a base-10 integer. Float-formatted integers
// such as "12.0" are accepted since spreadsheet exports produce them.
func (f *Frame) Int(i int, column string) (int64, error) {
	raw := f.String(i, column)
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil && v == float64(int64(v)) {
		return int64(v), nil
	}
	return 0, f.cellError(i, column, raw)
}

// Float parses the cell at row i as a float64.
func (f *Frame) Float(i int, column string) (float64, error) {
	raw := f.String(i, column)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, f.cellError(i, column, raw)
	}
	return v, nil
}

func (f *Frame) cellError(i int, column, raw string) error {
	// +2: one for the header, one for 1-based line numbers
	return fmt.Errorf("%s: line %d column %q value %q: %w", f.Stage, i+2, column, raw, ErrInvalidValue)
}
