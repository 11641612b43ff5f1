package table

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when a required column is absent from a table.
	ErrMissingColumn = errors.New("missing required column")
	// ErrCardinality is returned when a join does not preserve the expected row count.
	ErrCardinality = errors.New("join cardinality violated")
	// ErrDuplicateKey is returned when a key that must be unique appears more than once.
	ErrDuplicateKey = errors.New("duplicate join key")
	// ErrInvalidValue is returned when a cell cannot be converted to its column type.
	ErrInvalidValue = errors.New("invalid cell value")
)

// SchemaError names the stage that produced a table and the column it lacks.
type SchemaError struct {
	Stage  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %v %q", e.Stage, ErrMissingColumn, e.Column)
}

func (e *SchemaError) Unwrap() error { return ErrMissingColumn }

// CardinalityError reports a join whose output row count differs from its left input.
type CardinalityError struct {
	Stage string
	Want  int
	Got   int
	Key   string // first offending key, if known
}

func (e *CardinalityError) Error() string {
	msg := fmt.Sprintf("%s: %v: expected %d rows, got %d", e.Stage, ErrCardinality, e.Want, e.Got)
	if e.Key != "" {
		msg += fmt.Sprintf(" (first unmatched key %s)", e.Key)
	}
	return msg
}

func (e *CardinalityError) Unwrap() error { return ErrCardinality }

// DuplicateKeyError reports a key that appears twice on a side that must be unique.
type DuplicateKeyError struct {
	Stage string
	Side  string
	Key   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: %v %s on %s side", e.Stage, ErrDuplicateKey, e.Key, e.Side)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }
