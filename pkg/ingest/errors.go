package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means a sheet or file had no rows.
	ErrNoData = errors.New("no data found")
	// ErrBadCell is the root of every parse failure.
	ErrBadCell = errors.New("invalid cell")
	// ErrIncompleteDemand means some week, day and hour has no demand row.
	ErrIncompleteDemand = errors.New("demand is incomplete")
)

// CellError locates a parse failure. Row is 1-based as shown in the sheet.
type CellError struct {
	Sheet  string
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("%s row %d, %s %q: %s", e.Sheet, e.Row, e.Column, e.Value, e.Reason)
}

func (e *CellError) Unwrap() error { return ErrBadCell }
