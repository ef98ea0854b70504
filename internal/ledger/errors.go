package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWorkbook is returned when an import source cannot be read as a
// workbook.
var ErrInvalidWorkbook = errors.New("invalid workbook")

// ValidationError is returned when a create request lacks required input.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("type, amount, and date are required (missing: %s)", strings.Join(e.Fields, ", "))
}

// NotFoundError is returned when an update or delete names an unknown id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entry not found: %s", e.ID)
}

// PersistenceError wraps a failure to read or write the ledger file. The
// file on disk is left as it was before the failed operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
