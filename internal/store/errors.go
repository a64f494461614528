package store

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-crm/validation"
)

// Sentinel errors. Use errors.Is against these; errors.As against the typed errors
// below for details.
var (
	ErrNotFound   = errors.New("not found")
	ErrReference  = errors.New("reference error")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

// ReferenceError reports a create or update pointing at a parent that does not exist.
type ReferenceError struct {
	Kind string // "client" or "quote"
	ID   uint
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %d does not exist", e.Kind, e.ID)
}

func (e *ReferenceError) Unwrap() error { return ErrReference }

// ValidationError carries field-level violations.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Violations.String()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func missingClient(id uint) error { return &ReferenceError{Kind: "client", ID: id} }
func missingQuote(id uint) error  { return &ReferenceError{Kind: "quote", ID: id} }

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}
