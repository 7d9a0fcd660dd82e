package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrTenantRequired = errors.New("tenant id is required")
)

// ConflictError is returned by a Store when an insert violates a unique
// index. Key holds the conflicting field/value pairs when the store can
// report them.
type ConflictError struct {
	Key map[string]any
}

func (e *ConflictError) Error() string {
	if len(e.Key) == 0 {
		return ErrDuplicateKey.Error()
	}
	parts := make([]string, 0, len(e.Key))
	for k, v := range e.Key {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return ErrDuplicateKey.Error() + ": " + strings.Join(parts, ",")
}

func (e *ConflictError) Unwrap() error { return ErrDuplicateKey }

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every field problem of one input shape so the
// client sees all of them at once.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.Field+" "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v *ValidationErrors) Add(field, msg string) {
	*v = append(*v, FieldError{Field: field, Message: msg})
}

// Err returns nil when nothing was collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
