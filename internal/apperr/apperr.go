// Package apperr defines the error kinds surfaced to callers of the service layer.
package apperr

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/evcraddock/churchdesk/internal/metrics"
)

// Kind classifies an error by what the caller should do about it.
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
	KindStorage    Kind = "TRANSIENT_STORAGE_ERROR"
)

// FieldError is a problem with a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the error type returned by services.
type Error struct {
	Kind       Kind
	Message    string
	Fields     []FieldError
	Dependents int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case len(e.Fields) > 0:
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Field + ": " + f.Message
		}
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(parts, "; "))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a VALIDATION_ERROR listing every offending field.
func Validation(fields ...FieldError) error {
	return &Error{Kind: KindValidation, Message: "invalid input", Fields: fields}
}

// NotFound returns a NOT_FOUND error for the given entity.
func NotFound(entity string, id int64) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

// Conflict returns a CONFLICT error carrying the number of blocking dependents.
func Conflict(msg string, dependents int) error {
	return &Error{Kind: KindConflict, Message: msg, Dependents: dependents}
}

// Storage wraps a database failure. Nothing from the operation was committed.
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// FromStorage classifies a driver error. A unique constraint violation becomes a
// validation error on the unique field it names; anything else is a storage error.
// With several unique fields the one in the constraint message wins, else the first.
func FromStorage(op string, err error, uniqueFields ...string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		if field := uniqueField(se.Error(), uniqueFields); field != "" {
			return Validation(FieldError{Field: field, Message: "this value is already in use"})
		}
	}
	return Storage(op, err)
}

// uniqueField picks the column named in a "UNIQUE constraint failed: table.col" message.
func uniqueField(msg string, fields []string) string {
	first := ""
	for _, f := range fields {
		if f == "" {
			continue
		}
		if first == "" {
			first = f
		}
		if strings.Contains(msg, "."+f) {
			return f
		}
	}
	return first
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Fields returns the field errors carried by err, if any.
func Fields(err error) []FieldError {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}

// Dependents returns the blocking dependent count of a CONFLICT error.
func Dependents(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Dependents
	}
	return 0
}

// Track logs a failed write and counts it, then returns err unchanged.
// Business rejections log at warn; storage failures at error.
func Track(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	if kind == "" {
		kind = KindStorage
	}
	metrics.Rejections.WithLabelValues(entity, string(kind)).Inc()

	if kind == KindStorage {
		slog.Error(op+" failed", "entity", entity, "err", err)
	} else {
		slog.Warn(op+" rejected", "entity", entity, "kind", kind, "err", err)
	}
	return err
}
