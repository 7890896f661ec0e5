package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Sentinels for errors.Is matching across the taxonomy.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("storage failure")
)

// FieldError is one failing field of a submission.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every failing field, not only the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a single-field ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// NotFoundError reports a referenced entity that is absent or inactive.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a unique-key clash or a forbidden state transition.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// PersistenceError wraps a storage failure. Error() stays generic so that
// driver details never reach a caller; Unwrap exposes the cause for logs.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "internal storage error during " + e.Op
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Postgres SQLSTATE codes the taxonomy cares about.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNumericOutOfRange   = "22003"
)

// classifyPgError maps a driver error onto the taxonomy. Errors already in
// the taxonomy pass through unchanged. Anything unrecognised is logged and
// returned as a PersistenceError.
func classifyPgError(log *zap.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrPersistence) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConflictError{Reason: fmt.Sprintf("%s: duplicate value violates %s", op, pgErr.ConstraintName)}
		case pgForeignKeyViolation:
			return NewValidationError(pgErr.ConstraintName, "references a missing record")
		case pgCheckViolation:
			return NewValidationError(pgErr.ConstraintName, "value violates a check constraint")
		case pgNumericOutOfRange:
			field := pgErr.ColumnName
			if field == "" {
				field = op
			}
			return NewValidationError(field, "value is out of range")
		}
	}

	log.Error("persistence failure", zap.String("op", op), zap.Error(err))
	return &PersistenceError{Op: op, Err: err}
}

// isNoRows reports whether err is pgx.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
