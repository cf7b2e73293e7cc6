package postgres

import (
	"database/sql"
	"errors"

	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/lib/pq"
)

// Postgres error codes the repositories care about
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally on the named constraint.
func IsUniqueViolation(err error, constraint ...string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != codeUniqueViolation {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if pqErr.Constraint == c {
			return true
		}
	}
	return false
}

// MapError marks a driver error with the matching sentinel
func MapError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHintf("%s: record not found", op).
			Mark(ierr.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		details := map[string]any{
			"operation":  op,
			"constraint": pqErr.Constraint,
		}
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return ierr.WithError(err).
				WithHint("A record with the same identifier already exists").
				WithReportableDetails(details).
				Mark(ierr.ErrAlreadyExists)
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return ierr.WithError(err).
				WithHint("The record is being modified concurrently").
				WithReportableDetails(details).
				Mark(ierr.ErrVersionConflict)
		}
	}

	return ierr.WithError(err).
		WithHintf("%s failed", op).
		Mark(ierr.ErrDatabase)
}
