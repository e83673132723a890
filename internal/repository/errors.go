package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when a unique email constraint is violated
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicatePhone is returned when a unique phone constraint is violated
	ErrDuplicatePhone = errors.New("user with this phone already exists")

	// ErrDuplicateToken is returned when a refresh token collides
	ErrDuplicateToken = errors.New("token already exists")
)

// uniqueViolation maps a postgres unique_violation to the sentinel for the
// constraint that fired. Returns nil when err is not a unique violation.
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}

	switch {
	case strings.Contains(pqErr.Constraint, "phone"):
		return ErrDuplicatePhone
	case strings.Contains(pqErr.Constraint, "email"):
		return ErrDuplicateEmail
	case strings.Contains(pqErr.Constraint, "token"):
		return ErrDuplicateToken
	default:
		return nil
	}
}
