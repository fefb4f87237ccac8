package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// ErrInvalidValue is returned when Postgres cannot store a value as given,
// such as text containing a NUL byte or invalid UTF-8.
var ErrInvalidValue = errors.New("invalid value")

const (
	pqStringDataRightTruncation = "22001"
	pqNumericValueOutOfRange    = "22003"
	pqCharacterNotInRepertoire  = "22021"
	pqUntranslatableCharacter   = "22P05"
	pqUniqueViolation           = "23505"
)

// translate maps driver errors caused by the caller's input onto the
// package sentinels. A numeric id outside the column's range cannot match
// a row, so it reads as ErrNotFound.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrConflict
	case pqNumericValueOutOfRange:
		return ErrNotFound
	case pqStringDataRightTruncation, pqCharacterNotInRepertoire, pqUntranslatableCharacter:
		return ErrInvalidValue
	default:
		return err
	}
}
