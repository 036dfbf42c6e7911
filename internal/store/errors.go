package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyVoted is returned when the voter is already in a product's vote set.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrNotVoted is returned when the voter is not in a product's vote set.
	ErrNotVoted = errors.New("not voted")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
