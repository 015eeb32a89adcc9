package storage

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken maps the patients.username unique constraint.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrNotOwner means the row exists but belongs to a different patient.
	ErrNotOwner = errors.New("not the resource owner")
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
