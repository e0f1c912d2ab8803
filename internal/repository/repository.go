package repository

import (
	"context"
	"errors"

	"github.com/lib/pq"
)

// queryer is the subset of sqlx operations repositories need from either a
// *sqlx.DB or a *sqlx.Tx, so reads can run inside or outside a transaction.
type queryer interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
)

// ErrNoActiveRow signals that a guarded update matched no active row.
var ErrNoActiveRow = errors.New("no active row matched")

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// IsSerializationFailure reports whether err is a serializable-isolation
// conflict. Callers surface it as a conflict; financial operations are never
// retried automatically.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqSerializationFailure
}
