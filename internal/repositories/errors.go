package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors so callers can branch without parsing driver errors.
// ErrNotFound is the expected outcome for first-time wallets; ErrDuplicate
// surfaces unique-constraint violations instead of swallowing them.
var (
	ErrNotFound  = errors.New("no matching row")
	ErrDuplicate = errors.New("duplicate row")
)

const pgUniqueViolation = "23505"

// mapError translates pgx/postgres errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}
