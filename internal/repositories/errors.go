package repositories

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/escrowdesk/backend/internal/models"
)

// mapErr converts pgx/pgconn failures to domain errors. Context errors
// pass through untouched.
func mapErr(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", op, models.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s: %w", op, models.ErrValidation)
		}
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %v", op, models.ErrStorageUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
