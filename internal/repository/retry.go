package repository

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// withRetry runs a storage operation and retries it exactly once when the
// failure is transient (connection loss, serialization conflict, deadlock).
// Commands are never retried end-to-end at a higher layer — that would risk
// duplicate side effects — so this boundary is the only retry site.
func withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !isTransient(err) || ctx.Err() != nil {
		return err
	}
	return fn()
}

func isTransient(err error) bool {
	if pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"08000", // connection_exception
			"08006", // connection_failure
			"57P03": // cannot_connect_now
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
