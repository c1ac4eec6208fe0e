package store

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxTx is the subset of pgx.Tx this package uses; aliased so call sites
// read as "a transaction" rather than repeating the pgx import everywhere.
type pgxTx = pgx.Tx

// retryablePgErrorCodes are PostgreSQL SQLSTATE classes worth a bounded
// retry: serialization failures and deadlocks from concurrent writers
// racing the same conflict-resolution upserts (spec §4.8 "Bulk insert").
var retryablePgErrorCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

// withRetry runs fn with exponential backoff on transient PostgreSQL
// errors, capped at a handful of attempts so a genuinely broken batch
// fails fast rather than spinning.
func withRetry(ctx context.Context, fn func() error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isRetryablePgError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}

func isRetryablePgError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryablePgErrorCodes[pgErr.Code]
	}
	return false
}
