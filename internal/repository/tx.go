package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultRetryAttempts bounds how often a transaction is replayed after a
// transient storage failure.
const DefaultRetryAttempts = 3

// runTx executes fn inside a GORM transaction. Serialization failures,
// deadlocks and dropped connections roll back and replay fn from scratch, up
// to attempts times; any other error (domain preconditions included) is
// returned as-is on the first occurrence.
func runTx(ctx context.Context, db *gorm.DB, attempts int, fn func(tx *gorm.DB) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil || !isTransient(err) || attempt == attempts {
			return err
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("repository: transient storage error, retrying transaction")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff(attempt)):
		}
	}
	return err
}

// isTransient reports whether err is worth replaying the whole transaction.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
		return false
	}
	return errors.Is(err, driver.ErrBadConn)
}

// retryBackoff: 25ms, 100ms, 225ms ... capped at 1s.
func retryBackoff(attempt int) time.Duration {
	d := time.Duration(attempt*attempt) * 25 * time.Millisecond
	if d > time.Second {
		return time.Second
	}
	return d
}

// isUniqueViolation covers both the translated GORM error and raw driver
// errors from dialects without a translator.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
