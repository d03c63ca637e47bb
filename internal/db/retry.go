package db

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsRetryable is a function that checks whether an error is worth another attempt.
type IsRetryable func(err error) bool

const DefaultMaxRetries = 3

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Try executes an operation with default retry settings for transient conflicts.
// It uses DefaultMaxRetries and IsSerializationError.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsSerializationError)
}

// WithRetries executes an operation, retrying it while isRetryable accepts the error.
// It attempts the operation up to maxRetries additional times.
func WithRetries(op Operation, maxRetries int, isRetryable IsRetryable) error {
	var err error
	// Loop for initial attempt (attempt = 0) + maxRetries
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		if attempt == maxRetries {
			break
		}

		if isRetryable(err) {
			time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond) // Simple incremental backoff
		} else {
			return err
		}
	}
	return err
}

// IsDuplicateKeyError reports a unique constraint violation, either translated by
// gorm or raw from the pgx driver.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// IsSerializationError reports a serialization failure or deadlock, both of which
// PostgreSQL expects the client to retry.
func IsSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}
