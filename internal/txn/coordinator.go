package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fieldmarket/marketplace/pkg/database"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

const (
	serializableAttempts = 3
	retryBaseWait        = 50 * time.Millisecond
	retryJitterFraction  = 0.25
)

// PostgreSQL error codes that mark a transaction as retryable.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

var serializationRetries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "txn_serialization_retries_total",
		Help: "Total number of serializable transaction retries after a conflict",
	},
	[]string{"operation"},
)

// Coordinator owns transaction boundaries for multi-entity mutations. Cart
// edits, synchronization, and rating updates run at read committed with row
// locks; order placement runs serializable with bounded retry, since two
// placements racing for the same stock must not both commit.
type Coordinator struct {
	pool   database.Pool
	logger *slog.Logger
}

// NewCoordinator creates a transaction coordinator over the pool.
func NewCoordinator(pool database.Pool, logger *slog.Logger) *Coordinator {
	return &Coordinator{pool: pool, logger: logger}
}

// Default runs fn inside a read committed transaction, committing on nil and
// rolling back on error.
func (c *Coordinator) Default(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return c.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// Serializable runs fn inside a serializable transaction, retrying the whole
// function a bounded number of times on serialization conflicts before
// surfacing a transient conflict error. The operation label feeds the retry
// metric.
func (c *Coordinator) Serializable(ctx context.Context, operation string, fn func(tx pgx.Tx) error) error {
	var lastErr error

	for attempt := 0; attempt < serializableAttempts; attempt++ {
		if attempt > 0 {
			serializationRetries.WithLabelValues(operation).Inc()

			wait := retryWait(attempt - 1)
			c.logger.WarnContext(ctx, "serialization conflict, retrying transaction",
				slog.String("operation", operation),
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", serializableAttempts),
				slog.Duration("backoff", wait),
			)

			select {
			case <-ctx.Done():
				return fmt.Errorf("transaction retry canceled: %w", ctx.Err())
			case <-time.After(wait):
			}
		}

		err := c.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	c.logger.ErrorContext(ctx, "serializable transaction exhausted retries",
		slog.String("operation", operation),
		slog.String("error", lastErr.Error()),
	)

	return apperrors.Conflict(operation + " conflicted with concurrent activity")
}

func (c *Coordinator) run(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := c.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			c.logger.ErrorContext(ctx, "rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// isRetryable reports whether the error is a serialization failure or
// deadlock, the two conditions PostgreSQL asks clients to retry.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// retryWait returns the backoff for the given retry (0-indexed) with ±25%
// jitter. Base delays: 50ms, 100ms.
func retryWait(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	base := retryBaseWait << retry
	jitter := time.Duration(float64(base) * retryJitterFraction * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter
	return base + jitter
}
