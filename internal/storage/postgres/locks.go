package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seatsurge/boxoffice/internal/domain"
	"github.com/seatsurge/boxoffice/internal/locking"
)

// LockCoordinator serializes capacity-affecting writes with transaction-
// scoped Postgres advisory locks. Locks acquired through it are released on
// every exit path because they die with the transaction.
type LockCoordinator struct {
	pool    *pgxpool.Pool
	timeout string
}

// NewLockCoordinator builds a coordinator with a bounded lock wait.
func NewLockCoordinator(pool *pgxpool.Pool, timeoutMillis int) *LockCoordinator {
	if timeoutMillis <= 0 {
		timeoutMillis = 5000
	}
	return &LockCoordinator{pool: pool, timeout: fmt.Sprintf("%dms", timeoutMillis)}
}

// WithLock opens a transaction, acquires the advisory locks strictly in the
// given canonical order and runs fn inside that transaction. An unsorted
// key set is a programming error and aborts before any lock is taken. A
// wait beyond the bound surfaces domain.ErrLockTimeout, which callers must
// treat as retryable.
func (c *LockCoordinator) WithLock(ctx context.Context, keys []int64, fn func(ctx context.Context) error) error {
	if !locking.InCanonicalOrder(keys) {
		return domain.ErrLockOrderViolation
	}
	return withTx(ctx, c.pool, func(txCtx context.Context) error {
		tx := txFromContext(txCtx)
		if _, err := tx.Exec(txCtx, `SET LOCAL lock_timeout = '`+c.timeout+`'`); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
		for _, key := range keys {
			if _, err := tx.Exec(txCtx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
				if isLockNotAvailable(err) {
					return domain.ErrLockTimeout
				}
				return fmt.Errorf("acquire advisory lock %d: %w", key, err)
			}
		}
		return fn(txCtx)
	})
}
