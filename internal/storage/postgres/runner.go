// Package postgres implements the storage ports on PostgreSQL through
// database/sql and the pgx driver. RunInTx binds a *sql.Tx to the context;
// every store resolves its executor from there.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"evidex/internal/storage"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/platform/sentinel"
	txcontext "evidex/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Postgres error codes we translate.
const (
	pgUniqueViolation     = "23505"
	pgSerializationFailed = "40001"
	pgDeadlockDetected    = "40P01"
	pgCheckViolation      = "23514"
)

// Runner opens read-committed transactions over db.
type Runner struct {
	db      *sql.DB
	timeout time.Duration
	tx      *pgTx
}

func New(db *sql.DB, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &Runner{db: db, timeout: timeout, tx: &pgTx{db: db}}
}

var _ storage.Runner = (*Runner)(nil)

func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classify(err))
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, sqlTx), r.tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	return nil
}

// pgTx is stateless: the transaction travels in ctx.
type pgTx struct {
	db *sql.DB
}

func (t *pgTx) Evidence() storage.EvidenceStore { return &EvidenceStore{db: t.db} }
func (t *pgTx) Custody() storage.CustodyStore { return &CustodyStore{db: t.db} }
func (t *pgTx) Holds() storage.HoldStore { return &HoldStore{db: t.db} }
func (t *pgTx) Privilege() storage.PrivilegeStore { return &PrivilegeStore{db: t.db} }
func (t *pgTx) Productions() storage.ProductionStore { return &ProductionStore{db: t.db} }
func (t *pgTx) Sequences() storage.SequenceStore { return &SequenceStore{db: t.db} }

// classify attaches a sentinel to driver errors the services care about.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailed, pgDeadlockDetected:
			return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
		case pgCheckViolation:
			return fmt.Errorf("%w: %w", sentinel.ErrInvalidState, err)
		}
	}
	return err
}
