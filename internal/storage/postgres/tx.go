package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// querier: общее подмножество *sql.DB и *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn связывает репозиторий либо с пулом, либо с транзакцией единицы работы.
type conn struct {
	db *sql.DB
	tx *sql.Tx
}

func (c conn) q() querier {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

func (c conn) inTx() bool {
	return c.tx != nil
}

// atomic выполняет fn в транзакции: в текущей, если она есть, иначе в новой.
func (c conn) atomic(ctx context.Context, fn func(q querier) error) (err error) {
	if c.tx != nil {
		return fn(c.tx)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Do реализует domain.UnitOfWork поверх одной SQL-транзакции.
// Сбои сериализации и взаимоблокировки возвращаются как ErrStockConflict, чтобы вызывающий мог повторить.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) (err error) {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, s.bind(conn{db: s.db, tx: tx})); err != nil {
		return translateTxError(err)
	}
	if err = tx.Commit(); err != nil {
		return translateTxError(fmt.Errorf("commit unit of work: %w", err))
	}
	return nil
}

// Repositories возвращает репозитории, работающие вне единицы работы.
func (s *Store) Repositories() domain.Repositories {
	return s.bind(conn{db: s.db})
}

func (s *Store) bind(c conn) domain.Repositories {
	return domain.Repositories{
		Customers: &customerRepository{conn: c},
		Products:  &productRepository{conn: c},
		Orders:    &orderRepository{conn: c},
		Movements: &stockMovementRepository{conn: c},
		Outbox:    &outboxRepository{conn: c},
	}
}

func translateTxError(err error) error {
	if pgErrorCode(err) == pgSerializationFailure || pgErrorCode(err) == pgDeadlockDetected {
		return fmt.Errorf("%w: %v", domain.ErrStockConflict, err)
	}
	return err
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}

func isCheckViolation(err error) bool {
	return pgErrorCode(err) == pgCheckViolation
}

var _ domain.UnitOfWork = (*Store)(nil)
