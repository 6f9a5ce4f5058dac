// Package postgres implements store.Store on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/taskmarket/internal/store"
)

// Store runs every transaction on the pool at READ COMMITTED; state
// transitions rely on SELECT ... FOR UPDATE plus status-guarded updates.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("transaction start failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapErr(fmt.Errorf("commit failed: %w", err))
	}
	return nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) Users() store.UserRepo       { return users{t.tx} }
func (t *pgTx) Tasks() store.TaskRepo       { return tasks{t.tx} }
func (t *pgTx) Bids() store.BidRepo         { return bids{t.tx} }
func (t *pgTx) Payments() store.PaymentRepo { return payments{t.tx} }
func (t *pgTx) Services() store.ServiceRepo { return services{t.tx} }
func (t *pgTx) Bookings() store.BookingRepo { return bookings{t.tx} }
func (t *pgTx) Reviews() store.ReviewRepo   { return reviews{t.tx} }

const (
	uniqueViolation = "23505"
	// invalidTextRepresentation is raised when an id is not a valid UUID
	invalidTextRepresentation = "22P02"
)

// mapErr translates driver errors into store sentinels
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		case invalidTextRepresentation:
			// a malformed id can never match a row
			return store.ErrNotFound
		}
	}
	return err
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// guarded checks the result of a status-guarded UPDATE. Zero rows means
// either the row is gone or its status moved on; exists tells them apart.
func guarded(ctx context.Context, q rowQuerier, tag pgconn.CommandTag, table, id string) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := q.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table), id).Scan(&exists); err != nil {
		return mapErr(err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrStatusMismatch
}

// validID reports whether id can be compared against a UUID column
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// nullable converts an empty string into SQL NULL
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
