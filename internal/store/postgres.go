package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Postgres is the pgx-backed Store.
type Postgres struct {
	*queries
	pool *pgxpool.Pool
}

type queries struct {
	db dbtx
}

var (
	_ Store   = (*Postgres)(nil)
	_ Querier = (*queries)(nil)
)

// NewPostgres creates a Store over the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{queries: &queries{db: pool}, pool: pool}
}

// InTx runs fn in a READ COMMITTED transaction. Rows read with FOR UPDATE stay locked until commit.
func (p *Postgres) InTx(ctx context.Context, fn func(q Querier) error) error {
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&queries{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *queries) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, q, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return ok, nil
}

func (r *queries) count(ctx context.Context, q string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
