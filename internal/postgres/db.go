package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id          text COLLATE "C" PRIMARY KEY,
		tenant_id   text NOT NULL,
		user_id     text NOT NULL,
		status      text NOT NULL CHECK (status IN ('DRAFT', 'PAID', 'CANCELLED')),
		items       jsonb NOT NULL,
		total       double precision NOT NULL CHECK (total >= 0),
		order_ref   text,
		created_at  timestamptz NOT NULL,
		updated_at  timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_tenant_user_status_created ON orders (tenant_id, user_id, status, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS orders_tenant_status_created ON orders (tenant_id, status, created_at)`,
	`CREATE INDEX IF NOT EXISTS orders_tenant_created_id ON orders (tenant_id, created_at DESC, id DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS orders_tenant_order_ref ON orders (tenant_id, order_ref) WHERE order_ref IS NOT NULL`,
}

// EnsureSchema creates the orders table and its indexes when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
