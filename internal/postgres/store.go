package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ariefcatur/tenant-orders/internal/orders"
)

const uniqueViolation = "23505"

// Store keeps orders in one table with the line items in a jsonb column,
// so the document shape survives and the pipeline maps onto one SELECT.
type Store struct{ DB *pgxpool.Pool }

func (s *Store) Insert(ctx context.Context, o *orders.Order) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	// Same 12-byte ObjectID format as the Mongo store: time prefixed and
	// ordered by creation, which keeps cursors portable between stores.
	id := primitive.NewObjectID().Hex()

	var ref any
	if o.OrderRef != "" {
		ref = o.OrderRef
	}
	_, err := s.DB.Exec(ctx, `
		INSERT INTO orders(id, tenant_id, user_id, status, items, total, order_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		id, o.TenantID, o.UserID, string(o.Status), o.Items, o.Total, ref, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &orders.ConflictError{Key: map[string]any{"tenantId": o.TenantID, "orderRef": o.OrderRef}}
		}
		return err
	}
	o.ID = id
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

func (s *Store) Find(ctx context.Context, q orders.Query) ([]orders.Order, error) {
	sql, args, err := findSQL(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []orders.Order{}
	for rows.Next() {
		var (
			o      orders.Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.TenantID, &o.UserID, &status, &o.Items, &o.Total, &o.OrderRef, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = orders.Status(status)
		o.CreatedAt = o.CreatedAt.UTC()
		o.UpdatedAt = o.UpdatedAt.UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) Aggregate(ctx context.Context, p orders.Pipeline) ([]orders.Row, error) {
	sql, args, err := aggregateSQL(p)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := []orders.Row{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		r := make(orders.Row, len(fields))
		for i, fd := range fields {
			v := vals[i]
			if t, ok := v.(time.Time); ok {
				v = t.UTC()
			}
			r[fd.Name] = v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Explain runs EXPLAIN ANALYZE on the find query and returns the JSON plan.
func (s *Store) Explain(ctx context.Context, q orders.Query) (orders.Plan, error) {
	sql, args, err := findSQL(q)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := s.DB.QueryRow(ctx, "EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON) "+sql, args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}
	var plan []map[string]any
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	out := orders.Plan{"store": "postgres"}
	if len(plan) > 0 {
		out["plan"] = plan[0]
	}
	return out, nil
}
