package orders

import (
	"context"
	"time"
)

// Store is the order persistence port. Implementations execute the
// store-independent Query and Pipeline descriptions.
type Store interface {
	// Insert persists o and fills in ID, CreatedAt and UpdatedAt.
	// A unique index violation is reported as *ConflictError.
	Insert(ctx context.Context, o *Order) error

	Find(ctx context.Context, q Query) ([]Order, error)

	Aggregate(ctx context.Context, p Pipeline) ([]Row, error)

	// Explain returns the store's execution diagnostic for q.
	Explain(ctx context.Context, q Query) (Plan, error)
}

// Row accessors tolerate the numeric types the different drivers return
// (int32 from BSON, float64 from SQL casts, int64 from the memory store).

func (r Row) String(k string) string {
	s, _ := r[k].(string)
	return s
}

func (r Row) Float(k string) float64 {
	switch v := r[k].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func (r Row) Int(k string) int64 {
	switch v := r[k].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func (r Row) Time(k string) time.Time {
	t, _ := r[k].(time.Time)
	return t.UTC()
}
