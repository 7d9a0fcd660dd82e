package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/tenant-orders/internal/orders"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	db, err := Connect(ctx, dsn)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	t.Cleanup(db.Close)
	require.NoError(t, EnsureSchema(context.Background(), db))
	_, err = db.Exec(context.Background(), `DELETE FROM orders WHERE tenant_id LIKE 'pgtest-%'`)
	require.NoError(t, err)
	return &Store{DB: db}
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	svc := orders.NewService(s)
	ctx := context.Background()
	tenant := "pgtest-roundtrip"

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, orders.CreateInput{
			UserID: "u1",
			Status: orders.StatusPaid,
			Items:  []orders.OrderItem{{SKU: "A", Price: 2.5, Qty: 2}},
		}, tenant)
		require.NoError(t, err)
	}

	p1, err := svc.ListCursor(ctx, orders.CursorParams{ListParams: orders.ListParams{Limit: 2}}, tenant)
	require.NoError(t, err)
	require.Len(t, p1.Page, 2)
	require.NotNil(t, p1.NextCursor)
	p2, err := svc.ListCursor(ctx, orders.CursorParams{ListParams: orders.ListParams{Limit: 2}, After: p1.NextCursor}, tenant)
	require.NoError(t, err)
	require.Len(t, p2.Page, 1)
	assert.Nil(t, p2.NextCursor)
	assert.Equal(t, []orders.OrderItem{{SKU: "A", Price: 2.5, Qty: 2}}, p2.Page[0].Items)

	now := time.Now().UTC()
	rng := orders.RangeParams{From: now.Add(-time.Hour), To: now.Add(time.Hour)}
	top, err := svc.TopItems(ctx, orders.TopItemsParams{RangeParams: rng}, tenant)
	require.NoError(t, err)
	assert.Equal(t, []orders.TopItem{{SKU: "A", Qty: 6, Revenue: 15, Lines: 3}}, top)

	plan, err := svc.ExplainList(ctx, orders.ListParams{}, tenant)
	require.NoError(t, err)
	assert.Equal(t, "postgres", plan["store"])
}

func TestStore_DuplicateOrderRef(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := &orders.Order{TenantID: "pgtest-dup", UserID: "u1", Status: orders.StatusDraft, Items: []orders.OrderItem{}, OrderRef: "R1"}
	require.NoError(t, s.Insert(ctx, o))
	dup := *o
	err := s.Insert(ctx, &dup)
	assert.True(t, errors.Is(err, orders.ErrDuplicateKey), "got %v", err)
}
