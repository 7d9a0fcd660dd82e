package projector

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/tenant-orders/internal/kafka"
	"github.com/ariefcatur/tenant-orders/internal/orders"
)

type memDedup struct {
	seen map[string]bool
	err  error
}

func (d *memDedup) Forget(_ context.Context, id string) error {
	delete(d.seen, id)
	return nil
}

func (d *memDedup) FirstSeen(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

type recInvalidator struct {
	tenants []string
	err     error
}

func (r *recInvalidator) Invalidate(_ context.Context, tenantID string) error {
	if r.err != nil {
		return r.err
	}
	r.tenants = append(r.tenants, tenantID)
	return nil
}

func message(eventID, eventType, tenant string) kafkago.Message {
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "order-api",
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:  "65a1b2c3d4e5f60718293a4b",
			TenantID: tenant,
			UserID:   "u1",
			Status:   orders.StatusPaid,
			Total:    20,
		}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderCreated_InvalidatesOncePerEvent(t *testing.T) {
	inv := &recInvalidator{}
	s := &Service{Dedup: &memDedup{}, Stats: inv}
	ctx := context.Background()

	require.NoError(t, s.HandleOrderCreated(ctx, message("e1", orders.EventOrderCreated, "t1")))
	require.NoError(t, s.HandleOrderCreated(ctx, message("e1", orders.EventOrderCreated, "t1")))
	require.NoError(t, s.HandleOrderCreated(ctx, message("e2", orders.EventOrderCreated, "t2")))

	assert.Equal(t, []string{"t1", "t2"}, inv.tenants)
}

func TestHandleOrderCreated_IgnoresOtherEvents(t *testing.T) {
	inv := &recInvalidator{}
	s := &Service{Dedup: &memDedup{}, Stats: inv}
	ctx := context.Background()

	assert.NoError(t, s.HandleOrderCreated(ctx, message("e1", "OrderShipped", "t1")))
	assert.NoError(t, s.HandleOrderCreated(ctx, kafkago.Message{Value: []byte("not json")}))
	assert.NoError(t, s.HandleOrderCreated(ctx, message("e2", orders.EventOrderCreated, "")))
	assert.Empty(t, inv.tenants)
}

func TestHandleOrderCreated_ErrorsAreRetried(t *testing.T) {
	ctx := context.Background()

	s := &Service{Dedup: &memDedup{err: errors.New("redis down")}, Stats: &recInvalidator{}}
	assert.Error(t, s.HandleOrderCreated(ctx, message("e1", orders.EventOrderCreated, "t1")))

	inv := &recInvalidator{err: errors.New("redis down")}
	s = &Service{Dedup: &memDedup{}, Stats: inv}
	assert.Error(t, s.HandleOrderCreated(ctx, message("e1", orders.EventOrderCreated, "t1")))

	// the failed event is not remembered, so redelivery does the work
	inv.err = nil
	require.NoError(t, s.HandleOrderCreated(ctx, message("e1", orders.EventOrderCreated, "t1")))
	assert.Equal(t, []string{"t1"}, inv.tenants)
}

func TestHandleOrderCreated_WithoutDedup(t *testing.T) {
	inv := &recInvalidator{}
	s := &Service{Stats: inv}
	require.NoError(t, s.HandleOrderCreated(context.Background(), message("e1", orders.EventOrderCreated, "t1")))
	assert.Equal(t, []string{"t1"}, inv.tenants)
}

func TestHandleOrderCreated_HeaderSkipsOtherTypes(t *testing.T) {
	inv := &recInvalidator{}
	dd := &memDedup{}
	s := &Service{Dedup: dd, Stats: inv}
	ctx := context.Background()

	m := message("e1", orders.EventOrderCreated, "t1")
	m.Headers = kafkax.EventHeaders("OrderShipped", 1)
	require.NoError(t, s.HandleOrderCreated(ctx, m))
	assert.Empty(t, inv.tenants)
	assert.Empty(t, dd.seen)

	m.Headers = kafkax.EventHeaders(orders.EventOrderCreated, 1)
	require.NoError(t, s.HandleOrderCreated(ctx, m))
	assert.Equal(t, []string{"t1"}, inv.tenants)
}
