package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/tenant-orders/internal/kafka"
	"github.com/ariefcatur/tenant-orders/internal/orders"
)

// Deduper reports whether an event id is delivered for the first time.
// Forget undoes FirstSeen so a failed event is handled again on redelivery.
type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Invalidator drops a tenant's derived statistics.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string) error
}

type Service struct {
	Dedup Deduper
	Stats Invalidator
}

// HandleOrderCreated: dipasang sebagai handler consumer.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	// 0) header cukup untuk skip event lain tanpa decode body
	if t := kafkax.Header(m, "x-event-type"); t != "" && t != orders.EventOrderCreated {
		return nil
	}

	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// pesan rusak tidak akan pernah sukses; commit saja
		log.Printf("projector: drop undecodable message at offset %d: %v", m.Offset, err)
		return nil
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	} // ignore

	// 2) decode payload
	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		log.Printf("projector: drop event %s: %v", env.EventID, err)
		return nil
	}
	if p.TenantID == "" {
		return nil
	}

	// 3) dedup via Redis (pakai event_id)
	if s.Dedup != nil && env.EventID != "" {
		first, err := s.Dedup.FirstSeen(ctx, env.EventID)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", env.EventID, err)
		}
		if !first {
			return nil
		}
	}

	// 4) invalidate stats tenant
	if err := s.Stats.Invalidate(ctx, p.TenantID); err != nil {
		if s.Dedup != nil && env.EventID != "" {
			if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
				log.Printf("projector: forget event %s: %v", env.EventID, ferr)
			}
		}
		return fmt.Errorf("invalidate stats for tenant %s: %w", p.TenantID, err)
	}
	return nil
}
