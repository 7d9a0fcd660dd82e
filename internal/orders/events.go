package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated = "OrderCreated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g., "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID   string    `json:"order_id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	OrderRef  string    `json:"order_ref"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

func NewOrderCreatedPayload(o *Order) OrderCreatedPayload {
	return OrderCreatedPayload{
		OrderID:   o.ID,
		TenantID:  o.TenantID,
		UserID:    o.UserID,
		Status:    o.Status,
		OrderRef:  o.OrderRef,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
}
