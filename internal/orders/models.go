package orders

import "time"

// Order is the only persisted entity. Total is computed once at creation
// and stored; it is never recomputed on read.
type Order struct {
	ID        string      `json:"_id" bson:"-"`
	TenantID  string      `json:"tenantId" bson:"tenantId"`
	UserID    string      `json:"userId" bson:"userId"`
	Status    Status      `json:"status" bson:"status"` // lihat status.go
	Items     []OrderItem `json:"items" bson:"items"`
	Total     float64     `json:"total" bson:"total"`
	OrderRef  string      `json:"orderRef,omitempty" bson:"orderRef,omitempty"`
	CreatedAt time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt" bson:"updatedAt"`
}

type OrderItem struct {
	SKU   string  `json:"sku" bson:"sku"`
	Price float64 `json:"price" bson:"price"`
	Qty   int     `json:"qty" bson:"qty"`
}

// CreateInput is the validated body of a create request.
type CreateInput struct {
	UserID   string      `json:"userId"`
	Status   Status      `json:"status"`
	Items    []OrderItem `json:"items"`
	OrderRef *string     `json:"orderRef,omitempty"`
}

// DailyStat is one row of the daily revenue series. Days without orders
// are absent, callers get a sparse series.
type DailyStat struct {
	Day     time.Time `json:"day"`
	Revenue float64   `json:"revenue"`
	Count   int64     `json:"count"`
}

type TopItem struct {
	SKU     string  `json:"sku"`
	Qty     int64   `json:"qty"`
	Revenue float64 `json:"revenue"`
	Lines   int64   `json:"lines"`
}
