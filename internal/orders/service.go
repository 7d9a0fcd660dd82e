package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service holds the order logic. It keeps no state between calls; every
// method takes the tenant explicitly and issues exactly one store call.
type Service struct {
	Store  Store
	NewRef func() string
}

func NewService(store Store) *Service {
	return &Service{Store: store, NewRef: uuid.NewString}
}

// Total sums price*qty in decimal arithmetic so the stored total is the
// exact sum of the line amounts, not an accumulation of float rounding.
func Total(items []OrderItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return sum.InexactFloat64()
}

func (s *Service) Create(ctx context.Context, in CreateInput, tenantID string) (*Order, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	ref := ""
	if in.OrderRef != nil {
		ref = *in.OrderRef
	} else {
		ref = s.NewRef()
	}

	items := make([]OrderItem, len(in.Items))
	copy(items, in.Items)

	o := &Order{
		TenantID: tenantID,
		UserID:   in.UserID,
		Status:   in.Status,
		Items:    items,
		Total:    Total(items),
		OrderRef: ref,
	}
	if err := s.Store.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, p ListParams, tenantID string) ([]Order, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	out, err := s.Store.Find(ctx, listQuery(tenantID, p))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

// ListCursor pages through the tenant's orders in (createdAt desc, _id desc)
// order. One extra row is fetched to know whether another page exists.
func (s *Service) ListCursor(ctx context.Context, p CursorParams, tenantID string) (*CursorPage, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	limit := limitOr(p.Limit, DefaultListLimit)

	m := filterMatch(tenantID, p.UserID, p.Status)
	if p.After != nil {
		at, err := parseCursorTime(p.After.CreatedAt)
		if err != nil {
			return nil, err
		}
		m.Any = [][]Cond{
			{{Field: FieldCreatedAt, Op: OpLt, Value: at}},
			{
				{Field: FieldCreatedAt, Op: OpEq, Value: at},
				{Field: FieldID, Op: OpLt, Value: strings.ToLower(p.After.ID)},
			},
		}
	}

	rows, err := s.Store.Find(ctx, Query{
		Match: m,
		Sort:  []SortKey{{Field: string(FieldCreatedAt), Desc: true}, {Field: string(FieldID), Desc: true}},
		Limit: limit + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("find orders page: %w", err)
	}

	page := &CursorPage{Page: rows}
	if len(rows) > limit {
		page.Page = rows[:limit]
		page.NextCursor = cursorFor(page.Page[limit-1])
	}
	if page.Page == nil {
		page.Page = []Order{}
	}
	return page, nil
}

func (s *Service) DailyStats(ctx context.Context, p RangeParams, tenantID string) ([]DailyStat, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	rows, err := s.Store.Aggregate(ctx, DailyStatsPipeline(tenantID, p))
	if err != nil {
		return nil, fmt.Errorf("aggregate daily stats: %w", err)
	}
	out := make([]DailyStat, 0, len(rows))
	for _, r := range rows {
		out = append(out, DailyStat{Day: r.Time("day"), Revenue: r.Float("revenue"), Count: r.Int("count")})
	}
	return out, nil
}

func (s *Service) TopItems(ctx context.Context, p TopItemsParams, tenantID string) ([]TopItem, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	p.Limit = limitOr(p.Limit, DefaultTopItemsLimit)
	rows, err := s.Store.Aggregate(ctx, TopItemsPipeline(tenantID, p))
	if err != nil {
		return nil, fmt.Errorf("aggregate top items: %w", err)
	}
	out := make([]TopItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, TopItem{
			SKU:     r.String("sku"),
			Qty:     r.Int("qty"),
			Revenue: r.Float("revenue"),
			Lines:   r.Int("lines"),
		})
	}
	return out, nil
}

// ExplainList runs the list query through the store's plan diagnostic.
// Operational use only.
func (s *Service) ExplainList(ctx context.Context, p ListParams, tenantID string) (Plan, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	plan, err := s.Store.Explain(ctx, listQuery(tenantID, p))
	if err != nil {
		return nil, fmt.Errorf("explain list: %w", err)
	}
	return plan, nil
}

func listQuery(tenantID string, p ListParams) Query {
	return Query{
		Match: filterMatch(tenantID, p.UserID, p.Status),
		Sort:  []SortKey{{Field: string(FieldCreatedAt), Desc: true}},
		Limit: limitOr(p.Limit, DefaultListLimit),
	}
}
