// Package memstore is an in-process orders.Store. It evaluates Query and
// Pipeline descriptions directly over a slice of orders, which makes it
// the reference interpreter for the pipeline stages.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/tenant-orders/internal/orders"
)

type doc map[string]any

type Store struct {
	// Now is the clock used for createdAt/updatedAt. Tests replace it.
	Now func() time.Time

	mu     sync.RWMutex
	seq    uint64
	orders []orders.Order
}

func New() *Store {
	return &Store{Now: time.Now}
}

func (s *Store) Insert(ctx context.Context, o *orders.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.OrderRef != "" {
		for _, ex := range s.orders {
			if ex.TenantID == o.TenantID && ex.OrderRef == o.OrderRef {
				return &orders.ConflictError{Key: map[string]any{"tenantId": o.TenantID, "orderRef": o.OrderRef}}
			}
		}
	}

	s.seq++
	now := s.Now().UTC().Truncate(time.Millisecond)
	o.ID = fmt.Sprintf("%024x", s.seq)
	o.CreatedAt = now
	o.UpdatedAt = now

	cp := *o
	cp.Items = append([]orders.OrderItem(nil), o.Items...)
	s.orders = append(s.orders, cp)
	return nil
}

func (s *Store) Find(ctx context.Context, q orders.Query) ([]orders.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		o orders.Order
		d doc
	}
	var hits []hit
	for _, o := range s.orders {
		d := toDoc(o)
		if matches(d, q.Match) {
			hits = append(hits, hit{o: o, d: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return less(hits[i].d, hits[j].d, q.Sort) })
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	out := make([]orders.Order, 0, len(hits))
	for _, h := range hits {
		o := h.o
		o.Items = append([]orders.OrderItem(nil), h.o.Items...)
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) Aggregate(ctx context.Context, p orders.Pipeline) ([]orders.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	docs := make([]doc, 0, len(s.orders))
	for _, o := range s.orders {
		docs = append(docs, toDoc(o))
	}
	s.mu.RUnlock()

	var err error
	for _, st := range p {
		docs, err = apply(docs, st)
		if err != nil {
			return nil, err
		}
	}
	out := make([]orders.Row, 0, len(docs))
	for _, d := range docs {
		out = append(out, orders.Row(d))
	}
	return out, nil
}

func (s *Store) Explain(ctx context.Context, q orders.Query) (orders.Plan, error) {
	found, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	examined := len(s.orders)
	s.mu.RUnlock()

	keys := make([]string, 0, len(q.Sort))
	for _, k := range q.Sort {
		dir := "asc"
		if k.Desc {
			dir = "desc"
		}
		keys = append(keys, k.Field+" "+dir)
	}
	return orders.Plan{
		"store": "memory",
		"executionStats": map[string]any{
			"stage":             "COLLSCAN",
			"sort":              strings.Join(keys, ", "),
			"limit":             q.Limit,
			"totalDocsExamined": examined,
			"nReturned":         len(found),
		},
	}, nil
}

func toDoc(o orders.Order) doc {
	return doc{
		string(orders.FieldID):        o.ID,
		string(orders.FieldTenantID):  o.TenantID,
		string(orders.FieldUserID):    o.UserID,
		string(orders.FieldStatus):    string(o.Status),
		string(orders.FieldItems):     o.Items,
		string(orders.FieldTotal):     o.Total,
		string(orders.FieldOrderRef):  o.OrderRef,
		string(orders.FieldCreatedAt): o.CreatedAt.UTC(),
	}
}

func apply(docs []doc, st orders.Stage) ([]doc, error) {
	switch st := st.(type) {
	case orders.MatchStage:
		out := docs[:0:0]
		for _, d := range docs {
			if matches(d, st.Match) {
				out = append(out, d)
			}
		}
		return out, nil
	case orders.UnwindStage:
		return unwind(docs, st.Path)
	case orders.GroupStage:
		return group(docs, st)
	case orders.SortStage:
		out := append([]doc(nil), docs...)
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j], st.Keys) })
		return out, nil
	case orders.LimitStage:
		if st.N > 0 && len(docs) > st.N {
			return docs[:st.N], nil
		}
		return docs, nil
	}
	return nil, fmt.Errorf("memstore: unsupported stage %T", st)
}

func unwind(docs []doc, path orders.Field) ([]doc, error) {
	if path != orders.FieldItems {
		return nil, fmt.Errorf("memstore: cannot unwind %q", path)
	}
	var out []doc
	for _, d := range docs {
		items, _ := d[string(path)].([]orders.OrderItem)
		for _, it := range items {
			nd := make(doc, len(d)+3)
			for k, v := range d {
				nd[k] = v
			}
			delete(nd, string(path))
			nd[string(orders.FieldItemSKU)] = it.SKU
			nd[string(orders.FieldItemPrice)] = it.Price
			nd[string(orders.FieldItemQty)] = float64(it.Qty)
			out = append(out, nd)
		}
	}
	return out, nil
}

func group(docs []doc, g orders.GroupStage) ([]doc, error) {
	index := map[any]doc{}
	var out []doc
	for _, d := range docs {
		key, err := eval(d, g.Key)
		if err != nil {
			return nil, err
		}
		gk := key
		if t, ok := key.(time.Time); ok {
			gk = t.UnixNano()
		}
		row, ok := index[gk]
		if !ok {
			row = doc{g.KeyAs: key}
			for _, s := range g.Sums {
				row[s.As] = float64(0)
			}
			index[gk] = row
			out = append(out, row)
		}
		for _, s := range g.Sums {
			v, err := eval(d, s.Of)
			if err != nil {
				return nil, err
			}
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("memstore: sum over non-numeric %T", v)
			}
			row[s.As] = row[s.As].(float64) + f
		}
	}
	return out, nil
}

func eval(d doc, e orders.Expr) (any, error) {
	switch e := e.(type) {
	case orders.FieldRef:
		return d[string(e.Field)], nil
	case orders.Const:
		return e.Value, nil
	case orders.DayTrunc:
		t, ok := d[string(e.Field)].(time.Time)
		if !ok {
			return nil, fmt.Errorf("memstore: %s is not a timestamp", e.Field)
		}
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case orders.Multiply:
		l, err := eval(d, e.Left)
		if err != nil {
			return nil, err
		}
		r, err := eval(d, e.Right)
		if err != nil {
			return nil, err
		}
		lf, lok := l.(float64)
		rf, rok := r.(float64)
		if !lok || !rok {
			return nil, fmt.Errorf("memstore: multiply over non-numeric values")
		}
		return lf * rf, nil
	}
	return nil, fmt.Errorf("memstore: unsupported expression %T", e)
}

func matches(d doc, m orders.Match) bool {
	if !all(d, m.All) {
		return false
	}
	if len(m.Any) == 0 {
		return true
	}
	for _, g := range m.Any {
		if all(d, g) {
			return true
		}
	}
	return false
}

func all(d doc, conds []orders.Cond) bool {
	for _, c := range conds {
		v := c.Value
		if st, ok := v.(orders.Status); ok {
			v = string(st)
		}
		cmp, ok := compare(d[string(c.Field)], v)
		if !ok {
			return false
		}
		switch c.Op {
		case orders.OpEq:
			if cmp != 0 {
				return false
			}
		case orders.OpLt:
			if cmp >= 0 {
				return false
			}
		case orders.OpLte:
			if cmp > 0 {
				return false
			}
		case orders.OpGte:
			if cmp < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func less(a, b doc, keys []orders.SortKey) bool {
	for _, k := range keys {
		cmp, _ := compare(a[k.Field], b[k.Field])
		if cmp == 0 {
			continue
		}
		if k.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

// compare orders two values of the same kind. ok is false when the kinds
// differ, which never matches a condition.
func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
