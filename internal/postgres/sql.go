package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/tenant-orders/internal/orders"
)

const orderColumns = `id, tenant_id, user_id, status, items, total, COALESCE(order_ref, ''), created_at, updated_at`

// columns maps document fields onto SQL expressions. Item fields are only
// valid after an unwind, where each line is bound as "item".
var columns = map[orders.Field]string{
	orders.FieldID:        "id",
	orders.FieldTenantID:  "tenant_id",
	orders.FieldUserID:    "user_id",
	orders.FieldStatus:    "status",
	orders.FieldTotal:     "total",
	orders.FieldOrderRef:  "order_ref",
	orders.FieldCreatedAt: "created_at",
	orders.FieldItemSKU:   "(item->>'sku')",
	orders.FieldItemPrice: "(item->>'price')::double precision",
	orders.FieldItemQty:   "(item->>'qty')::double precision",
}

var opSQL = map[orders.Op]string{
	orders.OpEq:  "=",
	orders.OpLt:  "<",
	orders.OpLte: "<=",
	orders.OpGte: ">=",
}

// builder accumulates positional arguments while SQL text is rendered.
type builder struct {
	args []any
}

func (b *builder) arg(v any) string {
	if st, ok := v.(orders.Status); ok {
		v = string(st)
	}
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func column(f orders.Field) (string, error) {
	c, ok := columns[f]
	if !ok {
		return "", fmt.Errorf("postgres: unknown field %q", f)
	}
	return c, nil
}

func (b *builder) conds(cs []orders.Cond) ([]string, error) {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		col, err := column(c.Field)
		if err != nil {
			return nil, err
		}
		op, ok := opSQL[c.Op]
		if !ok {
			return nil, fmt.Errorf("postgres: unsupported operator %q", c.Op)
		}
		out = append(out, col+" "+op+" "+b.arg(c.Value))
	}
	return out, nil
}

func (b *builder) where(m orders.Match) ([]string, error) {
	parts, err := b.conds(m.All)
	if err != nil {
		return nil, err
	}
	if len(m.Any) > 0 {
		groups := make([]string, 0, len(m.Any))
		for _, g := range m.Any {
			gc, err := b.conds(g)
			if err != nil {
				return nil, err
			}
			groups = append(groups, "("+strings.Join(gc, " AND ")+")")
		}
		parts = append(parts, "("+strings.Join(groups, " OR ")+")")
	}
	return parts, nil
}

func orderBy(keys []orders.SortKey, name func(string) (string, error)) (string, error) {
	if len(keys) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		n, err := name(k.Field)
		if err != nil {
			return "", err
		}
		dir := " ASC"
		if k.Desc {
			dir = " DESC"
		}
		parts = append(parts, n+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func fieldName(f string) (string, error) { return column(orders.Field(f)) }

func outputName(f string) (string, error) { return pgx.Identifier{f}.Sanitize(), nil }

// findSQL renders a Query as a SELECT over the orders table.
func findSQL(q orders.Query) (string, []any, error) {
	var b builder
	where, err := b.where(q.Match)
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	ob, err := orderBy(q.Sort, fieldName)
	if err != nil {
		return "", nil, err
	}
	sql += ob
	if q.Limit > 0 {
		sql += " LIMIT " + strconv.Itoa(q.Limit)
	}
	return sql, b.args, nil
}

func (b *builder) expr(e orders.Expr) (string, error) {
	switch e := e.(type) {
	case orders.FieldRef:
		return column(e.Field)
	case orders.Const:
		return strconv.FormatFloat(e.Value, 'f', -1, 64), nil
	case orders.DayTrunc:
		col, err := column(e.Field)
		if err != nil {
			return "", err
		}
		return "(date_trunc('day', " + col + " AT TIME ZONE 'UTC') AT TIME ZONE 'UTC')", nil
	case orders.Multiply:
		l, err := b.expr(e.Left)
		if err != nil {
			return "", err
		}
		r, err := b.expr(e.Right)
		if err != nil {
			return "", err
		}
		return "(" + l + " * " + r + ")", nil
	}
	return "", fmt.Errorf("postgres: unsupported expression %T", e)
}

// aggregateSQL renders a pipeline as one grouped SELECT. Matches and the
// unwind must come before the group stage; sort and limit after it.
func aggregateSQL(p orders.Pipeline) (string, []any, error) {
	var (
		b        builder
		from     = "orders"
		where    []string
		selects  []string
		sortKeys []orders.SortKey
		limit    int
		grouped  bool
	)
	for _, st := range p {
		switch st := st.(type) {
		case orders.MatchStage:
			if grouped {
				return "", nil, fmt.Errorf("postgres: match after group is not supported")
			}
			w, err := b.where(st.Match)
			if err != nil {
				return "", nil, err
			}
			where = append(where, w...)
		case orders.UnwindStage:
			if st.Path != orders.FieldItems || grouped {
				return "", nil, fmt.Errorf("postgres: cannot unwind %q here", st.Path)
			}
			from = "orders CROSS JOIN LATERAL jsonb_array_elements(orders.items) AS item"
		case orders.GroupStage:
			if grouped {
				return "", nil, fmt.Errorf("postgres: only one group stage is supported")
			}
			key, err := b.expr(st.Key)
			if err != nil {
				return "", nil, err
			}
			selects = append(selects, key+" AS "+pgx.Identifier{st.KeyAs}.Sanitize())
			for _, s := range st.Sums {
				v, err := b.expr(s.Of)
				if err != nil {
					return "", nil, err
				}
				selects = append(selects, "SUM("+v+")::double precision AS "+pgx.Identifier{s.As}.Sanitize())
			}
			grouped = true
		case orders.SortStage:
			sortKeys = append(sortKeys, st.Keys...)
		case orders.LimitStage:
			limit = st.N
		default:
			return "", nil, fmt.Errorf("postgres: unsupported stage %T", st)
		}
	}
	if !grouped {
		return "", nil, fmt.Errorf("postgres: pipeline has no group stage")
	}

	sql := "SELECT " + strings.Join(selects, ", ") + " FROM " + from
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " GROUP BY 1"
	ob, err := orderBy(sortKeys, outputName)
	if err != nil {
		return "", nil, err
	}
	sql += ob
	if limit > 0 {
		sql += " LIMIT " + strconv.Itoa(limit)
	}
	return sql, b.args, nil
}
