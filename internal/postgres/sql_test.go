package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/tenant-orders/internal/orders"
)

func TestFindSQL_CursorQuery(t *testing.T) {
	at := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	id := "65a1b2c3d4e5f60718293a4b"
	sql, args, err := findSQL(orders.Query{
		Match: orders.Match{
			All: []orders.Cond{
				{Field: orders.FieldTenantID, Op: orders.OpEq, Value: "t1"},
				{Field: orders.FieldStatus, Op: orders.OpEq, Value: orders.StatusPaid},
			},
			Any: [][]orders.Cond{
				{{Field: orders.FieldCreatedAt, Op: orders.OpLt, Value: at}},
				{
					{Field: orders.FieldCreatedAt, Op: orders.OpEq, Value: at},
					{Field: orders.FieldID, Op: orders.OpLt, Value: id},
				},
			},
		},
		Sort:  []orders.SortKey{{Field: "createdAt", Desc: true}, {Field: "_id", Desc: true}},
		Limit: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT "+orderColumns+" FROM orders"+
		" WHERE tenant_id = $1 AND status = $2 AND ((created_at < $3) OR (created_at = $4 AND id < $5))"+
		" ORDER BY created_at DESC, id DESC LIMIT 3", sql)
	assert.Equal(t, []any{"t1", "PAID", at, at, id}, args)
}

func TestFindSQL_UnknownField(t *testing.T) {
	_, _, err := findSQL(orders.Query{Sort: []orders.SortKey{{Field: "nope"}}})
	assert.Error(t, err)
}

func TestAggregateSQL_DailyStats(t *testing.T) {
	from := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 23, 59, 59, 999e6, time.UTC)
	sql, args, err := aggregateSQL(orders.DailyStatsPipeline("t1", orders.RangeParams{From: from, To: to}))
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT (date_trunc('day', created_at AT TIME ZONE 'UTC') AT TIME ZONE 'UTC') AS "day", `+
			`SUM(total)::double precision AS "revenue", SUM(1)::double precision AS "count" `+
			`FROM orders WHERE tenant_id = $1 AND created_at >= $2 AND created_at <= $3 `+
			`GROUP BY 1 ORDER BY "day" ASC`, sql)
	assert.Equal(t, []any{"t1", from, to}, args)
}

func TestAggregateSQL_TopItems(t *testing.T) {
	sql, args, err := aggregateSQL(orders.TopItemsPipeline("t1", orders.TopItemsParams{
		RangeParams: orders.RangeParams{Status: orders.StatusPaid},
		Limit:       10,
	}))
	require.NoError(t, err)
	assert.True(t, strings.Contains(sql, "FROM orders CROSS JOIN LATERAL jsonb_array_elements(orders.items) AS item"), sql)
	assert.Contains(t, sql, `(item->>'sku') AS "sku"`)
	assert.Contains(t, sql, `SUM(((item->>'price')::double precision * (item->>'qty')::double precision))::double precision AS "revenue"`)
	assert.True(t, strings.HasSuffix(sql, `GROUP BY 1 ORDER BY "revenue" DESC, "sku" ASC LIMIT 10`), sql)
	assert.Equal(t, "PAID", args[3])
}

func TestAggregateSQL_RejectsUnsupportedShapes(t *testing.T) {
	group := orders.GroupStage{KeyAs: "k", Key: orders.FieldRef{Field: orders.FieldUserID}}
	cases := map[string]orders.Pipeline{
		"no group":          {orders.MatchStage{}},
		"match after group": {group, orders.MatchStage{}},
		"two groups":        {group, group},
		"unwind user":       {orders.UnwindStage{Path: orders.FieldUserID}, group},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := aggregateSQL(p)
			assert.Error(t, err)
		})
	}
}
