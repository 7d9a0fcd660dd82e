package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchAndDoesNotAlias(t *testing.T) {
	m := tenantMatch("t1")
	a := m.And(Cond{Field: FieldUserID, Op: OpEq, Value: "a"})
	b := m.And(Cond{Field: FieldUserID, Op: OpEq, Value: "b"})
	assert.Len(t, m.All, 1)
	assert.Equal(t, "a", a.All[1].Value)
	assert.Equal(t, "b", b.All[1].Value)
}

func TestFilterMatch(t *testing.T) {
	m := filterMatch("t1", "", "")
	assert.Equal(t, []Cond{{Field: FieldTenantID, Op: OpEq, Value: "t1"}}, m.All)

	m = filterMatch("t1", "u1", StatusPaid)
	assert.Equal(t, []Cond{
		{Field: FieldTenantID, Op: OpEq, Value: "t1"},
		{Field: FieldUserID, Op: OpEq, Value: "u1"},
		{Field: FieldStatus, Op: OpEq, Value: StatusPaid},
	}, m.All)
	assert.Empty(t, m.Any)
}

func TestDailyStatsPipeline(t *testing.T) {
	from := time.Date(2025, 12, 1, 7, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	to := from.Add(24 * time.Hour)
	p := DailyStatsPipeline("t1", RangeParams{From: from, To: to, Status: StatusPaid})
	require.Len(t, p, 3)

	match, ok := p[0].(MatchStage)
	require.True(t, ok)
	assert.Equal(t, Cond{Field: FieldTenantID, Op: OpEq, Value: "t1"}, match.Match.All[0])
	assert.Equal(t, Cond{Field: FieldCreatedAt, Op: OpGte, Value: from.UTC()}, match.Match.All[1])
	assert.Equal(t, Cond{Field: FieldCreatedAt, Op: OpLte, Value: to.UTC()}, match.Match.All[2])
	assert.Equal(t, Cond{Field: FieldStatus, Op: OpEq, Value: StatusPaid}, match.Match.All[3])

	group, ok := p[1].(GroupStage)
	require.True(t, ok)
	assert.Equal(t, "day", group.KeyAs)
	assert.Equal(t, DayTrunc{Field: FieldCreatedAt}, group.Key)

	assert.Equal(t, SortStage{Keys: []SortKey{{Field: "day"}}}, p[2])
}

func TestTopItemsPipeline(t *testing.T) {
	p := TopItemsPipeline("t1", TopItemsParams{Limit: 5})
	require.Len(t, p, 5)
	assert.Equal(t, UnwindStage{Path: FieldItems}, p[1])

	group := p[2].(GroupStage)
	assert.Equal(t, FieldRef{Field: FieldItemSKU}, group.Key)
	require.Len(t, group.Sums, 3)
	assert.Equal(t, Multiply{Left: FieldRef{Field: FieldItemPrice}, Right: FieldRef{Field: FieldItemQty}}, group.Sums[1].Of)

	assert.Equal(t, SortStage{Keys: []SortKey{{Field: "revenue", Desc: true}, {Field: "sku"}}}, p[3])
	assert.Equal(t, LimitStage{N: 5}, p[4])
}

func TestRowAccessors(t *testing.T) {
	r := Row{"i32": int32(3), "i64": int64(4), "f": 2.5, "s": "x", "t": time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, int64(3), r.Int("i32"))
	assert.Equal(t, int64(4), r.Int("i64"))
	assert.Equal(t, int64(2), r.Int("f"))
	assert.Equal(t, 3.0, r.Float("i32"))
	assert.Equal(t, 2.5, r.Float("f"))
	assert.Equal(t, "x", r.String("s"))
	assert.Equal(t, "", r.String("missing"))
	assert.Equal(t, 2025, r.Time("t").Year())
}
