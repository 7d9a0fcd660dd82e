package orders

import "time"

// Field names are the persisted document field names. Store adapters map
// them onto their own columns or paths.
type Field string

const (
	FieldID        Field = "_id"
	FieldTenantID  Field = "tenantId"
	FieldUserID    Field = "userId"
	FieldStatus    Field = "status"
	FieldItems     Field = "items"
	FieldTotal     Field = "total"
	FieldOrderRef  Field = "orderRef"
	FieldCreatedAt Field = "createdAt"
	FieldItemSKU   Field = "items.sku"
	FieldItemPrice Field = "items.price"
	FieldItemQty   Field = "items.qty"
)

type Op string

const (
	OpEq  Op = "eq"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpGte Op = "gte"
)

// Cond compares one field against a value. Values are string, Status,
// time.Time or float64; _id values are hex identifier strings.
type Cond struct {
	Field Field
	Op    Op
	Value any
}

// Match is All conjoined with, when present, the disjunction of the Any
// groups (each group itself a conjunction).
type Match struct {
	All []Cond
	Any [][]Cond
}

func (m Match) And(c ...Cond) Match {
	m.All = append(append([]Cond(nil), m.All...), c...)
	return m
}

type SortKey struct {
	Field string
	Desc  bool
}

// Query is a plain find: filter, order, limit.
type Query struct {
	Match Match
	Sort  []SortKey
	Limit int
}

// Expr is an expression evaluated per document inside a group stage.
type Expr interface{ expr() }

type FieldRef struct{ Field Field }

// DayTrunc truncates a timestamp field to the start of its UTC day.
type DayTrunc struct{ Field Field }

type Multiply struct{ Left, Right Expr }

type Const struct{ Value float64 }

func (FieldRef) expr() {}
func (DayTrunc) expr() {}
func (Multiply) expr() {}
func (Const) expr()    {}

// Sum is an accumulator writing the sum of Of into output field As.
type Sum struct {
	As string
	Of Expr
}

type Stage interface{ stage() }

type MatchStage struct{ Match Match }

// UnwindStage emits one document per element of an array field; element
// fields become addressable as "<path>.<name>".
type UnwindStage struct{ Path Field }

// GroupStage groups on Key, writing the key value into output field KeyAs.
// Output rows contain only KeyAs and the accumulators.
type GroupStage struct {
	KeyAs string
	Key   Expr
	Sums  []Sum
}

type SortStage struct{ Keys []SortKey }

type LimitStage struct{ N int }

func (MatchStage) stage()  {}
func (UnwindStage) stage() {}
func (GroupStage) stage()  {}
func (SortStage) stage()   {}
func (LimitStage) stage()  {}

// Pipeline is an ordered list of stages, independent of any query engine.
type Pipeline []Stage

// Row is one aggregation output row keyed by output field name.
type Row map[string]any

// Plan is a store specific query-plan diagnostic.
type Plan map[string]any

// tenantMatch is the base of every query. There is no code path that
// builds a Match without it.
func tenantMatch(tenantID string) Match {
	return Match{All: []Cond{{Field: FieldTenantID, Op: OpEq, Value: tenantID}}}
}

func filterMatch(tenantID, userID string, status Status) Match {
	m := tenantMatch(tenantID)
	if userID != "" {
		m = m.And(Cond{Field: FieldUserID, Op: OpEq, Value: userID})
	}
	if status != "" {
		m = m.And(Cond{Field: FieldStatus, Op: OpEq, Value: status})
	}
	return m
}

func rangeMatch(tenantID string, from, to time.Time, status Status) Match {
	m := tenantMatch(tenantID).And(
		Cond{Field: FieldCreatedAt, Op: OpGte, Value: from.UTC()},
		Cond{Field: FieldCreatedAt, Op: OpLte, Value: to.UTC()},
	)
	if status != "" {
		m = m.And(Cond{Field: FieldStatus, Op: OpEq, Value: status})
	}
	return m
}

// DailyStatsPipeline groups the tenant's orders inside [from, to] by UTC
// day, summing total into revenue and counting orders.
func DailyStatsPipeline(tenantID string, p RangeParams) Pipeline {
	return Pipeline{
		MatchStage{Match: rangeMatch(tenantID, p.From, p.To, p.Status)},
		GroupStage{
			KeyAs: "day",
			Key:   DayTrunc{Field: FieldCreatedAt},
			Sums: []Sum{
				{As: "revenue", Of: FieldRef{Field: FieldTotal}},
				{As: "count", Of: Const{Value: 1}},
			},
		},
		SortStage{Keys: []SortKey{{Field: "day"}}},
	}
}

// TopItemsPipeline expands order lines and ranks SKUs by revenue. Ties on
// revenue are ordered by sku so results are reproducible.
func TopItemsPipeline(tenantID string, p TopItemsParams) Pipeline {
	return Pipeline{
		MatchStage{Match: rangeMatch(tenantID, p.From, p.To, p.Status)},
		UnwindStage{Path: FieldItems},
		GroupStage{
			KeyAs: "sku",
			Key:   FieldRef{Field: FieldItemSKU},
			Sums: []Sum{
				{As: "qty", Of: FieldRef{Field: FieldItemQty}},
				{As: "revenue", Of: Multiply{Left: FieldRef{Field: FieldItemPrice}, Right: FieldRef{Field: FieldItemQty}}},
				{As: "lines", Of: Const{Value: 1}},
			},
		},
		SortStage{Keys: []SortKey{{Field: "revenue", Desc: true}, {Field: "sku"}}},
		LimitStage{N: p.Limit},
	}
}
