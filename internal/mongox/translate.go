package mongox

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ariefcatur/tenant-orders/internal/orders"
)

var rangeOps = map[orders.Op]string{
	orders.OpLt:  "$lt",
	orders.OpLte: "$lte",
	orders.OpGte: "$gte",
}

// matchDoc renders a Match as a query document. Range conditions on the
// same field are merged into one sub-document ({createdAt: {$gte, $lte}}).
func matchDoc(m orders.Match) (bson.D, error) {
	d, err := condsDoc(m.All)
	if err != nil {
		return nil, err
	}
	if len(m.Any) > 0 {
		or := make(bson.A, 0, len(m.Any))
		for _, g := range m.Any {
			gd, err := condsDoc(g)
			if err != nil {
				return nil, err
			}
			or = append(or, gd)
		}
		d = append(d, bson.E{Key: "$or", Value: or})
	}
	return d, nil
}

func condsDoc(conds []orders.Cond) (bson.D, error) {
	d := bson.D{}
	ranges := map[string]int{}
	for _, c := range conds {
		v, err := value(c.Field, c.Value)
		if err != nil {
			return nil, err
		}
		key := string(c.Field)
		if c.Op == orders.OpEq {
			d = append(d, bson.E{Key: key, Value: v})
			continue
		}
		op, ok := rangeOps[c.Op]
		if !ok {
			return nil, fmt.Errorf("mongox: unsupported operator %q", c.Op)
		}
		if i, ok := ranges[key]; ok {
			d[i].Value = append(d[i].Value.(bson.D), bson.E{Key: op, Value: v})
			continue
		}
		ranges[key] = len(d)
		d = append(d, bson.E{Key: key, Value: bson.D{{Key: op, Value: v}}})
	}
	return d, nil
}

func value(f orders.Field, v any) (any, error) {
	switch x := v.(type) {
	case orders.Status:
		return string(x), nil
	case string:
		if f == orders.FieldID {
			oid, err := primitive.ObjectIDFromHex(x)
			if err != nil {
				return nil, fmt.Errorf("mongox: invalid id %q: %w", x, err)
			}
			return oid, nil
		}
	}
	return v, nil
}

func sortDoc(keys []orders.SortKey) bson.D {
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: k.Field, Value: dir})
	}
	return d
}

func exprValue(e orders.Expr) (any, error) {
	switch e := e.(type) {
	case orders.FieldRef:
		return "$" + string(e.Field), nil
	case orders.Const:
		return e.Value, nil
	case orders.DayTrunc:
		return bson.D{{Key: "$dateTrunc", Value: bson.D{
			{Key: "date", Value: "$" + string(e.Field)},
			{Key: "unit", Value: "day"},
			{Key: "timezone", Value: "UTC"},
		}}}, nil
	case orders.Multiply:
		l, err := exprValue(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := exprValue(e.Right)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$multiply", Value: bson.A{l, r}}}, nil
	}
	return nil, fmt.Errorf("mongox: unsupported expression %T", e)
}

// pipelineDocs renders the stage list as an aggregation pipeline. A group
// stage becomes $group followed by a $project that renames _id to KeyAs.
func pipelineDocs(p orders.Pipeline) (mongo.Pipeline, error) {
	out := mongo.Pipeline{}
	for _, st := range p {
		switch st := st.(type) {
		case orders.MatchStage:
			md, err := matchDoc(st.Match)
			if err != nil {
				return nil, err
			}
			out = append(out, bson.D{{Key: "$match", Value: md}})
		case orders.UnwindStage:
			out = append(out, bson.D{{Key: "$unwind", Value: "$" + string(st.Path)}})
		case orders.GroupStage:
			key, err := exprValue(st.Key)
			if err != nil {
				return nil, err
			}
			g := bson.D{{Key: "_id", Value: key}}
			proj := bson.D{{Key: "_id", Value: 0}, {Key: st.KeyAs, Value: "$_id"}}
			for _, s := range st.Sums {
				v, err := exprValue(s.Of)
				if err != nil {
					return nil, err
				}
				g = append(g, bson.E{Key: s.As, Value: bson.D{{Key: "$sum", Value: v}}})
				proj = append(proj, bson.E{Key: s.As, Value: 1})
			}
			out = append(out,
				bson.D{{Key: "$group", Value: g}},
				bson.D{{Key: "$project", Value: proj}},
			)
		case orders.SortStage:
			out = append(out, bson.D{{Key: "$sort", Value: sortDoc(st.Keys)}})
		case orders.LimitStage:
			out = append(out, bson.D{{Key: "$limit", Value: int64(st.N)}})
		default:
			return nil, fmt.Errorf("mongox: unsupported stage %T", st)
		}
	}
	return out, nil
}
