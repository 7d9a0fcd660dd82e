package mongox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ariefcatur/tenant-orders/internal/orders"
)

const CollectionOrders = "orders"

// orderDoc is the stored shape; it differs from orders.Order only in the
// ObjectID typed _id.
type orderDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	TenantID  string             `bson:"tenantId"`
	UserID    string             `bson:"userId"`
	Status    string             `bson:"status"`
	Items     []orders.OrderItem `bson:"items"`
	Total     float64            `bson:"total"`
	OrderRef  string             `bson:"orderRef,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d orderDoc) order() orders.Order {
	return orders.Order{
		ID:        d.ID.Hex(),
		TenantID:  d.TenantID,
		UserID:    d.UserID,
		Status:    orders.Status(d.Status),
		Items:     d.Items,
		Total:     d.Total,
		OrderRef:  d.OrderRef,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type Store struct {
	Collection *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{Collection: db.Collection(CollectionOrders)}
}

// EnsureIndexes creates the filter+sort indexes and the per-tenant unique
// orderRef index. Documents without orderRef are outside the unique index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "userId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{
			Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "orderRef", Value: 1}},
			Options: options.Index().
				SetName("tenant_order_ref_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"orderRef": bson.M{"$exists": true}}),
		},
	})
	return err
}

func (s *Store) Insert(ctx context.Context, o *orders.Order) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	d := orderDoc{
		ID:        primitive.NewObjectID(),
		TenantID:  o.TenantID,
		UserID:    o.UserID,
		Status:    string(o.Status),
		Items:     o.Items,
		Total:     o.Total,
		OrderRef:  o.OrderRef,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.Collection.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &orders.ConflictError{Key: map[string]any{"tenantId": o.TenantID, "orderRef": o.OrderRef}}
		}
		return err
	}
	o.ID = d.ID.Hex()
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

func (s *Store) Find(ctx context.Context, q orders.Query) ([]orders.Order, error) {
	filter, err := matchDoc(q.Match)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(sortDoc(q.Sort))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]orders.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.order())
	}
	return out, nil
}

func (s *Store) Aggregate(ctx context.Context, p orders.Pipeline) ([]orders.Row, error) {
	pipeline, err := pipelineDocs(p)
	if err != nil {
		return nil, err
	}
	cursor, err := s.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}
	out := make([]orders.Row, 0, len(raw))
	for _, m := range raw {
		r := make(orders.Row, len(m))
		for k, v := range m {
			if dt, ok := v.(primitive.DateTime); ok {
				v = dt.Time().UTC()
			}
			r[k] = v
		}
		out = append(out, r)
	}
	return out, nil
}

// Explain runs the find through the explain command with executionStats
// verbosity and returns the server's document as is.
func (s *Store) Explain(ctx context.Context, q orders.Query) (orders.Plan, error) {
	filter, err := matchDoc(q.Match)
	if err != nil {
		return nil, err
	}
	find := bson.D{
		{Key: "find", Value: s.Collection.Name()},
		{Key: "filter", Value: filter},
		{Key: "sort", Value: sortDoc(q.Sort)},
	}
	if q.Limit > 0 {
		find = append(find, bson.E{Key: "limit", Value: int64(q.Limit)})
	}
	cmd := bson.D{{Key: "explain", Value: find}, {Key: "verbosity", Value: "executionStats"}}

	var res bson.M
	if err := s.Collection.Database().RunCommand(ctx, cmd).Decode(&res); err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}
	return orders.Plan(res), nil
}
