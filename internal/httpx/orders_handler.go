package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/tenant-orders/internal/kafka"
	"github.com/ariefcatur/tenant-orders/internal/orders"
)

const maxBodyBytes = 1 << 20

// StatsCache keeps computed statistics per tenant. Invalidate drops every
// entry of the tenant.
type StatsCache interface {
	Get(ctx context.Context, tenantID, kind, params string, out any) (ver int64, ok bool, err error)
	Set(ctx context.Context, tenantID string, ver int64, kind, params string, v any) error
	Invalidate(ctx context.Context, tenantID string) error
}

// EventPublisher queues one message; false means it was dropped.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// OrdersHandler serves the /orders routes. Cache and Events are optional.
type OrdersHandler struct {
	Orders  *orders.Service
	Cache   StatsCache
	Events  EventPublisher
	Service string
	Timeout time.Duration
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(RequireTenant)
		r.Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Get("/cursor", h.listOrdersCursor)
		r.Get("/stats/daily", h.dailyStats)
		r.Get("/stats/top-items", h.topItems)
		r.Get("/debug/explain/list", h.explainList)
	})
}

func (h *OrdersHandler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	d := h.Timeout
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(r.Context(), d)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	in, err := decodeCreate(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := orders.ValidateCreate(in); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := h.ctx(r)
	defer cancel()

	tenantID := TenantFrom(r.Context())
	o, err := h.Orders.Create(ctx, in, tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ordersCreated.Inc()

	// Stats tenant ini sudah basi; projector juga akan bump versi saat event tiba.
	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx, tenantID); err != nil {
			log.Printf("invalidate stats tenant=%s: %v", tenantID, err)
		}
	}
	h.publishCreated(r, o)

	writeJSON(w, http.StatusCreated, o)
}

// publishCreated sends the OrderCreated envelope. Failure never fails the
// request: the order is already stored.
func (h *OrdersHandler) publishCreated(r *http.Request, o *orders.Order) {
	if h.Events == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       middleware.GetReqID(r.Context()),
		CorrelationID: o.ID,
		Payload:       kafkax.MustMarshal(orders.NewOrderCreatedPayload(o)),
	}
	if !h.Events.Publish(orders.PartitionKey(o.TenantID), kafkax.MustMarshal(ev), kafkax.EventHeaders(orders.EventOrderCreated, 1)...) {
		eventsDropped.Inc()
	}
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	p, err := parseListParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	out, err := h.Orders.List(ctx, p, TenantFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) listOrdersCursor(w http.ResponseWriter, r *http.Request) {
	p, err := parseCursorParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	page, err := h.Orders.ListCursor(ctx, p, TenantFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrdersHandler) dailyStats(w http.ResponseWriter, r *http.Request) {
	p, err := parseRangeParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	tenantID := TenantFrom(r.Context())
	key := rangeKey(p)
	var out []orders.DailyStat
	ver, hit := h.cached(ctx, tenantID, "daily", key, &out)
	if hit {
		writeJSON(w, http.StatusOK, out)
		return
	}
	out, err = h.Orders.DailyStats(ctx, p, tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.store(ctx, tenantID, ver, "daily", key, out)
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) topItems(w http.ResponseWriter, r *http.Request) {
	p, err := parseTopItemsParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	tenantID := TenantFrom(r.Context())
	limit := p.Limit
	if limit == 0 {
		limit = orders.DefaultTopItemsLimit
	}
	key := rangeKey(p.RangeParams) + "|" + strconv.Itoa(limit)
	var out []orders.TopItem
	ver, hit := h.cached(ctx, tenantID, "top-items", key, &out)
	if hit {
		writeJSON(w, http.StatusOK, out)
		return
	}
	out, err = h.Orders.TopItems(ctx, p, tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.store(ctx, tenantID, ver, "top-items", key, out)
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) explainList(w http.ResponseWriter, r *http.Request) {
	p, err := parseListParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	plan, err := h.Orders.ExplainList(ctx, p, TenantFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func rangeKey(p orders.RangeParams) string {
	return p.From.Format(time.RFC3339Nano) + "|" + p.To.Format(time.RFC3339Nano) + "|" + string(p.Status)
}

// cached reads from the stats cache. Cache errors count as a miss and
// return ver -1, which store skips.
func (h *OrdersHandler) cached(ctx context.Context, tenantID, kind, key string, out any) (int64, bool) {
	if h.Cache == nil {
		return -1, false
	}
	ver, ok, err := h.Cache.Get(ctx, tenantID, kind, key, out)
	if err != nil {
		log.Printf("stats cache get %s tenant=%s: %v", kind, tenantID, err)
		return -1, false
	}
	return ver, ok
}

// store writes under the version seen by cached, so a result computed
// across an invalidation is never served as current.
func (h *OrdersHandler) store(ctx context.Context, tenantID string, ver int64, kind, key string, v any) {
	if h.Cache == nil || ver < 0 {
		return
	}
	if err := h.Cache.Set(ctx, tenantID, ver, kind, key, v); err != nil {
		log.Printf("stats cache set %s tenant=%s: %v", kind, tenantID, err)
	}
}

// decodeCreate reads the create body strictly: unknown properties and
// wrongly typed values are field errors.
func decodeCreate(w http.ResponseWriter, r *http.Request) (orders.CreateInput, error) {
	var in orders.CreateInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(&in)
	if err == nil {
		if dec.More() {
			return in, orders.ValidationErrors{{Field: "body", Message: "must contain a single JSON object"}}
		}
		return in, nil
	}

	var (
		typeErr *json.UnmarshalTypeError
		maxErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return in, orders.ValidationErrors{{Field: field, Message: "must be " + kindName(typeErr.Type)}}
	case errors.As(err, &maxErr):
		return in, orders.ValidationErrors{{Field: "body", Message: fmt.Sprintf("must not exceed %d bytes", maxBodyBytes)}}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name, uerr := strconv.Unquote(strings.TrimPrefix(err.Error(), "json: unknown field "))
		if uerr != nil {
			name = "body"
		}
		return in, orders.ValidationErrors{{Field: name, Message: "property " + name + " should not exist"}}
	case errors.Is(err, io.EOF):
		return in, orders.ValidationErrors{{Field: "body", Message: "should not be empty"}}
	}
	return in, orders.ValidationErrors{{Field: "body", Message: "must be a valid JSON object"}}
}

func kindName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Int, reflect.Int32, reflect.Int64:
		return "an integer number"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice:
		return "an array"
	case reflect.Struct:
		return "an object"
	case reflect.Ptr:
		return kindName(t.Elem())
	}
	return "a valid " + t.String()
}
