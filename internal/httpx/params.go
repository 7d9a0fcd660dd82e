package httpx

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/tenant-orders/internal/orders"
)

// query reads URL parameters for one route. Parameters outside the
// route's allowed set are reported, as are malformed values; every
// problem is collected before the request is rejected.
type query struct {
	v    url.Values
	errs orders.ValidationErrors
}

func newQuery(r *http.Request, allowed ...string) *query {
	q := &query{v: r.URL.Query()}
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	var unknown []string
	for k := range q.v {
		if !ok[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		q.errs.Add(k, "property "+k+" should not exist")
	}
	return q
}

func (q *query) str(name string) string {
	if !q.v.Has(name) {
		return ""
	}
	s := q.v.Get(name)
	if s == "" {
		q.errs.Add(name, "should not be empty")
	}
	return s
}

func (q *query) status(name string) orders.Status {
	if !q.v.Has(name) {
		return ""
	}
	st, ok := orders.ParseStatus(q.v.Get(name))
	if !ok {
		q.errs.Add(name, "must be one of DRAFT, PAID, CANCELLED")
		return ""
	}
	return st
}

func (q *query) limit(name string, max int) int {
	if !q.v.Has(name) {
		return 0
	}
	n, err := strconv.Atoi(q.v.Get(name))
	switch {
	case err != nil:
		q.errs.Add(name, "must be an integer number")
	case n < 1:
		q.errs.Add(name, "must not be less than 1")
	case n > max:
		q.errs.Add(name, fmt.Sprintf("must not be greater than %d", max))
	default:
		return n
	}
	return 0
}

func (q *query) timestamp(name string, required bool) time.Time {
	if !q.v.Has(name) || q.v.Get(name) == "" {
		if required {
			q.errs.Add(name, "should not be empty")
		}
		return time.Time{}
	}
	t, err := orders.ParseTimestamp(q.v.Get(name))
	if err != nil {
		q.errs.Add(name, "must be a valid ISO 8601 date string")
	}
	return t
}

func (q *query) err() error { return q.errs.Err() }

func listParams(q *query) orders.ListParams {
	return orders.ListParams{
		UserID: q.str("userId"),
		Status: q.status("status"),
		Limit:  q.limit("limit", orders.MaxListLimit),
	}
}

func parseListParams(r *http.Request) (orders.ListParams, error) {
	q := newQuery(r, "userId", "status", "limit")
	p := listParams(q)
	return p, q.err()
}

func parseCursorParams(r *http.Request) (orders.CursorParams, error) {
	q := newQuery(r, "userId", "status", "limit", "cursorCreatedAt", "cursorId")
	p := orders.CursorParams{ListParams: listParams(q)}

	hasAt, hasID := q.v.Has("cursorCreatedAt"), q.v.Has("cursorId")
	switch {
	case hasAt && hasID:
		q.timestamp("cursorCreatedAt", true)
		// ids compare as lowercase hex in every store
		id := strings.ToLower(q.v.Get("cursorId"))
		if !orders.ValidID(id) {
			q.errs.Add("cursorId", "must be a mongodb id")
		}
		p.After = &orders.Cursor{CreatedAt: q.v.Get("cursorCreatedAt"), ID: id}
	case hasAt:
		q.errs.Add("cursorId", "must be provided together with cursorCreatedAt")
	case hasID:
		q.errs.Add("cursorCreatedAt", "must be provided together with cursorId")
	}
	return p, q.err()
}

func rangeParams(q *query) orders.RangeParams {
	return orders.RangeParams{
		From:   q.timestamp("from", true),
		To:     q.timestamp("to", true),
		Status: q.status("status"),
	}
}

func parseRangeParams(r *http.Request) (orders.RangeParams, error) {
	q := newQuery(r, "from", "to", "status")
	p := rangeParams(q)
	return p, q.err()
}

func parseTopItemsParams(r *http.Request) (orders.TopItemsParams, error) {
	q := newQuery(r, "from", "to", "status", "limit")
	p := orders.TopItemsParams{RangeParams: rangeParams(q), Limit: q.limit("limit", orders.MaxTopItemsLimit)}
	return p, q.err()
}
