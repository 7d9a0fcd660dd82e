package orders

import (
	"fmt"
	"strings"
	"time"
)

// ValidateCreate checks the create body. Every problem is reported, not
// just the first one.
func ValidateCreate(in CreateInput) error {
	var errs ValidationErrors
	if strings.TrimSpace(in.UserID) == "" {
		errs.Add("userId", "should not be empty")
	}
	if !in.Status.Valid() {
		errs.Add("status", "must be one of DRAFT, PAID, CANCELLED")
	}
	if in.Items == nil {
		errs.Add("items", "must be an array")
	}
	for i, it := range in.Items {
		f := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(it.SKU) == "" {
			errs.Add(f+".sku", "should not be empty")
		}
		if it.Price < 0 {
			errs.Add(f+".price", "must not be less than 0")
		}
		if it.Qty < 1 {
			errs.Add(f+".qty", "must not be less than 1")
		}
	}
	if in.OrderRef != nil && strings.TrimSpace(*in.OrderRef) == "" {
		errs.Add("orderRef", "should not be empty")
	}
	return errs.Err()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	// basic format
	"20060102T150405.999999999Z0700",
	"20060102T150405.999999999",
	"20060102",
}

// ParseTimestamp accepts the ISO-8601 forms clients send: RFC 3339 or
// offsets written +hhmm / +hh, local date-time without offset (taken as
// UTC), a bare date, and the compact basic format of each.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp %q", s)
}

func parseCursorTime(s string) (time.Time, error) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, ValidationErrors{{Field: "cursorCreatedAt", Message: "must be a valid ISO 8601 date string"}}
	}
	return t, nil
}
