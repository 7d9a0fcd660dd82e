package orders

import (
	"encoding/hex"
	"time"
)

const (
	DefaultListLimit     = 20
	MaxListLimit         = 100
	DefaultTopItemsLimit = 10
	MaxTopItemsLimit     = 50

	// CursorTimeLayout is the wire format of cursorCreatedAt. Stores keep
	// millisecond precision, so the cursor round-trips exactly.
	CursorTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// ListParams are the optional filters shared by list, listCursor and
// explainList. Zero values mean "no constraint" / default limit.
type ListParams struct {
	UserID string
	Status Status
	Limit  int
}

// CursorParams adds the keyset boundary. After is nil for the first page.
type CursorParams struct {
	ListParams
	After *Cursor
}

type RangeParams struct {
	From   time.Time
	To     time.Time
	Status Status
}

type TopItemsParams struct {
	RangeParams
	Limit int
}

// Cursor is the position of the last row of a page in
// (createdAt desc, _id desc) order.
type Cursor struct {
	CreatedAt string `json:"cursorCreatedAt"`
	ID        string `json:"cursorId"`
}

// CursorPage is the listCursor result. NextCursor is null on the last page.
type CursorPage struct {
	Page       []Order `json:"page"`
	NextCursor *Cursor `json:"nextCursor"`
}

func cursorFor(o Order) *Cursor {
	return &Cursor{
		CreatedAt: o.CreatedAt.UTC().Format(CursorTimeLayout),
		ID:        o.ID,
	}
}

// ValidID reports whether s looks like a store identifier: 12 bytes hex
// encoded, the ObjectID format every store adapter produces.
func ValidID(s string) bool {
	if len(s) != 24 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
