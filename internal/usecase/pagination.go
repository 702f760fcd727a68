package usecase

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/orfin/ledgerapi/internal/domain"
)

// Order is the scan direction of a list request.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ListQuery describes one keyset-paginated list request. Cursor, when set,
// is the row ID the previous page stopped at; repositories fetch Limit+1
// rows strictly after it (asc) or before it (desc).
type ListQuery struct {
	Limit  int
	Cursor string
	Order  Order
	// Optional filters.
	LedgerID  string
	AccountID string
}

// Normalize clamps the limit, defaults the order and validates the cursor.
func (q ListQuery) Normalize() (ListQuery, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}

	switch q.Order {
	case "":
		q.Order = OrderAsc
	case OrderAsc, OrderDesc:
	default:
		return q, fmt.Errorf("%w: order %q", domain.ErrInvalidCursor, q.Order)
	}

	if q.Cursor != "" {
		if _, err := ulid.ParseStrict(q.Cursor); err != nil {
			return q, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
		}
	}

	return q, nil
}

// Page is one window of a keyset-paginated listing.
type Page[T any] struct {
	Data       []T
	NextCursor string
	PrevCursor string
	HasNext    bool
	HasPrev    bool
}

// NewPage trims a Limit+1 row fetch into a page. The extra row, when
// present, only signals that another page exists in the scan direction; it
// is dropped and the next cursor points at the last included row.
func NewPage[T any](rows []T, q ListQuery, id func(T) string) Page[T] {
	hasMore := len(rows) > q.Limit
	if hasMore {
		rows = rows[:q.Limit]
	}

	p := Page[T]{Data: rows, HasNext: hasMore}
	if len(rows) == 0 {
		return p
	}

	if hasMore {
		p.NextCursor = id(rows[len(rows)-1])
	}

	if q.Cursor != "" {
		p.HasPrev = true
		p.PrevCursor = id(rows[0])
	}

	return p
}
