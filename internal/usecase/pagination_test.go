package usecase

import (
	"errors"
	"testing"

	"github.com/orfin/ledgerapi/internal/domain"
)

type row struct{ id string }

var rowID = func(r row) string { return r.id }

func TestNewPageFirstWindow(t *testing.T) {
	// Repository fetched limit+1 rows out of 3.
	rows := []row{{"01A"}, {"01B"}}
	q := ListQuery{Limit: 1, Order: OrderAsc}

	p := NewPage(rows, q, rowID)

	if len(p.Data) != 1 || p.Data[0].id != "01A" {
		t.Fatalf("unexpected data %+v", p.Data)
	}
	if !p.HasNext {
		t.Error("expected HasNext")
	}
	if p.NextCursor != "01A" {
		t.Errorf("next cursor = %q, want last included row", p.NextCursor)
	}
	if p.HasPrev || p.PrevCursor != "" {
		t.Error("first page must not report a previous page")
	}
}

func TestNewPageMiddleWindow(t *testing.T) {
	rows := []row{{"01B"}, {"01C"}}
	q := ListQuery{Limit: 1, Cursor: "01A", Order: OrderAsc}

	p := NewPage(rows, q, rowID)

	if len(p.Data) != 1 || p.Data[0].id != "01B" {
		t.Fatalf("unexpected data %+v", p.Data)
	}
	if !p.HasNext || p.NextCursor != "01B" {
		t.Errorf("expected onward cursor 01B, got %q", p.NextCursor)
	}
	if !p.HasPrev || p.PrevCursor != "01B" {
		t.Errorf("expected back cursor 01B, got %q", p.PrevCursor)
	}
}

func TestNewPageLastWindow(t *testing.T) {
	rows := []row{{"01C"}}
	q := ListQuery{Limit: 1, Cursor: "01B", Order: OrderAsc}

	p := NewPage(rows, q, rowID)

	if p.HasNext || p.NextCursor != "" {
		t.Error("exhausted listing must not report a next page")
	}
	if !p.HasPrev {
		t.Error("expected HasPrev on a cursored page")
	}
}

func TestNewPageEmpty(t *testing.T) {
	p := NewPage(nil, ListQuery{Limit: 10, Order: OrderAsc}, rowID)

	if len(p.Data) != 0 || p.HasNext || p.HasPrev {
		t.Errorf("unexpected page %+v", p)
	}
}

func TestListQueryNormalize(t *testing.T) {
	q, err := ListQuery{}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit != DefaultPageSize || q.Order != OrderAsc {
		t.Errorf("unexpected defaults %+v", q)
	}

	q, err = ListQuery{Limit: 10_000, Order: OrderDesc}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit != MaxPageSize {
		t.Errorf("limit = %d, want clamp to %d", q.Limit, MaxPageSize)
	}

	if _, err := (ListQuery{Order: "sideways"}).Normalize(); !errors.Is(err, domain.ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor for bad order, got %v", err)
	}

	if _, err := (ListQuery{Cursor: "not-a-ulid"}).Normalize(); !errors.Is(err, domain.ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}

	if _, err := (ListQuery{Cursor: "01J8ZQ4N9V2M5X7P3K6R1T8W0Y"}).Normalize(); err != nil {
		t.Errorf("expected valid ULID cursor to pass, got %v", err)
	}
}
