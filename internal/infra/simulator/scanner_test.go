package simulator

import (
	"context"
	"errors"
	"testing"

	"smart_basket/internal/domain"
	"smart_basket/internal/event"
	"smart_basket/internal/infra"

	"github.com/shopspring/decimal"
)

func testCatalog() []infra.CatalogItem {
	return []infra.CatalogItem{
		{Name: "Milk", Price: decimal.RequireFromString("2.50")},
		{Name: "Bread", Price: decimal.NewFromInt(40)},
		{Name: "Eggs", Price: decimal.NewFromInt(6)},
	}
}

func TestScanner_Lookup(t *testing.T) {
	s := NewScanner(testCatalog(), nil)

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"1", "Milk", false},
		{"3", "Eggs", false},
		{"bread", "Bread", false},
		{" MILK ", "Milk", false},
		{"0", "", true},
		{"4", "", true},
		{"Cheese", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			item, err := s.Lookup(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrUnknownProduct) {
					t.Errorf("Expected ErrUnknownProduct, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			if item.Name != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.ref, item.Name, tt.want)
			}
		})
	}
}

func TestScanner_ScanSubmitsEvent(t *testing.T) {
	var got []event.Event
	s := NewScanner(testCatalog(), func(ctx context.Context, ev event.Event) error {
		got = append(got, ev)
		return nil
	})

	if _, err := s.Scan(context.Background(), "2"); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(got))
	}
	ev, ok := got[0].(*event.ScanEvent)
	if !ok {
		t.Fatalf("Expected ScanEvent, got %T", got[0])
	}
	if ev.Name != "Bread" || !ev.Price.Equal(decimal.NewFromInt(40)) || ev.Source != event.SourceSimulator {
		t.Errorf("Unexpected event %+v", ev)
	}
}

func TestScanner_SubmitFailure(t *testing.T) {
	s := NewScanner(testCatalog(), func(ctx context.Context, ev event.Event) error {
		return context.Canceled
	})

	if _, err := s.Scan(context.Background(), "Milk"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestScanner_CatalogIsCopy(t *testing.T) {
	s := NewScanner(testCatalog(), nil)
	c := s.Catalog()
	c[0].Name = "Changed"

	if s.Catalog()[0].Name != "Milk" {
		t.Error("Catalog() must return a copy")
	}
}
