package simulator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"smart_basket/internal/domain"
	"smart_basket/internal/event"
	"smart_basket/internal/infra"
)

// Scanner stands in for the basket's barcode reader: each Scan emits one
// scan event for a product from the configured catalog.
type Scanner struct {
	catalog []infra.CatalogItem
	byName  map[string]infra.CatalogItem
	submit  func(ctx context.Context, ev event.Event) error
}

// NewScanner creates a scanner that hands events to submit.
func NewScanner(catalog []infra.CatalogItem, submit func(ctx context.Context, ev event.Event) error) *Scanner {
	byName := make(map[string]infra.CatalogItem, len(catalog))
	for _, item := range catalog {
		byName[strings.ToLower(item.Name)] = item
	}
	return &Scanner{
		catalog: append([]infra.CatalogItem(nil), catalog...),
		byName:  byName,
		submit:  submit,
	}
}

// Catalog returns the products in display order.
func (s *Scanner) Catalog() []infra.CatalogItem {
	return append([]infra.CatalogItem(nil), s.catalog...)
}

// Lookup resolves a 1-based catalog number or a case-insensitive product name.
func (s *Scanner) Lookup(ref string) (infra.CatalogItem, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(s.catalog) {
			return s.catalog[n-1], nil
		}
	} else if item, ok := s.byName[strings.ToLower(ref)]; ok {
		return item, nil
	}
	return infra.CatalogItem{}, &domain.ValidationError{
		Field: "product",
		Err:   fmt.Errorf("%w: %q", domain.ErrUnknownProduct, ref),
	}
}

// Scan emits one scan of the referenced product.
func (s *Scanner) Scan(ctx context.Context, ref string) (infra.CatalogItem, error) {
	item, err := s.Lookup(ref)
	if err != nil {
		return infra.CatalogItem{}, err
	}
	ev := event.NewScanEvent(item.Name, item.Price, event.SourceSimulator)
	if err := s.submit(ctx, ev); err != nil {
		event.ReleaseScanEvent(ev)
		return infra.CatalogItem{}, fmt.Errorf("submit scan: %w", err)
	}
	return item, nil
}
