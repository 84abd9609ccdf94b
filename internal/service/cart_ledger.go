package service

import (
	"sync"

	"smart_basket/internal/domain"

	"github.com/shopspring/decimal"
)

// CartLedger owns the canonical list of scanned items for one session.
// Items keep insertion order; ids are monotonic until Reset.
type CartLedger struct {
	mu     sync.RWMutex
	items  []*domain.LineItem
	byName map[string]*domain.LineItem
	nextID int64
}

// NewCartLedger creates an empty ledger whose first item gets id 1.
func NewCartLedger() *CartLedger {
	return &CartLedger{
		byName: make(map[string]*domain.LineItem),
		nextID: 1,
	}
}

// RecordScan adds one unit of name to the cart.
// A repeat scan only increments the quantity; the first price seen for a
// name is kept. Prices are not validated.
func (l *CartLedger) RecordScan(name string, price decimal.Decimal) domain.LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	if item, ok := l.byName[name]; ok {
		item.Quantity++
		return *item
	}

	item := &domain.LineItem{
		ID:        l.nextID,
		Name:      name,
		UnitPrice: price,
		Quantity:  1,
	}
	l.nextID++
	l.items = append(l.items, item)
	l.byName[name] = item
	return *item
}

// ComputeTotals returns subtotal, tax = subtotal*taxRate and total.
func (l *CartLedger) ComputeTotals(taxRate decimal.Decimal) domain.Totals {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.computeTotals(taxRate)
}

// computeTotals must be called with lock held
func (l *CartLedger) computeTotals(taxRate decimal.Decimal) domain.Totals {
	subtotal := decimal.Zero
	for _, item := range l.items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	tax := subtotal.Mul(taxRate)
	return domain.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// CheckoutAmount returns floor(total), the integer charged and embedded in
// the payment deep link. It never exceeds the displayed total.
func (l *CartLedger) CheckoutAmount(taxRate decimal.Decimal) int64 {
	return FloorAmount(l.ComputeTotals(taxRate).Total)
}

// FloorAmount truncates a total toward negative infinity.
func FloorAmount(total decimal.Decimal) int64 {
	return total.Floor().IntPart()
}

// Reset clears every item and restarts ids at 1.
func (l *CartLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = nil
	l.byName = make(map[string]*domain.LineItem)
	l.nextID = 1
}

// Items returns a copy of the line items in insertion order.
func (l *CartLedger) Items() []domain.LineItem {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.copyItems()
}

func (l *CartLedger) copyItems() []domain.LineItem {
	result := make([]domain.LineItem, len(l.items))
	for i, item := range l.items {
		result[i] = *item
	}
	return result
}

// Len returns the number of distinct items.
func (l *CartLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.items)
}

// Snapshot returns items and totals taken under one lock.
func (l *CartLedger) Snapshot(taxRate decimal.Decimal) domain.CartSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return domain.CartSnapshot{
		Items:   l.copyItems(),
		Totals:  l.computeTotals(taxRate),
		TaxRate: taxRate,
	}
}
