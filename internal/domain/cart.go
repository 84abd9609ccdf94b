package domain

import "github.com/shopspring/decimal"

// LineItem is one distinct product in the cart.
// Name is the identity key; UnitPrice is the price seen on the first scan.
type LineItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns UnitPrice * Quantity.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Totals is derived from the cart on demand and never stored.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// IsZero reports whether all three amounts are zero.
func (t Totals) IsZero() bool {
	return t.Subtotal.IsZero() && t.Tax.IsZero() && t.Total.IsZero()
}

// CartSnapshot is a read-only copy of the cart for presentation.
type CartSnapshot struct {
	Items   []LineItem      `json:"items"`
	Totals  Totals          `json:"totals"`
	TaxRate decimal.Decimal `json:"tax_rate"`
}

// IsEmpty reports whether the snapshot has no line items.
func (s CartSnapshot) IsEmpty() bool {
	return len(s.Items) == 0
}
