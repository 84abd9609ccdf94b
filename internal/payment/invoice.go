package payment

import (
	"fmt"
	"math/rand"
)

// NewInvoiceID returns a display invoice number in the range INV-1000..INV-9999.
// It is not unique; the receipt transaction id is.
func NewInvoiceID() string {
	return fmt.Sprintf("INV-%d", 1000+rand.Intn(9000))
}
