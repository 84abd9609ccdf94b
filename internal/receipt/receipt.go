package receipt

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"smart_basket/internal/domain"
	"smart_basket/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Header is the static store branding printed on every receipt.
type Header struct {
	StoreName string
	Tagline   string
	Currency  string
}

// Row is one printed receipt line.
type Row struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Receipt is the record of a completed checkout.
type Receipt struct {
	TransactionID string
	InvoiceID     string
	SessionID     string
	IssuedAt      time.Time
	Header        Header
	Rows          []Row
	Totals        domain.Totals
	Amount        int64 // floor(Totals.Total), the amount sent to the payment app
}

// Builder turns cart snapshots into receipts.
type Builder struct {
	header Header
	now    func() time.Time
	newID  func() string
}

// NewBuilder creates a Builder stamping receipts with the wall clock and a random uuid.
func NewBuilder(header Header) *Builder {
	return &Builder{
		header: header,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Build creates a receipt for snap. An empty cart has nothing to bill.
func (b *Builder) Build(snap domain.CartSnapshot, invoiceID, sessionID string) (*Receipt, error) {
	if snap.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	rows := make([]Row, 0, len(snap.Items))
	for _, item := range snap.Items {
		rows = append(rows, Row{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}

	return &Receipt{
		TransactionID: b.newID(),
		InvoiceID:     invoiceID,
		SessionID:     sessionID,
		IssuedAt:      b.now(),
		Header:        b.header,
		Rows:          rows,
		Totals:        snap.Totals,
		Amount:        service.FloorAmount(snap.Totals.Total),
	}, nil
}

// qrPayload is the JSON body encoded in the receipt QR code.
type qrPayload struct {
	ID    string `json:"id"`
	Amt   int64  `json:"amt"`
	Date  string `json:"date"`
	Items int    `json:"items"`
}

// QRPayload returns the receipt QR text. Items counts distinct lines, not units.
func (r *Receipt) QRPayload() string {
	data, _ := json.Marshal(qrPayload{
		ID:    r.TransactionID,
		Amt:   r.Amount,
		Date:  r.IssuedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		Items: len(r.Rows),
	})
	return string(data)
}

// FileName is the name a saved bill gets.
func (r *Receipt) FileName() string {
	return fmt.Sprintf("SmartBasket_Bill_%s_%d.txt", r.InvoiceID, r.IssuedAt.UnixMilli())
}

// Render writes the printable bill.
func (r *Receipt) Render(w io.Writer) error {
	cur := r.Header.Currency

	var b strings.Builder
	b.WriteString(r.Header.StoreName + "\n")
	if r.Header.Tagline != "" {
		b.WriteString(r.Header.Tagline + "\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Date: %s\n", r.IssuedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Invoice ID: %s\n", r.InvoiceID)
	fmt.Fprintf(&b, "Transaction: %s\n\n", r.TransactionID)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Item Name\tPrice (%s)\tQuantity\tTotal (%s)\t\n", cur, cur)
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t\n", row.Name, row.UnitPrice.StringFixed(2), row.Quantity, row.LineTotal.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(&b, "\nGrand Total: %s %s\n\n", decimal.NewFromInt(r.Amount).StringFixed(2), cur)
	b.WriteString("Thank you for shopping with SmartBasket!\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Save renders the bill into dir and returns the written path.
func (r *Receipt) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}

	path := filepath.Join(dir, r.FileName())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create receipt file: %w", err)
	}
	defer f.Close()

	if err := r.Render(f); err != nil {
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}
	return path, nil
}

// Record converts the receipt to its archived form.
func (r *Receipt) Record() (*domain.ReceiptRecord, error) {
	items, err := json.Marshal(r.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode receipt items: %w", err)
	}

	return &domain.ReceiptRecord{
		TransactionID: r.TransactionID,
		InvoiceID:     r.InvoiceID,
		SessionID:     r.SessionID,
		Amount:        r.Amount,
		Currency:      r.Header.Currency,
		ItemCount:     len(r.Rows),
		Items:         string(items),
		IssuedAt:      r.IssuedAt,
	}, nil
}
