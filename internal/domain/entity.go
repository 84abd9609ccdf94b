package domain

import (
	"time"
)

// ReceiptRecord is the archived form of a completed checkout.
// Items holds the JSON-encoded line items at the time of checkout.
type ReceiptRecord struct {
	TransactionID string    `gorm:"primaryKey" json:"transaction_id"`
	InvoiceID     string    `gorm:"index" json:"invoice_id"`
	SessionID     string    `gorm:"index" json:"session_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	ItemCount     int       `json:"item_count"`
	Items         string    `json:"items"`
	IssuedAt      time.Time `gorm:"index" json:"issued_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// AppConfig represents terminal-local settings (Key-Value)
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
