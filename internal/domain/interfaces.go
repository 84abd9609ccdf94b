package domain

import (
	"context"
	"time"
)

// FeedClient defines the interface for the live scan feed connector
type FeedClient interface {
	Connect(ctx context.Context, sessionID string) error
	Disconnect()
	IsConnected() bool
	State() ConnectionState
}

// ReconnectPolicy decides how long to wait before the next connection attempt.
// attempt counts consecutive failures, starting at 0.
type ReconnectPolicy interface {
	Delay(attempt int) time.Duration
	// MaxRetries bounds consecutive attempts; 0 means unbounded.
	MaxRetries() int
}

// ReceiptRepository archives completed receipts.
type ReceiptRepository interface {
	SaveReceipt(rec *ReceiptRecord) error
	GetReceipt(transactionID string) (*ReceiptRecord, error)
	ListReceipts(sessionID string) ([]ReceiptRecord, error)
}
