package feed

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"smart_basket/internal/domain"
	"smart_basket/internal/event"
	"smart_basket/internal/infra"

	"github.com/shopspring/decimal"
)

// scanMessage is one inbound scan: {"item_name": "Milk", "price": 2.5}
type scanMessage struct {
	ItemName *string          `json:"item_name"`
	Price    *decimal.Decimal `json:"price"`
}

var (
	errMissingName  = errors.New("item_name is missing or empty")
	errMissingPrice = errors.New("price is missing")
)

// decodeScan turns a feed payload into a scan event.
// Prices are not range-checked; negative values pass through.
func decodeScan(payload []byte) (*event.ScanEvent, error) {
	var msg scanMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, &domain.DecodeError{Payload: string(payload), Err: err}
	}
	if msg.ItemName == nil || *msg.ItemName == "" {
		return nil, &domain.DecodeError{Payload: string(payload), Err: errMissingName}
	}
	if msg.Price == nil {
		return nil, &domain.DecodeError{Payload: string(payload), Err: errMissingPrice}
	}
	return event.NewScanEvent(*msg.ItemName, *msg.Price, event.SourceFeed), nil
}

// SessionFromURL returns the "id" query parameter of the terminal's launch URL,
// or the placeholder session when it is absent or the URL does not parse.
func SessionFromURL(launchURL string) string {
	u, err := url.Parse(launchURL)
	if err != nil {
		return infra.DefaultSessionID
	}
	if id := u.Query().Get("id"); id != "" {
		return id
	}
	return infra.DefaultSessionID
}

// sessionURL scopes the feed endpoint to one cart: <base>/<sessionID>
func sessionURL(base, sessionID string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(sessionID)
}
