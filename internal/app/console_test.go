package app

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"smart_basket/internal/domain"
	"smart_basket/internal/event"
	"smart_basket/internal/infra"
	"smart_basket/internal/infra/simulator"
	"smart_basket/internal/receipt"
	"smart_basket/internal/service"

	"github.com/shopspring/decimal"
)

// memArchive is an in-memory domain.ReceiptRepository.
type memArchive struct {
	mu   sync.Mutex
	recs []domain.ReceiptRecord
}

func (a *memArchive) SaveReceipt(rec *domain.ReceiptRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, *rec)
	return nil
}

func (a *memArchive) GetReceipt(id string) (*domain.ReceiptRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.recs {
		if a.recs[i].TransactionID == id {
			return &a.recs[i], nil
		}
	}
	return nil, nil
}

func (a *memArchive) ListReceipts(sessionID string) ([]domain.ReceiptRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.ReceiptRecord(nil), a.recs...), nil
}

// stubFeed records Connect calls.
type stubFeed struct {
	connects []string
}

func (f *stubFeed) Connect(ctx context.Context, sessionID string) error {
	f.connects = append(f.connects, sessionID)
	return nil
}
func (f *stubFeed) Disconnect()                   {}
func (f *stubFeed) IsConnected() bool             { return true }
func (f *stubFeed) State() domain.ConnectionState { return domain.StateConnected }

type consoleFixture struct {
	console *Console
	ledger  *service.CartLedger
	archive *memArchive
	feed    *stubFeed
	metrics *infra.Metrics
	out     *strings.Builder
	dir     string
}

// applyDirect applies events to the ledger synchronously, as the sequencer would.
func applyDirect(ledger *service.CartLedger) func(context.Context, event.Event) error {
	return func(ctx context.Context, ev event.Event) error {
		switch e := ev.(type) {
		case *event.ScanEvent:
			ledger.RecordScan(e.Name, e.Price)
			event.ReleaseScanEvent(e)
		case *event.ResetEvent:
			ledger.Reset()
		}
		return nil
	}
}

func newConsoleFixture(t *testing.T) *consoleFixture {
	t.Helper()

	cfg := &infra.Config{}
	cfg.Cart.TaxRate = decimal.RequireFromString("0.05")
	cfg.Cart.CurrencySymbol = "₹"
	cfg.Payment.PayeeVPA = "shop@okbank"
	cfg.Payment.PayeeName = "Basket Store"
	cfg.Payment.Note = "SmartBasket Payment"
	cfg.Payment.Currency = "INR"
	cfg.Receipt.Dir = t.TempDir()

	ledger := service.NewCartLedger()
	submit := applyDirect(ledger)
	catalog := []infra.CatalogItem{
		{Name: "Milk", Price: decimal.RequireFromString("45.5")},
		{Name: "Bread", Price: decimal.RequireFromString("30")},
	}

	f := &consoleFixture{
		ledger:  ledger,
		archive: &memArchive{},
		feed:    &stubFeed{},
		metrics: &infra.Metrics{},
		out:     &strings.Builder{},
		dir:     cfg.Receipt.Dir,
	}
	f.console = NewConsole(ConsoleDeps{
		Config:    cfg,
		Ledger:    ledger,
		Submit:    submit,
		Feed:      f.feed,
		Scanner:   simulator.NewScanner(catalog, submit),
		Receipts:  receipt.NewBuilder(receipt.Header{StoreName: "SmartBasket Pro", Currency: "INR"}),
		Archive:   f.archive,
		Metrics:   f.metrics,
		SessionID: "ABCD",
		Out:       f.out,
	})
	f.console.newInvoice = func() string { return "INV-4242" }
	return f
}

func (f *consoleFixture) exec(t *testing.T, line string) {
	t.Helper()
	if err := f.console.Execute(context.Background(), line); err != nil {
		t.Fatalf("%q failed: %v", line, err)
	}
}

func TestConsole_ScanAndTotal(t *testing.T) {
	f := newConsoleFixture(t)

	f.exec(t, "scan 1")
	f.exec(t, "scan milk")
	f.exec(t, "scan Bread")

	items := f.ledger.Items()
	if len(items) != 2 || items[0].Quantity != 2 || items[1].Name != "Bread" {
		t.Fatalf("unexpected cart: %+v", items)
	}

	f.out.Reset()
	f.exec(t, "total")
	out := f.out.String()
	for _, want := range []string{"#1 Milk", "x2", "Subtotal: ₹121.00", "Tax (5%): ₹6.05", "Total: ₹127.05"} {
		if !strings.Contains(out, want) {
			t.Errorf("cart output missing %q:\n%s", want, out)
		}
	}
}

func TestConsole_ScanUnknownProduct(t *testing.T) {
	f := newConsoleFixture(t)

	err := f.console.Execute(context.Background(), "scan caviar")
	if !errors.Is(err, domain.ErrUnknownProduct) {
		t.Errorf("Expected ErrUnknownProduct, got %v", err)
	}
	if f.ledger.Len() != 0 {
		t.Error("unknown product must not reach the cart")
	}
}

func TestConsole_CheckoutEmptyCart(t *testing.T) {
	f := newConsoleFixture(t)

	err := f.console.Execute(context.Background(), "checkout")
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Errorf("Expected ErrEmptyCart, got %v", err)
	}
	if f.console.Screen() != ScreenShopping {
		t.Errorf("Screen = %v, want shopping", f.console.Screen())
	}
}

func TestConsole_CheckoutFlow(t *testing.T) {
	f := newConsoleFixture(t)
	f.exec(t, "scan Milk")
	f.exec(t, "scan Milk")
	f.exec(t, "scan Bread")

	// 1. Checkout: floor(127.05) = 127
	f.out.Reset()
	f.exec(t, "checkout")
	if f.console.Screen() != ScreenPayment {
		t.Fatalf("Screen = %v, want payment", f.console.Screen())
	}
	out := f.out.String()
	if !strings.Contains(out, "Invoice INV-4242") {
		t.Errorf("missing invoice id:\n%s", out)
	}
	if !strings.Contains(out, "upi://pay?pa=shop@okbank&pn=Basket%20Store&am=127&tn=SmartBasket%20Payment&cu=INR") {
		t.Errorf("missing QR payload:\n%s", out)
	}

	// 2. Shopping commands are not available while paying
	if err := f.console.Execute(context.Background(), "scan Milk"); err == nil {
		t.Error("expected scan to be rejected on the payment screen")
	}

	// 3. App deep links
	f.out.Reset()
	f.exec(t, "pay gpay")
	if !strings.Contains(f.out.String(), "tez://upi/pay?pa=shop@okbank") {
		t.Errorf("missing gpay link:\n%s", f.out.String())
	}
	if err := f.console.Execute(context.Background(), "pay venmo"); !errors.Is(err, domain.ErrUnknownApp) {
		t.Errorf("Expected ErrUnknownApp, got %v", err)
	}

	// 4. Payment confirmed by the operator
	f.exec(t, "paid")
	if f.console.Screen() != ScreenSuccess {
		t.Fatalf("Screen = %v, want success", f.console.Screen())
	}
	if got := f.metrics.Snapshot().Checkouts; got != 1 {
		t.Errorf("Checkouts = %d, want 1", got)
	}

	recs, _ := f.archive.ListReceipts("ABCD")
	if len(recs) != 1 || recs[0].Amount != 127 || recs[0].InvoiceID != "INV-4242" || recs[0].SessionID != "ABCD" {
		t.Fatalf("unexpected archive: %+v", recs)
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil || len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "SmartBasket_Bill_INV-4242_") {
		t.Errorf("expected one saved bill, got %v (err %v)", entries, err)
	}

	// 5. Receipt
	f.out.Reset()
	f.exec(t, "receipt")
	if !strings.Contains(f.out.String(), "Grand Total: 127.00 INR") {
		t.Errorf("unexpected receipt:\n%s", f.out.String())
	}

	// 6. New session
	f.exec(t, "new")
	if f.console.Screen() != ScreenShopping {
		t.Errorf("Screen = %v, want shopping", f.console.Screen())
	}
	if f.ledger.Len() != 0 {
		t.Error("expected empty cart after new session")
	}
	f.exec(t, "scan Bread")
	if items := f.ledger.Items(); items[0].ID != 1 {
		t.Errorf("expected ids to restart at 1, got %d", items[0].ID)
	}
}

func TestConsole_BackKeepsCart(t *testing.T) {
	f := newConsoleFixture(t)
	f.exec(t, "scan Milk")
	f.exec(t, "checkout")
	f.exec(t, "back")

	if f.console.Screen() != ScreenShopping {
		t.Errorf("Screen = %v, want shopping", f.console.Screen())
	}
	if f.ledger.Len() != 1 {
		t.Error("back must not clear the cart")
	}
}

func TestConsole_Reconnect(t *testing.T) {
	f := newConsoleFixture(t)
	f.exec(t, "reconnect")

	if len(f.feed.connects) != 1 || f.feed.connects[0] != "ABCD" {
		t.Errorf("unexpected connects: %v", f.feed.connects)
	}
}

func TestConsole_Status(t *testing.T) {
	f := newConsoleFixture(t)
	f.exec(t, "status")

	out := f.out.String()
	if !strings.Contains(out, "session=ABCD") || !strings.Contains(out, "feed=connected") || !strings.Contains(out, "screen=shopping") {
		t.Errorf("unexpected status: %s", out)
	}
}

func TestConsole_Run(t *testing.T) {
	f := newConsoleFixture(t)
	in := strings.NewReader("scan 2\n\nbogus\nquit\nscan 1\n")

	if err := f.console.Run(context.Background(), in); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	items := f.ledger.Items()
	if len(items) != 1 || items[0].Name != "Bread" {
		t.Errorf("expected only Bread before quit, got %+v", items)
	}
	if !strings.Contains(f.out.String(), `error: unknown command "bogus" on shopping screen`) {
		t.Errorf("expected unknown command error:\n%s", f.out.String())
	}
}

func TestScreenString(t *testing.T) {
	tests := []struct {
		s    Screen
		want string
	}{
		{ScreenShopping, "shopping"},
		{ScreenPayment, "payment"},
		{ScreenSuccess, "success"},
		{Screen(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Screen(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
