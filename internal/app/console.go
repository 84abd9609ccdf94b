package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"smart_basket/internal/domain"
	"smart_basket/internal/event"
	"smart_basket/internal/infra"
	"smart_basket/internal/infra/simulator"
	"smart_basket/internal/payment"
	"smart_basket/internal/receipt"
	"smart_basket/internal/service"

	"github.com/shopspring/decimal"
)

// Screen is the terminal's current step in the checkout flow.
type Screen int

const (
	ScreenShopping Screen = iota
	ScreenPayment
	ScreenSuccess
)

func (s Screen) String() string {
	switch s {
	case ScreenShopping:
		return "shopping"
	case ScreenPayment:
		return "payment"
	case ScreenSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// ErrQuit is returned by Execute when the operator ends the session.
var ErrQuit = errors.New("quit")

// ConsoleDeps wires the console to the rest of the terminal.
// Feed, Scanner and Archive are optional.
type ConsoleDeps struct {
	Config    *infra.Config
	Ledger    *service.CartLedger
	Submit    func(ctx context.Context, ev event.Event) error
	Feed      domain.FeedClient
	Scanner   *simulator.Scanner
	Receipts  *receipt.Builder
	Archive   domain.ReceiptRepository
	Metrics   *infra.Metrics
	SessionID string
	Out       io.Writer
}

// Console is the line-oriented operator interface: it renders the cart
// and drives checkout, payment and receipts.
type Console struct {
	cfg       *infra.Config
	ledger    *service.CartLedger
	submit    func(ctx context.Context, ev event.Event) error
	feed      domain.FeedClient
	scanner   *simulator.Scanner
	receipts  *receipt.Builder
	archive   domain.ReceiptRepository
	metrics   *infra.Metrics
	sessionID string
	payee     payment.Payee

	outMu sync.Mutex
	out   io.Writer

	// Owned by the goroutine calling Execute.
	screen     Screen
	checkout   domain.CartSnapshot
	invoiceID  string
	last       *receipt.Receipt
	newInvoice func() string
}

// NewConsole creates a console on the shopping screen.
func NewConsole(deps ConsoleDeps) *Console {
	cfg := deps.Config
	metrics := deps.Metrics
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Console{
		cfg:       cfg,
		ledger:    deps.Ledger,
		submit:    deps.Submit,
		feed:      deps.Feed,
		scanner:   deps.Scanner,
		receipts:  deps.Receipts,
		archive:   deps.Archive,
		metrics:   metrics,
		sessionID: deps.SessionID,
		payee: payment.Payee{
			VPA:      cfg.Payment.PayeeVPA,
			Name:     cfg.Payment.PayeeName,
			Note:     cfg.Payment.Note,
			Currency: cfg.Payment.Currency,
		},
		out:        deps.Out,
		screen:     ScreenShopping,
		newInvoice: payment.NewInvoiceID,
	}
}

// Screen returns the current screen.
func (c *Console) Screen() Screen {
	return c.screen
}

// Run reads commands from in until EOF, quit, or ctx cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	c.printf("SmartBasket session %s. Type 'help' for commands.\n", c.sessionID)

	lines := bufio.NewScanner(in)
	for lines.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		err := c.Execute(ctx, lines.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			c.printf("error: %v\n", err)
		}
	}
	return lines.Err()
}

// Execute runs one command line.
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	// Available on every screen.
	switch cmd {
	case "help", "?":
		c.printHelp()
		return nil
	case "status":
		c.printStatus()
		return nil
	case "quit", "exit":
		return ErrQuit
	}

	switch c.screen {
	case ScreenShopping:
		switch cmd {
		case "scan":
			return c.scan(ctx, strings.Join(args, " "))
		case "total", "cart":
			c.printCart(c.snapshot())
			return nil
		case "catalog":
			c.printCatalog()
			return nil
		case "checkout":
			return c.startCheckout()
		case "reset", "new":
			return c.reset(ctx)
		case "reconnect":
			return c.reconnect(ctx)
		}
	case ScreenPayment:
		switch cmd {
		case "pay":
			if len(args) == 0 {
				return &domain.ValidationError{Field: "app", Err: errors.New("usage: pay <gpay|paytm|phonepe|bhim|upi>")}
			}
			return c.pay(args[0])
		case "total", "cart":
			c.printCart(c.checkout)
			return nil
		case "back":
			c.screen = ScreenShopping
			c.printf("Back to shopping.\n")
			return nil
		case "paid", "done":
			return c.complete()
		}
	case ScreenSuccess:
		switch cmd {
		case "receipt":
			return c.last.Render(c.writer())
		case "reset", "new":
			return c.reset(ctx)
		}
	}

	return fmt.Errorf("unknown command %q on %s screen", cmd, c.screen)
}

func (c *Console) snapshot() domain.CartSnapshot {
	return c.ledger.Snapshot(c.cfg.Cart.TaxRate)
}

func (c *Console) scan(ctx context.Context, ref string) error {
	if c.scanner == nil {
		return errors.New("simulator is disabled")
	}
	item, err := c.scanner.Scan(ctx, ref)
	if err != nil {
		return err
	}
	c.printf("Scanned %s (%s%s)\n", item.Name, c.cfg.Cart.CurrencySymbol, item.Price.StringFixed(2))
	return nil
}

func (c *Console) startCheckout() error {
	snap := c.snapshot()
	if snap.IsEmpty() {
		return domain.ErrEmptyCart
	}

	c.checkout = snap
	c.invoiceID = c.newInvoice()
	c.screen = ScreenPayment

	req := c.paymentRequest()
	c.printf("Invoice %s\n", c.invoiceID)
	c.printf("Amount due: %s%d\n", c.cfg.Cart.CurrencySymbol, req.Amount)
	c.printf("Scan to pay: %s\n", payment.QRPayload(req))
	c.printf("Or choose an app: pay <%s>\n", appList())
	slog.Info("Checkout started",
		slog.String("invoice", c.invoiceID),
		slog.Int64("amount", req.Amount),
		slog.Int("items", len(snap.Items)))
	return nil
}

func (c *Console) paymentRequest() payment.Request {
	return payment.Request{
		Payee:  c.payee,
		Amount: service.FloorAmount(c.checkout.Totals.Total),
	}
}

func (c *Console) pay(name string) error {
	app, err := payment.ParseApp(name)
	if err != nil {
		return err
	}
	link, err := payment.DeepLink(app, c.paymentRequest())
	if err != nil {
		return err
	}
	slog.Info("Opening payment app", slog.String("app", string(app)), slog.String("link", link))
	c.printf("Open %s: %s\n", app, link)
	return nil
}

func (c *Console) complete() error {
	r, err := c.receipts.Build(c.checkout, c.invoiceID, c.sessionID)
	if err != nil {
		return err
	}
	c.last = r
	c.screen = ScreenSuccess
	c.metrics.RecordCheckout()

	c.printf("Payment complete. Transaction %s\n", r.TransactionID)
	c.printf("Receipt QR: %s\n", r.QRPayload())

	if dir := c.cfg.Receipt.Dir; dir != "" {
		path, err := r.Save(dir)
		if err != nil {
			slog.Warn("Failed to save receipt", slog.Any("error", err))
		} else {
			c.printf("Bill saved to %s\n", path)
		}
	}

	if c.archive != nil {
		rec, err := r.Record()
		if err == nil {
			err = c.archive.SaveReceipt(rec)
		}
		if err != nil {
			slog.Warn("Failed to archive receipt", slog.String("transaction_id", r.TransactionID), slog.Any("error", err))
		}
	}

	slog.Info("Checkout completed",
		slog.String("invoice", r.InvoiceID),
		slog.String("transaction_id", r.TransactionID),
		slog.Int64("amount", r.Amount))
	return nil
}

func (c *Console) reset(ctx context.Context) error {
	if err := c.submit(ctx, event.NewResetEvent()); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	c.screen = ScreenShopping
	c.checkout = domain.CartSnapshot{}
	c.invoiceID = ""
	c.last = nil
	c.printf("New session started.\n")
	return nil
}

func (c *Console) reconnect(ctx context.Context) error {
	if c.feed == nil {
		return errors.New("feed is disabled")
	}
	return c.feed.Connect(ctx, c.sessionID)
}

// OnCartChange renders the cart after every applied event.
func (c *Console) OnCartChange(snap domain.CartSnapshot) {
	c.printCart(snap)
}

// OnFeedState renders the connection badge.
func (c *Console) OnFeedState(state domain.ConnectionState) {
	c.printf("[feed %s]\n", state)
}

func (c *Console) printCart(snap domain.CartSnapshot) {
	sym := c.cfg.Cart.CurrencySymbol

	var b strings.Builder
	if snap.IsEmpty() {
		b.WriteString("Cart is empty.\n")
	}
	for _, item := range snap.Items {
		fmt.Fprintf(&b, "#%d %-20s %s%s x%d = %s%s\n",
			item.ID, item.Name, sym, item.UnitPrice.StringFixed(2),
			item.Quantity, sym, item.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "Subtotal: %s%s\n", sym, snap.Totals.Subtotal.StringFixed(2))
	if !snap.TaxRate.IsZero() {
		fmt.Fprintf(&b, "Tax (%s%%): %s%s\n", snap.TaxRate.Mul(decimal.NewFromInt(100)).String(), sym, snap.Totals.Tax.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s%s\n", sym, snap.Totals.Total.StringFixed(2))
	c.printf("%s", b.String())
}

func (c *Console) printCatalog() {
	if c.scanner == nil {
		c.printf("Simulator is disabled.\n")
		return
	}
	for i, item := range c.scanner.Catalog() {
		c.printf("%2d. %-20s %s%s\n", i+1, item.Name, c.cfg.Cart.CurrencySymbol, item.Price.StringFixed(2))
	}
}

func (c *Console) printStatus() {
	feedState := "disabled"
	if c.feed != nil {
		feedState = c.feed.State().String()
	}
	m := c.metrics.Snapshot()
	c.printf("session=%s screen=%s feed=%s items=%d scans=%d decode_errors=%d reconnects=%d checkouts=%d\n",
		c.sessionID, c.screen, feedState, c.ledger.Len(),
		m.ScansRecorded, m.DecodeErrors, m.ReconnectAttempts, m.Checkouts)
}

func (c *Console) printHelp() {
	switch c.screen {
	case ScreenShopping:
		c.printf("scan <name|number>, catalog, total, checkout, reset, reconnect, status, quit\n")
	case ScreenPayment:
		c.printf("pay <%s>, paid, back, total, status, quit\n", appList())
	case ScreenSuccess:
		c.printf("receipt, new, status, quit\n")
	}
}

func (c *Console) writer() io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		c.outMu.Lock()
		defer c.outMu.Unlock()
		return c.out.Write(p)
	})
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func appList() string {
	apps := payment.Apps()
	names := make([]string, len(apps))
	for i, a := range apps {
		names[i] = string(a)
	}
	return strings.Join(names, "|")
}
