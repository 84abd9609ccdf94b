package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"smart_basket/internal/domain"
	"smart_basket/internal/event"
	"smart_basket/internal/infra"
	"smart_basket/internal/service"

	"github.com/shopspring/decimal"
)

// Sequencer is the single writer of the cart ledger.
// Every scan source (feed, simulator, console) sends events to its inbox;
// Run applies them one at a time in arrival order.
type Sequencer struct {
	inbox   chan event.Event
	ledger  *service.CartLedger
	taxRate decimal.Decimal
	metrics *infra.Metrics

	nextSeq uint64        // owned by the Run goroutine
	lastSeq atomic.Uint64 // published for external reads

	// Boundary: used to notify the presentation layer of cart changes
	onChange func(domain.CartSnapshot)
}

// NewSequencer creates a new sequencer instance.
func NewSequencer(inboxSize int, ledger *service.CartLedger, taxRate decimal.Decimal, metrics *infra.Metrics, onChange func(domain.CartSnapshot)) *Sequencer {
	return &Sequencer{
		inbox:    make(chan event.Event, inboxSize),
		ledger:   ledger,
		taxRate:  taxRate,
		metrics:  metrics,
		nextSeq:  1,
		onChange: onChange,
	}
}

// Inbox returns the event channel. Scan sources send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Submit blocks until ev is queued or ctx is done. Scans are never dropped.
func (s *Sequencer) Submit(ctx context.Context, ev event.Event) error {
	select {
	case s.inbox <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case ev := <-s.inbox:
			s.processEvent(ev)
		}
	}
}

func (s *Sequencer) processEvent(ev event.Event) {
	start := time.Now()

	switch e := ev.(type) {
	case *event.ScanEvent:
		e.Seq = s.nextSeq
		s.handleScan(e)
	case *event.ResetEvent:
		e.Seq = s.nextSeq
		s.handleReset(e)
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
		return
	}

	s.lastSeq.Store(s.nextSeq)
	s.nextSeq++

	if s.metrics != nil {
		s.metrics.RecordEvent(time.Since(start).Nanoseconds())
	}
	if s.onChange != nil {
		s.onChange(s.ledger.Snapshot(s.taxRate))
	}
}

func (s *Sequencer) handleScan(e *event.ScanEvent) {
	item := s.ledger.RecordScan(e.Name, e.Price)
	slog.Debug("Item scanned",
		slog.Uint64("seq", e.Seq),
		slog.String("item", item.Name),
		slog.Int("qty", item.Quantity),
		slog.String("source", e.Source),
	)
	if s.metrics != nil {
		s.metrics.RecordScan()
	}
	event.ReleaseScanEvent(e)
}

func (s *Sequencer) handleReset(e *event.ResetEvent) {
	s.ledger.Reset()
	slog.Info("Cart reset", slog.Uint64("seq", e.Seq))
	if s.metrics != nil {
		s.metrics.RecordReset()
	}
}

// LastSeq returns the sequence number of the last applied event (0 if none).
func (s *Sequencer) LastSeq() uint64 {
	return s.lastSeq.Load()
}

// DumpState writes the cart to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		LastSeq uint64              `json:"last_seq"`
		Cart    domain.CartSnapshot `json:"cart"`
	}{
		LastSeq: s.LastSeq(),
		Cart:    s.ledger.Snapshot(s.taxRate),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
