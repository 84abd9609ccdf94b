package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies the kind of event flowing through the sequencer.
type Type int

const (
	TypeScan Type = iota + 1
	TypeReset
)

// String returns the event type name used in logs.
func (t Type) String() string {
	switch t {
	case TypeScan:
		return "SCAN"
	case TypeReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// Source names where a scan came from.
const (
	SourceFeed      = "feed"
	SourceSimulator = "simulator"
)

// Event is anything the sequencer can apply to the cart.
type Event interface {
	GetSeq() uint64
	GetType() Type
	GetTs() time.Time
}

// BaseEvent carries the fields shared by every event.
// Seq is assigned by the sequencer on arrival.
type BaseEvent struct {
	Seq uint64
	Ts  time.Time
}

func (b *BaseEvent) GetSeq() uint64   { return b.Seq }
func (b *BaseEvent) GetTs() time.Time { return b.Ts }

// ScanEvent adds one unit of a named item to the cart.
type ScanEvent struct {
	BaseEvent
	Name   string
	Price  decimal.Decimal
	Source string
}

func (e *ScanEvent) GetType() Type { return TypeScan }

// ResetEvent starts a fresh session.
type ResetEvent struct {
	BaseEvent
}

func (e *ResetEvent) GetType() Type { return TypeReset }

// NewScanEvent builds a scan event stamped with the current time.
func NewScanEvent(name string, price decimal.Decimal, source string) *ScanEvent {
	ev := AcquireScanEvent()
	ev.Ts = time.Now()
	ev.Name = name
	ev.Price = price
	ev.Source = source
	return ev
}

// NewResetEvent builds a reset event stamped with the current time.
func NewResetEvent() *ResetEvent {
	return &ResetEvent{BaseEvent: BaseEvent{Ts: time.Now()}}
}
