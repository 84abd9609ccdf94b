package event

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// scanPool recycles ScanEvents between the feed reader and the sequencer.
//
// Usage:
//
//	ev := AcquireScanEvent()
//	ev.Name = "Milk"
//	// ... hand to the sequencer ...
//	ReleaseScanEvent(ev) // after the ledger has applied it
var scanPool = sync.Pool{
	New: func() interface{} {
		return &ScanEvent{}
	},
}

// AcquireScanEvent gets a ScanEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireScanEvent() *ScanEvent {
	return scanPool.Get().(*ScanEvent)
}

// ReleaseScanEvent returns a ScanEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseScanEvent(ev *ScanEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Ts = time.Time{}
	ev.Name = ""
	ev.Price = decimal.Zero
	ev.Source = ""

	scanPool.Put(ev)
}

// Warmup pre-allocates scan events so the first burst of scans does not allocate.
func Warmup(n int) {
	evs := make([]*ScanEvent, 0, n)
	for i := 0; i < n; i++ {
		evs = append(evs, AcquireScanEvent())
	}
	for _, ev := range evs {
		ReleaseScanEvent(ev)
	}
}
