package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	eventsProcessed   atomic.Uint64
	scansRecorded     atomic.Uint64
	resets            atomic.Uint64
	checkouts         atomic.Uint64
	decodeErrors      atomic.Uint64
	reconnectAttempts atomic.Uint64
	errorsTotal       atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordEvent records a sequencer event with its processing latency.
func (m *Metrics) RecordEvent(latencyNs int64) {
	m.eventsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordScan records a scan applied to the cart.
func (m *Metrics) RecordScan() {
	m.scansRecorded.Add(1)
}

// RecordReset records a session reset.
func (m *Metrics) RecordReset() {
	m.resets.Add(1)
}

// RecordCheckout records a completed checkout.
func (m *Metrics) RecordCheckout() {
	m.checkouts.Add(1)
}

// RecordDecodeError records a dropped feed message.
func (m *Metrics) RecordDecodeError() {
	m.decodeErrors.Add(1)
	m.errorsTotal.Add(1)
}

// RecordReconnect records a scheduled reconnection attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnectAttempts.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsProcessed   uint64
	ScansRecorded     uint64
	Resets            uint64
	Checkouts         uint64
	DecodeErrors      uint64
	ReconnectAttempts uint64
	ErrorsTotal       uint64
	AvgLatencyNs      int64
	ActiveConnections int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		EventsProcessed:   m.eventsProcessed.Load(),
		ScansRecorded:     m.scansRecorded.Load(),
		Resets:            m.resets.Load(),
		Checkouts:         m.checkouts.Load(),
		DecodeErrors:      m.decodeErrors.Load(),
		ReconnectAttempts: m.reconnectAttempts.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.eventsProcessed.Store(0)
	m.scansRecorded.Store(0)
	m.resets.Store(0)
	m.checkouts.Store(0)
	m.decodeErrors.Store(0)
	m.reconnectAttempts.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
}
