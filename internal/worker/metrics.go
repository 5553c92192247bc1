package worker

import (
	"sync/atomic"
	"time"
)

// Labels names the counters in a result payload. Each fleet reports the same
// four quantities under protocol-appropriate names.
type Labels struct {
	Sent    string
	Bytes   string
	Success string
	Fail    string
	Rate    string
}

var (
	HTTPLabels = Labels{
		Sent:    "requests_sent",
		Bytes:   "bytes_sent",
		Success: "successful_requests",
		Fail:    "failed_requests",
		Rate:    "requests_per_second",
	}
	TCPLabels = Labels{
		Sent:    "packets_sent",
		Bytes:   "bytes_sent",
		Success: "successful_packets",
		Fail:    "failed_packets",
		Rate:    "packets_per_second",
	}
	DNSLabels = Labels{
		Sent:    "queries_sent",
		Bytes:   "bytes_sent",
		Success: "successful_queries",
		Fail:    "failed_queries",
		Rate:    "queries_per_second",
	}
)

// Metrics accumulates counters for one test run. All increments are atomic so
// worker units never contend on a lock.
type Metrics struct {
	labels Labels
	start  time.Time
	endNS  atomic.Int64

	sent    atomic.Int64
	bytes   atomic.Int64
	success atomic.Int64
	fail    atomic.Int64
}

func NewMetrics(labels Labels) *Metrics {
	return &Metrics{labels: labels, start: time.Now()}
}

func (m *Metrics) RecordSent()         { m.sent.Add(1) }
func (m *Metrics) RecordBytes(n int)   { m.bytes.Add(int64(n)) }
func (m *Metrics) RecordSuccess()      { m.success.Add(1) }
func (m *Metrics) RecordFail()         { m.fail.Add(1) }
func (m *Metrics) Sent() int64         { return m.sent.Load() }

// MarkEnd freezes the elapsed time used for rate computation. Snapshots taken
// before MarkEnd use the current wall clock.
func (m *Metrics) MarkEnd() {
	m.endNS.CompareAndSwap(0, time.Now().UnixNano())
}

func (m *Metrics) elapsed() float64 {
	end := m.endNS.Load()
	if end == 0 {
		end = time.Now().UnixNano()
	}
	e := float64(end-m.start.UnixNano()) / float64(time.Second)
	if e < 0.1 {
		// guard the rate division against a zero-length run
		e = 0.1
	}
	return e
}

// Snapshot renders the counters under their protocol labels. Safe to call
// while the run is still producing.
func (m *Metrics) Snapshot() map[string]any {
	sent := m.sent.Load()
	success := m.success.Load()
	denom := sent
	if denom < 1 {
		denom = 1
	}
	return map[string]any{
		m.labels.Sent:    sent,
		m.labels.Bytes:   m.bytes.Load(),
		m.labels.Success: success,
		m.labels.Fail:    m.fail.Load(),
		m.labels.Rate:    float64(sent) / m.elapsed(),
		"success_rate":   float64(success) / float64(denom) * 100,
		"duration":       m.elapsed(),
	}
}
