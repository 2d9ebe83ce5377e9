// Package monitor tracks gateway counters and round-trip latency.
package monitor

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks overall gateway activity.
type Metrics struct {
	// Round-trip latency of orders that reached the venue.
	SendLatency *LatencyHistogram

	submitted uint64
	sent      uint64
	queued    uint64
	modified  uint64
	cancelled uint64
	rejected  uint64
	accepts   uint64
	rejects   uint64

	started time.Time
}

// NewMetrics creates a metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		SendLatency: NewLatencyHistogram(1000),
		started:     time.Now(),
	}
}

func (m *Metrics) IncSubmitted() { atomic.AddUint64(&m.submitted, 1) }
func (m *Metrics) IncSent()      { atomic.AddUint64(&m.sent, 1) }
func (m *Metrics) IncQueued()    { atomic.AddUint64(&m.queued, 1) }
func (m *Metrics) IncModified()  { atomic.AddUint64(&m.modified, 1) }
func (m *Metrics) IncCancelled() { atomic.AddUint64(&m.cancelled, 1) }
func (m *Metrics) IncRejected()  { atomic.AddUint64(&m.rejected, 1) }

// RecordVerdict counts one venue response.
func (m *Metrics) RecordVerdict(accepted bool) {
	if accepted {
		atomic.AddUint64(&m.accepts, 1)
	} else {
		atomic.AddUint64(&m.rejects, 1)
	}
}

// Snapshot is the read-only view served by the API.
type Snapshot struct {
	Submitted      uint64       `json:"submitted"`
	Sent           uint64       `json:"sent"`
	Queued         uint64       `json:"queued"`
	Modified       uint64       `json:"modified"`
	Cancelled      uint64       `json:"cancelled"`
	Rejected       uint64       `json:"rejected"`
	VenueAccepts   uint64       `json:"venue_accepts"`
	VenueRejects   uint64       `json:"venue_rejects"`
	UptimeSeconds  float64      `json:"uptime_seconds"`
	SendLatencyMs  LatencyStats `json:"send_latency_ms"`
}

// Snapshot returns current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Submitted:     atomic.LoadUint64(&m.submitted),
		Sent:          atomic.LoadUint64(&m.sent),
		Queued:        atomic.LoadUint64(&m.queued),
		Modified:      atomic.LoadUint64(&m.modified),
		Cancelled:     atomic.LoadUint64(&m.cancelled),
		Rejected:      atomic.LoadUint64(&m.rejected),
		VenueAccepts:  atomic.LoadUint64(&m.accepts),
		VenueRejects:  atomic.LoadUint64(&m.rejects),
		UptimeSeconds: time.Since(m.started).Seconds(),
		SendLatencyMs: m.SendLatency.Stats(),
	}
}

// LatencyHistogram tracks latency samples with a sliding window.
type LatencyHistogram struct {
	mu      sync.Mutex
	samples []float64
	maxSize int
}

// LatencyStats summarizes the current window.
type LatencyStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P99   float64 `json:"p99"`
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{maxSize: size}
}

// RecordDuration adds one sample.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, float64(d.Microseconds())/1000.0)
	if len(h.samples) > h.maxSize {
		h.samples = h.samples[len(h.samples)-h.maxSize:]
	}
}

// Stats computes summary statistics over the window.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return LatencyStats{
		Count: n,
		Min:   sorted[0],
		Max:   sorted[n-1],
		Mean:  sum / float64(n),
		P50:   sorted[n/2],
		P99:   sorted[min(n-1, n*99/100)],
	}
}
