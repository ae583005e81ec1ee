package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks hot-path performance for the bar pipeline.
type SystemMetrics struct {
	// Latency histograms
	BarLatency  *LatencyHistogram // full per-bar pipeline
	GateLatency *LatencyHistogram // gate evaluation only
	DBLatency   *LatencyHistogram // position journal flushes

	// Counters
	barsProcessed   uint64
	signalsEmitted  uint64
	positionsOpened uint64
	positionsClosed uint64
	errorsCount     uint64
}

// LatencyHistogram tracks latency samples with a sliding window and lazy
// stats computation.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		BarLatency:  NewLatencyHistogram(1000),
		GateLatency: NewLatencyHistogram(1000),
		DBLatency:   NewLatencyHistogram(1000),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99. Recomputes only when samples
// have changed since the last call.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementBars increments the processed bars counter.
func (m *SystemMetrics) IncrementBars() {
	atomic.AddUint64(&m.barsProcessed, 1)
}

// IncrementSignals increments the emitted signals counter.
func (m *SystemMetrics) IncrementSignals() {
	atomic.AddUint64(&m.signalsEmitted, 1)
}

// IncrementPositionsOpened increments the opened positions counter.
func (m *SystemMetrics) IncrementPositionsOpened() {
	atomic.AddUint64(&m.positionsOpened, 1)
}

// IncrementPositionsClosed increments the closed positions counter.
func (m *SystemMetrics) IncrementPositionsClosed() {
	atomic.AddUint64(&m.positionsClosed, 1)
}

// IncrementErrors increments the error counter.
func (m *SystemMetrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// MetricsSnapshot is a point-in-time view for the dashboard.
type MetricsSnapshot struct {
	BarLatency      LatencyStats `json:"bar_latency"`
	GateLatency     LatencyStats `json:"gate_latency"`
	DBLatency       LatencyStats `json:"db_latency"`
	BarsProcessed   uint64       `json:"bars_processed"`
	SignalsEmitted  uint64       `json:"signals_emitted"`
	PositionsOpened uint64       `json:"positions_opened"`
	PositionsClosed uint64       `json:"positions_closed"`
	ErrorsCount     uint64       `json:"errors_count"`
	GoroutineCount  int          `json:"goroutine_count"`
	HeapAlloc       uint64       `json:"heap_alloc_bytes"`
	HeapSys         uint64       `json:"heap_sys_bytes"`
	Timestamp       time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return MetricsSnapshot{
		BarLatency:      m.BarLatency.Stats(),
		GateLatency:     m.GateLatency.Stats(),
		DBLatency:       m.DBLatency.Stats(),
		BarsProcessed:   atomic.LoadUint64(&m.barsProcessed),
		SignalsEmitted:  atomic.LoadUint64(&m.signalsEmitted),
		PositionsOpened: atomic.LoadUint64(&m.positionsOpened),
		PositionsClosed: atomic.LoadUint64(&m.positionsClosed),
		ErrorsCount:     atomic.LoadUint64(&m.errorsCount),
		GoroutineCount:  runtime.NumGoroutine(),
		HeapAlloc:       memStats.HeapAlloc,
		HeapSys:         memStats.HeapSys,
		Timestamp:       time.Now(),
	}
}
