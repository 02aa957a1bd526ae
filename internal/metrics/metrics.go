package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram slot.
type MetricID uint16

const (
	MetricRequestSuccess MetricID = iota
	MetricRequestFailure
	MetricTransportError
	MetricTimeout
	MetricUnauthorized
	MetricRefreshStarted
	MetricRefreshJoined
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricProactiveRefresh
	MetricReplay
	MetricReplayRejected
	MetricTeardown
	MetricLoginSuccess
	MetricLoginFailure
	MetricLogout
	MetricUpload
	MetricExport
	MetricExportRejected
	MetricRequestLatency
	MetricRefreshLatency
	MetricIDCount
)

// HistogramIDs lists the slots that record latency buckets.
var HistogramIDs = []MetricID{MetricRequestLatency, MetricRefreshLatency}

// bucketBounds are inclusive upper bounds; anything slower lands in the last bucket.
var bucketBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(bucketBounds) + 1

// slot keeps each counter on its own cache line.
type slot struct {
	n atomic.Uint64
	_ [56]byte
}

type latency [histBucketCount]atomic.Uint64

// Config toggles collection.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds the counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]slot
	latencies     [2]latency
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// EmptySnapshot returns a snapshot with allocated, empty maps.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= MetricIDCount {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d into the histogram for id. Ids without a histogram are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() {
		return
	}
	h := m.latencyFor(id)
	if h == nil {
		return
	}
	h[bucketOf(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

func (m *Metrics) Snapshot() Snapshot {
	if !m.Enabled() {
		return EmptySnapshot()
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(MetricIDCount)),
		Histograms: make(map[MetricID][]uint64, len(HistogramIDs)),
	}
	for id := range MetricIDCount {
		if m.latencyFor(id) != nil {
			continue
		}
		s.Counters[id] = m.counters[id].n.Load()
	}
	if !m.enableLatency {
		return s
	}
	for _, id := range HistogramIDs {
		h := m.latencyFor(id)
		out := make([]uint64, histBucketCount)
		for i := range h {
			out[i] = h[i].Load()
		}
		s.Histograms[id] = out
	}
	return s
}

func (m *Metrics) latencyFor(id MetricID) *latency {
	switch id {
	case MetricRequestLatency:
		return &m.latencies[0]
	case MetricRefreshLatency:
		return &m.latencies[1]
	}
	return nil
}

func bucketOf(d time.Duration) int {
	for i, bound := range bucketBounds {
		if d <= bound {
			return i
		}
	}
	return len(bucketBounds)
}
