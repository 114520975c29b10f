package toolcore

import (
	"errors"
	"sync"
	"time"
)

// ToolMetrics are the per-tool monotonic counters.
type ToolMetrics struct {
	CallsTotal         uint64 `json:"calls_total"`
	ErrorsTotal        uint64 `json:"errors_total"`
	MutatingCallsTotal uint64 `json:"mutating_calls_total"`
	LatencySumMS       int64  `json:"latency_sum_ms"`
}

// UpstreamMetrics are the per-upstream-dependency-bucket counters.
type UpstreamMetrics struct {
	RequestsTotal    uint64 `json:"requests_total"`
	ErrorsTotal      uint64 `json:"errors_total"`
	RateLimitedTotal uint64 `json:"rate_limited_total"`
	TimeoutsTotal    uint64 `json:"timeouts_total"`
}

// MetricsSnapshot is an immutable copy of all counters.
type MetricsSnapshot struct {
	Tools     map[string]ToolMetrics     `json:"tools"`
	Upstreams map[string]UpstreamMetrics `json:"upstreams"`
}

// Metrics counts calls and latency per tool and per upstream dependency
// bucket. All increments are monotonic; there are no decrements. Counters
// are independent: no cross-counter ordering is guaranteed.
type Metrics struct {
	mu        sync.Mutex
	tools     map[string]*ToolMetrics
	upstreams map[string]*UpstreamMetrics
}

// NewMetrics creates an empty metrics registry.
func NewMetrics() *Metrics {
	return &Metrics{
		tools:     make(map[string]*ToolMetrics),
		upstreams: make(map[string]*UpstreamMetrics),
	}
}

// RecordCall counts one dispatched call. failed is true for StatusError
// outcomes only; cancellations count as calls but not errors.
func (m *Metrics) RecordCall(tool string, mutating, failed bool, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tools[tool]
	if t == nil {
		t = &ToolMetrics{}
		m.tools[tool] = t
	}
	t.CallsTotal++
	if mutating {
		t.MutatingCallsTotal++
	}
	if failed {
		t.ErrorsTotal++
	}
	t.LatencySumMS += latency.Milliseconds()
}

// RecordUpstream counts one request to an upstream dependency bucket.
// err may be nil (successful request); *UpstreamError fields drive the
// rate-limited counter, context deadline errors drive the timeout counter.
func (m *Metrics) RecordUpstream(bucket string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.upstreams[bucket]
	if u == nil {
		u = &UpstreamMetrics{}
		m.upstreams[bucket] = u
	}
	u.RequestsTotal++
	if err == nil {
		return
	}
	u.ErrorsTotal++
	var ue *UpstreamError
	if errors.As(err, &ue) && ue.RateLimited {
		u.RateLimitedTotal++
	}
	if isDeadlineError(err) {
		u.TimeoutsTotal++
	}
}

// Snapshot returns an immutable copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := MetricsSnapshot{
		Tools:     make(map[string]ToolMetrics, len(m.tools)),
		Upstreams: make(map[string]UpstreamMetrics, len(m.upstreams)),
	}
	for name, t := range m.tools {
		out.Tools[name] = *t
	}
	for name, u := range m.upstreams {
		out.Upstreams[name] = *u
	}
	return out
}
