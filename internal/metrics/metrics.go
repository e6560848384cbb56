package metrics

import (
	"sync/atomic"
	"time"
)

// Upstream names used when recording calls.
const (
	LLM          = "llm"
	PDFExtractor = "pdf_extractor"
)

// counters tracks calls to one upstream service
type counters struct {
	calls   int64
	errors  int64
	latency int64 // Total latency in nanoseconds
}

var upstreams = map[string]*counters{
	LLM:          {},
	PDFExtractor: {},
}

// Snapshot is a point-in-time view of one upstream's counters.
type Snapshot struct {
	Calls        int64   `json:"calls"`
	Errors       int64   `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	ErrorRate    float64 `json:"error_rate_pct"`
}

// RecordUpstreamCall records one call. Unknown names are ignored.
func RecordUpstreamCall(name string, duration time.Duration, err error) {
	c, ok := upstreams[name]
	if !ok {
		return
	}
	atomic.AddInt64(&c.calls, 1)
	atomic.AddInt64(&c.latency, duration.Nanoseconds())
	if err != nil {
		atomic.AddInt64(&c.errors, 1)
	}
}

// Get returns the current metrics snapshot for every upstream
func Get() map[string]Snapshot {
	out := make(map[string]Snapshot, len(upstreams))
	for name, c := range upstreams {
		calls := atomic.LoadInt64(&c.calls)
		errs := atomic.LoadInt64(&c.errors)
		lat := atomic.LoadInt64(&c.latency)

		s := Snapshot{Calls: calls, Errors: errs}
		if calls > 0 {
			s.AvgLatencyMs = float64(lat) / float64(calls) / 1e6
			s.ErrorRate = float64(errs) / float64(calls) * 100
		}
		out[name] = s
	}
	return out
}

// Reset resets all metrics (useful for testing)
func Reset() {
	for _, c := range upstreams {
		atomic.StoreInt64(&c.calls, 0)
		atomic.StoreInt64(&c.errors, 0)
		atomic.StoreInt64(&c.latency, 0)
	}
}
