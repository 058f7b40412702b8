// Package hpackmetrics wires optional Prometheus instrumentation into a
// Decoder without the core hpack package importing client_golang itself.
// The Decoder only ever sees the narrow Collector interface; Recorder is
// the one place github.com/prometheus/client_golang/prometheus is
// imported, mirroring how the pack's larger services (bolt, perkeep.org)
// keep metrics registration separate from the code paths that emit them.
package hpackmetrics

import "github.com/prometheus/client_golang/prometheus"

// Collector is the narrow interface a Decoder calls into. It is satisfied
// by *Recorder, or by a caller's own stub for tests that don't want a
// live Prometheus registry.
type Collector interface {
	HeaderEmitted()
	HeaderTruncated()
	DynamicTableEviction()
	SetDynamicTableSize(bytes int)
}

// Recorder is the Collector backed by real Prometheus metrics. Construct
// one per connection-pool or per process (it is safe to share across
// Decoder instances — the counters are aggregate, not per-connection) and
// register it with a prometheus.Registerer of the caller's choosing.
type Recorder struct {
	headersEmitted   prometheus.Counter
	headersTruncated prometheus.Counter
	evictions        prometheus.Counter
	tableSize        prometheus.Gauge
}

// NewRecorder builds a Recorder and registers its metrics on reg. Passing
// prometheus.DefaultRegisterer is the common case; a nil reg registers
// nowhere (useful in tests), leaving the Recorder usable but unexported.
func NewRecorder(reg prometheus.Registerer, namespace string) *Recorder {
	r := &Recorder{
		headersEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hpack",
			Name:      "headers_emitted_total",
			Help:      "Header fields emitted to the listener across all decoded blocks.",
		}),
		headersTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hpack",
			Name:      "headers_truncated_total",
			Help:      "Header field emissions dropped because they would exceed the block's maximum header size.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hpack",
			Name:      "dynamic_table_evictions_total",
			Help:      "Dynamic table entries evicted to make room for a new insertion.",
		}),
		tableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hpack",
			Name:      "dynamic_table_size_bytes",
			Help:      "Current byte size of the dynamic table.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.headersEmitted, r.headersTruncated, r.evictions, r.tableSize)
	}
	return r
}

func (r *Recorder) HeaderEmitted()         { r.headersEmitted.Inc() }
func (r *Recorder) HeaderTruncated()       { r.headersTruncated.Inc() }
func (r *Recorder) DynamicTableEviction()  { r.evictions.Inc() }
func (r *Recorder) SetDynamicTableSize(n int) { r.tableSize.Set(float64(n)) }
