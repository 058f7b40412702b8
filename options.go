package hpack

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jpinner/hpack/hpackmetrics"
)

// Option configures a Decoder at construction time, in the style of the
// teacher's post-construction setters (SetDynamicTableMaxSize,
// SetMaxIntegerValue, ...) but applied once up front via NewDecoder,
// since spec §6 fixes the constructor's three parameters and there is no
// CLI/config-file layer to source the rest from (spec §6, AMBIENT STACK).
type Option func(*Decoder)

// WithLogger attaches a structured logger. The Decoder logs a Debug line
// when the reference set is cleared and a Warn line when a header emission
// is dropped for size; state transitions are not logged. The default is a
// no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics attaches a Collector (typically *hpackmetrics.Recorder) so
// callers can export dynamic-table and truncation activity to Prometheus.
// The default is a no-op collector.
func WithMetrics(collector hpackmetrics.Collector) Option {
	return func(d *Decoder) {
		if collector != nil {
			d.metrics = collector
		}
	}
}

// WithConnectionID overrides the random UUID a Decoder otherwise stamps
// itself with at construction, so a caller's own connection identifier
// shows up in log correlation instead.
func WithConnectionID(id uuid.UUID) Option {
	return func(d *Decoder) {
		d.id = id
	}
}

type noopMetrics struct{}

func (noopMetrics) HeaderEmitted()            {}
func (noopMetrics) HeaderTruncated()          {}
func (noopMetrics) DynamicTableEviction()     {}
func (noopMetrics) SetDynamicTableSize(int)   {}
