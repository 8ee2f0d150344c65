package sinks

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/fedpact/fedpact-go/internal/logutil"
	"github.com/fedpact/fedpact-go/internal/sinkcfg"
)

// MetricsSink records best-effort operation counters.
type MetricsSink interface {
	Count(ctx context.Context, name string)
	Snapshot() map[string]int64
}

// MetricsSettings configures the counter sink, decoded from [sinks.metrics].
type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// ApplyDefaults sets default values for unset fields.
func (s *MetricsSettings) ApplyDefaults() {}

// CounterSink keeps in-process counters guarded by a mutex. Counters are
// lost on restart.
type CounterSink struct {
	settings MetricsSettings
	log      *slog.Logger

	mu       sync.Mutex
	counters map[string]int64
}

// NewMetricsSink creates a counter sink from its settings table.
func NewMetricsSink(settings map[string]any, log *slog.Logger) (*CounterSink, error) {
	var s MetricsSettings
	if err := sinkcfg.Decode(settings, &s); err != nil {
		return nil, fmt.Errorf("failed to decode metrics sink settings: %w", err)
	}

	return &CounterSink{
		settings: s,
		log:      logutil.NoopIfNil(log),
		counters: make(map[string]int64),
	}, nil
}

// Count increments the named counter. Invalid names are logged and dropped.
func (m *CounterSink) Count(_ context.Context, name string) {
	if !m.settings.Enabled {
		return
	}
	if name == "" || name != url.PathEscape(name) {
		m.log.Warn("dropping counter with invalid name", "name", name)
		return
	}

	m.mu.Lock()
	m.counters[name]++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counter values.
func (m *CounterSink) Snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}
