// Package analytics defines the fire-and-forget event sink used by the
// loader and the download flow. A missing sink is never an error: callers
// wrap optional sinks with OrNop and emit unconditionally.
package analytics

import (
	"context"

	"backdrop-gallery/internal/logging"
	"backdrop-gallery/internal/metrics"
)

// Event is a single analytics notification.
type Event struct {
	Action   string `json:"action"`
	Category string `json:"category"`
	Label    string `json:"label"`
	Value    int    `json:"value"`
}

// Well-known actions and categories.
const (
	ActionDownload    = "download"
	ActionImageLoaded = "image_loaded"
	ActionImageError  = "image_error"

	CategoryEngagement  = "engagement"
	CategoryPerformance = "performance"
	CategoryWebVitals   = "web_vitals"
)

// Web Vitals metric names, reported as the action of a CategoryWebVitals
// event. Values are milliseconds, except CLS which is scaled by 1000.
const (
	VitalLCP  = "LCP"
	VitalCLS  = "CLS"
	VitalFID  = "FID"
	VitalFCP  = "FCP"
	VitalTTFB = "TTFB"
)

// Sink receives events. Implementations must not block for long and must
// not fail the caller; errors are theirs to log.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// Nop discards every event.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(context.Context, Event) {}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Multi fans an event out to several sinks. Nil members are skipped.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, e)
		}
	}
}

// LogSink writes events to the debug log.
type LogSink struct{}

// Emit implements Sink.
func (LogSink) Emit(_ context.Context, e Event) {
	logging.Debug("analytics: action=%s category=%s label=%q value=%d", e.Action, e.Category, e.Label, e.Value)
}

// MetricsSink counts events in Prometheus.
type MetricsSink struct{}

// Emit implements Sink.
func (MetricsSink) Emit(_ context.Context, e Event) {
	metrics.AnalyticsEventsTotal.WithLabelValues(e.Action, e.Category).Inc()
}
