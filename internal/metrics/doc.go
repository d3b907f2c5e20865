// Package metrics provides Prometheus instrumentation for the backdrop gallery.
//
// All metrics are registered on the default registry through promauto and are
// prefixed with "backdrops_".
//
// # Metric Categories
//
//   - HTTP: request counts, durations and in-flight requests.
//   - Metadata: document loads by status, load duration, snapshot cache hits
//     and catalog size per category (maintained by the Collector).
//   - Downloads: flow outcomes (purchase, converted, fallback), recovered
//     failures by stage and flow duration. The failure counter is the only
//     signal that a fallback happened, since the flow never returns errors.
//   - Transcoder: transcodes by engine/format/status and their duration.
//   - Loader: visibility-gated loader transitions and manual retries.
//   - Analytics, database and filesystem retry counters.
//
// Call InitializeMetrics once at startup so every labelled series exists from
// the first scrape.
package metrics
