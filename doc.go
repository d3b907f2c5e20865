// Package main provides the entry point for the backdrop gallery server.
//
// The server publishes a catalog of virtual-background images. It serves the
// enriched metadata document (alt text and schema.org structured data added
// to every record), per-category listings, the image asset tree, and a
// download endpoint that re-encodes free images into a lossless format or
// redirects premium ones to their marketplace page.
//
// # Application Lifecycle
//
//  1. Configuration Loading: reads .env and environment variables, then
//     sets GOMEMLIMIT from the container memory limit
//  2. Metrics Initialization: pre-populates label sets, sets app info
//  3. Category Table: built-in, or loaded from CATEGORIES_FILE (YAML)
//  4. Event Store: opens the SQLite analytics store when DATABASE_DIR is writable
//  5. Transcoder: imaging (pure Go) or vips (libvips)
//  6. Metadata Store: first load, then an fsnotify watcher invalidates the
//     cached snapshot whenever the document changes
//  7. HTTP Server Setup: routes, middleware, separate metrics server
//  8. Graceful Shutdown: on SIGINT/SIGTERM, drains servers then releases
//     the watcher, collector, memory monitor, libvips and the event store
//
// # Background Services
//
//   - Metadata Watcher: invalidates the snapshot on document changes
//   - Metrics Collector: copies per-category image counts into gauges every minute
//   - Memory Monitor: pauses new transcodes while the heap is near its limit
//
// # HTTP Routes
//
//	GET  /api/metadata            enriched metadata, document order
//	GET  /api/categories          category table
//	GET  /api/categories/{slug}   category and its images
//	GET  /api/download/{key}      lossless download or purchase redirect
//	POST /api/events              client analytics event
//	GET  /api/stats               recorded event counts
//	GET  /images/...              asset tree
//	GET  /health, /healthz, /livez, /readyz, /version
//
// Metrics are served on METRICS_PORT at /metrics.
package main
