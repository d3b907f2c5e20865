// Package handlers provides the HTTP handlers of the gallery API.
//
// It includes handlers for:
//   - The enriched metadata document and per-category listings
//   - Downloads, transcoded server-side with bounded concurrency
//   - Client analytics ingestion and event stats
//   - Health, readiness and version checks
package handlers
