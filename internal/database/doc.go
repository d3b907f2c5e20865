// Package database persists analytics events in SQLite.
//
// The database runs in WAL mode so the stats endpoint can read while
// the download and ingestion paths write. The schema is created on
// first open; a Database satisfies analytics.Sink and can be placed
// directly in a Multi fan-out.
package database
