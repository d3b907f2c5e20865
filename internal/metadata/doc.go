// Package metadata loads the image metadata document and keeps an enriched
// snapshot of it in memory.
//
// The document is looked up at several candidate paths; the first one that
// exists wins. Store reloads it only when the resolved file changes (path,
// size or modification time), and Watch uses fsnotify to drop the snapshot as
// soon as the file is written.
package metadata
