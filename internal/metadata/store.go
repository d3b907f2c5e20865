package metadata

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"backdrop-gallery/internal/catalog"
	"backdrop-gallery/internal/logging"
	"backdrop-gallery/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

type fileStamp struct {
	path    string
	size    int64
	modTime time.Time
}

// Store serves enriched metadata snapshots. A snapshot is immutable once
// published; reloads replace it with a new one.
type Store struct {
	source   *Source
	enricher *catalog.Enricher
	filter   catalog.Filter

	mu       sync.Mutex
	snapshot *catalog.Metadata
	stamp    fileStamp
}

// NewStore returns a store reading from source and enriching with enricher.
func NewStore(source *Source, enricher *catalog.Enricher) *Store {
	return &Store{source: source, enricher: enricher}
}

// Source returns the underlying source.
func (s *Store) Source() *Source {
	return s.source
}

// Current returns the enriched snapshot, reloading it when the document on
// disk changed since the last load.
func (s *Store) Current(ctx context.Context) (*catalog.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, info, err := s.source.Resolve()
	if err != nil {
		metrics.MetadataLoadsTotal.WithLabelValues(loadStatus(err)).Inc()
		return nil, err
	}

	stamp := fileStamp{path: path, size: info.Size(), modTime: info.ModTime()}
	if s.snapshot != nil && stamp == s.stamp {
		metrics.MetadataCacheHits.Inc()
		return s.snapshot, nil
	}

	start := time.Now()
	raw, err := s.source.LoadFile(ctx, path)
	if err != nil {
		metrics.MetadataLoadsTotal.WithLabelValues(loadStatus(err)).Inc()
		return nil, err
	}

	s.snapshot = s.enricher.Enrich(raw)
	s.stamp = stamp
	metrics.MetadataLoadsTotal.WithLabelValues("success").Inc()
	metrics.MetadataLoadDuration.Observe(time.Since(start).Seconds())
	logging.Info("Loaded %d images with enhanced metadata from %s", s.snapshot.Len(), path)

	return s.snapshot, nil
}

// Invalidate drops the cached snapshot so the next call reloads.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.stamp = fileStamp{}
}

// Images returns the enriched records of a category. Load failures are
// logged and treated as "no data yet".
func (s *Store) Images(ctx context.Context, slug string) []catalog.Entry {
	meta, err := s.Current(ctx)
	if err != nil {
		logging.Warn("Metadata unavailable for category %s: %v", slug, err)
		meta = nil
	}
	return s.filter.Select(meta, slug)
}

// Record returns the enriched record stored under key.
func (s *Store) Record(ctx context.Context, key string) (catalog.ImageRecord, bool, error) {
	meta, err := s.Current(ctx)
	if err != nil {
		return catalog.ImageRecord{}, false, err
	}
	rec, ok := meta.Get(key)
	return rec, ok, nil
}

// CategoryCounts reports the number of images per category, implementing
// metrics.StatsProvider.
func (s *Store) CategoryCounts() map[string]int {
	meta, err := s.Current(context.Background())
	if err != nil {
		return map[string]int{}
	}
	return meta.CategoryCounts()
}

// Watch invalidates the snapshot whenever a candidate document is created,
// written, renamed or removed. It blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	targets := make(map[string]bool)
	watched := 0
	for _, path := range s.source.Paths() {
		targets[filepath.Clean(path)] = true
		dir := filepath.Dir(path)
		if err := watcher.Add(dir); err != nil {
			logging.Debug("Not watching %s: %v", dir, err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return errors.New("no metadata directory could be watched")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				logging.Debug("Metadata changed (%s), invalidating snapshot", event.Op)
				s.Invalidate()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Metadata watcher error: %v", err)
		}
	}
}

func loadStatus(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}
