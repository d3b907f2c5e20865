package handlers

import (
	"context"
	"time"

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/catalog"
	"backdrop-gallery/internal/database"
	"backdrop-gallery/internal/download"
	"backdrop-gallery/internal/memory"
	"backdrop-gallery/internal/metadata"
	"backdrop-gallery/internal/startup"
	"backdrop-gallery/internal/transcode"
	"backdrop-gallery/internal/workers"

	"golang.org/x/sync/singleflight"
)

// EventStore is the persisted side of analytics, used by the stats endpoint.
type EventStore interface {
	Counts(ctx context.Context) ([]database.EventCount, error)
}

type Handlers struct {
	store      *metadata.Store
	categories *catalog.Categories
	transcoder transcode.Transcoder
	fetcher    download.Fetcher
	events     EventStore
	sink       analytics.Sink
	limiter    *workers.Limiter
	memory     *memory.Monitor
	transcodes singleflight.Group
	flowConfig download.Config
	engine     string
	startTime  time.Time
}

// New wires the handlers. events may be nil when the event store is
// disabled.
func New(store *metadata.Store, cats *catalog.Categories, trans transcode.Transcoder, events EventStore, sink analytics.Sink, config *startup.Config) *Handlers {
	return &Handlers{
		store:      store,
		categories: cats,
		transcoder: trans,
		fetcher:    download.NewDirFetcher(config.ImagesDir, imagesRoot),
		events:     events,
		sink:       analytics.OrNop(sink),
		limiter:    workers.NewLimiter(workers.ForCPU(0)),
		flowConfig: download.Config{
			ImagesRoot:     imagesRoot,
			MarketplaceURL: config.MarketplaceURL,
			Format:         config.DownloadFormat,
		},
		engine:    config.Transcoder,
		startTime: time.Now(),
	}
}

// imagesRoot is the URL prefix the asset tree is served under.
const imagesRoot = "images"

// SetMemoryMonitor makes free downloads wait while the monitor reports
// memory pressure.
func (h *Handlers) SetMemoryMonitor(m *memory.Monitor) {
	h.memory = m
}
