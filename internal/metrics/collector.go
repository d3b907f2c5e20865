package metrics

import (
	"sync"
	"time"

	"backdrop-gallery/internal/logging"
)

// StatsProvider reports the current catalog size per category.
type StatsProvider interface {
	CategoryCounts() map[string]int
}

// Collector periodically copies per-category image counts into the
// backdrops_catalog_images gauge. Categories that disappear from the
// catalog have their series removed rather than left at a stale value.
type Collector struct {
	provider StatsProvider
	interval time.Duration

	seen     map[string]struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		seen:     make(map[string]struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start collects once and then every interval until Stop.
func (c *Collector) Start() {
	go c.run()
}

// Stop ends collection and waits for the loop to exit. It must only be
// called after Start; repeated calls are fine.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Collector) run() {
	defer close(c.done)
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stop:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	counts := c.provider.CategoryCounts()
	total := 0
	for category, n := range counts {
		CatalogImages.WithLabelValues(category).Set(float64(n))
		c.seen[category] = struct{}{}
		total += n
	}
	for category := range c.seen {
		if _, ok := counts[category]; !ok {
			CatalogImages.DeleteLabelValues(category)
			delete(c.seen, category)
		}
	}

	logging.Debug("Catalog gauges updated: %d images in %d categories", total, len(counts))
}
