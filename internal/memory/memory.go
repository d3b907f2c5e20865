package memory

import (
	"context"
	"errors"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"backdrop-gallery/internal/logging"
	"backdrop-gallery/internal/metrics"
)

// ErrStopped is returned by Wait once the monitor has been stopped.
var ErrStopped = errors.New("memory monitor stopped")

// Config holds the transcode backpressure thresholds.
type Config struct {
	// MemoryLimitBytes is the limit usage is measured against. Zero uses
	// GOMEMLIMIT, and with neither set the monitor never pauses.
	MemoryLimitBytes int64

	// ResumeWaterMark is the usage ratio below which paused transcodes
	// resume.
	ResumeWaterMark float64

	// PauseWaterMark is the usage ratio at which new transcodes wait.
	PauseWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns the thresholds used by the server.
func DefaultConfig() Config {
	return Config{
		ResumeWaterMark: 0.70,
		PauseWaterMark:  0.85,
		CheckInterval:   2 * time.Second,
	}
}

// Monitor samples heap usage and holds back new transcodes while usage is
// above the pause mark.
type Monitor struct {
	config Config
	limit  int64

	// readAlloc is swapped in tests.
	readAlloc func() uint64

	mu       sync.RWMutex
	current  uint64
	paused   bool
	resumed  chan struct{}
	stopOnce sync.Once
	stop     chan struct{}
}

// NewMonitor creates a monitor. Call Start to begin sampling.
func NewMonitor(config Config) *Monitor {
	limit := config.MemoryLimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}
	if limit == 0 {
		logging.Info("Memory monitor: no memory limit configured, transcode backpressure disabled")
	} else {
		logging.Debug("Memory monitor limit: %s (pause at %.0f%%, resume below %.0f%%)",
			formatBytes(limit), config.PauseWaterMark*100, config.ResumeWaterMark*100)
	}

	return &Monitor{
		config:    config,
		limit:     limit,
		readAlloc: heapAlloc,
		resumed:   make(chan struct{}),
		stop:      make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Start begins periodic sampling. It is a no-op without a limit.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.loop()
}

// Stop ends sampling and releases every waiter with ErrStopped.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) check() {
	alloc := m.readAlloc()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc

	switch {
	case !m.paused && usage >= m.config.PauseWaterMark:
		logging.Warn("Memory at %.1f%% of limit, pausing new transcodes", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryPausesTotal.Inc()
		go runtime.GC()
	case m.paused && usage < m.config.ResumeWaterMark:
		logging.Info("Memory back to %.1f%% of limit, resuming transcodes", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resumed)
		m.resumed = make(chan struct{})
	}
}

// Wait returns immediately unless transcodes are paused, in which case it
// blocks until usage recovers, ctx ends, or the monitor stops.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.RLock()
	if !m.paused {
		m.mu.RUnlock()
		return nil
	}
	resumed := m.resumed
	m.mu.RUnlock()

	select {
	case <-resumed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stop:
		return ErrStopped
	}
}

// Paused reports whether new transcodes are being held back.
func (m *Monitor) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Usage returns the last sampled heap usage as a fraction of the limit,
// or 0 without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}

// Limit returns the limit usage is measured against.
func (m *Monitor) Limit() int64 {
	return m.limit
}
