// Package workers sizes and bounds concurrent CPU-heavy work such as
// server-side transcodes.
//
// Worker counts come from GOMAXPROCS, which the Go runtime sets from the
// container CPU limit, rather than runtime.NumCPU, which reports host CPUs.
// Operators can pin the count with the TRANSCODE_WORKERS environment
// variable.
package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// EnvOverride is the environment variable that pins the worker count.
const EnvOverride = "TRANSCODE_WORKERS"

// Count returns a worker count of multiplier per available CPU, at least
// one and at most limit (0 means no limit). A positive integer in
// TRANSCODE_WORKERS replaces the computed value, still capped by limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns one worker per CPU, capped by limit.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns two workers per CPU, capped by limit.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// Limiter bounds the number of concurrent holders.
type Limiter struct {
	sem   *semaphore.Weighted
	size  int
	inUse atomic.Int64
}

// NewLimiter returns a limiter admitting n holders (at least one).
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Acquire waits for a free slot or for ctx to end.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inUse.Add(1)
	return nil
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.inUse.Add(-1)
	l.sem.Release(1)
}

// Size returns the number of slots.
func (l *Limiter) Size() int {
	return l.size
}

// InUse returns the number of slots currently held.
func (l *Limiter) InUse() int {
	return int(l.inUse.Load())
}
