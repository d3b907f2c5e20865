package loader

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/catalog"
	"backdrop-gallery/internal/logging"
	"backdrop-gallery/internal/metrics"
)

// State is the lifecycle position of a Loader.
type State int

// Loader states.
const (
	StatePending State = iota
	StateInView
	StateLoaded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInView:
		return "in_view"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Errors returned by Loader methods.
var (
	ErrNotErrored     = errors.New("loader: retry is only allowed from the errored state")
	ErrNotMounted     = errors.New("loader: not mounted")
	ErrAlreadyMounted = errors.New("loader: already mounted")
	ErrNoObserver     = errors.New("loader: lazy loading needs an observer")
)

// Options controls visibility gating.
type Options struct {
	// Lazy defers the fetch until the bounds intersect the viewport.
	Lazy bool
	// RootMargin expands the viewport vertically, in pixels.
	RootMargin float64
	// Threshold is the minimum visible fraction of the bounds.
	Threshold float64
	// Bounds is the image container's layout box.
	Bounds Rect
}

// DefaultOptions returns lazy loading with a 50px margin and a 1% threshold.
func DefaultOptions() Options {
	return Options{Lazy: true, RootMargin: 50, Threshold: 0.01}
}

// Deps are the collaborators of a Loader.
type Deps struct {
	Observer Observer
	Fetcher  Fetcher
	Sink     analytics.Sink
	// BaseURL is prepended to the asset path, e.g. http://localhost:8080.
	BaseURL string
	// ImagesRoot is the asset path prefix; "images" when empty.
	ImagesRoot string
}

// Loader drives one image instance through its states.
type Loader struct {
	rec  catalog.ImageRecord
	opts Options
	deps Deps
	url  string

	mu       sync.Mutex
	state    State
	mounted  bool
	obs      Observation
	attempts int
	gen      int
	lastErr  error

	wg sync.WaitGroup
}

// New returns an unmounted loader for rec.
func New(rec catalog.ImageRecord, opts Options, deps Deps) *Loader {
	if deps.Fetcher == nil {
		deps.Fetcher = NewHTTPFetcher(0)
	}
	deps.Sink = analytics.OrNop(deps.Sink)
	return &Loader{
		rec:  rec,
		opts: opts,
		deps: deps,
		url:  strings.TrimRight(deps.BaseURL, "/") + catalog.AssetPath(deps.ImagesRoot, rec.Filename),
	}
}

// Record returns the image record.
func (l *Loader) Record() catalog.ImageRecord {
	return l.rec
}

// Alt returns the record's alt text, or a generic fallback when it has none.
func (l *Loader) Alt() string {
	if l.rec.Alt != "" {
		return l.rec.Alt
	}
	return l.rec.DisplayTitle() + " - " + catalog.DefaultDescription
}

// State returns the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the last fetch error, if the loader is errored.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateErrored {
		return nil
	}
	return l.lastErr
}

// ShowPlaceholder reports whether the placeholder should be displayed.
func (l *Loader) ShowPlaceholder() bool {
	s := l.State()
	return s == StatePending || s == StateInView
}

// Attempts returns the number of retries issued.
func (l *Loader) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// URL returns the asset URL of the current attempt.
func (l *Loader) URL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.urlLocked()
}

func (l *Loader) urlLocked() string {
	if l.attempts == 0 {
		return l.url
	}
	return l.url + "?retry=" + strconv.Itoa(l.attempts)
}

// Mount attaches the loader. A non-lazy loader is in view when Mount
// returns; a lazy one registers exactly one observation.
func (l *Loader) Mount(ctx context.Context) error {
	l.mu.Lock()
	if l.mounted {
		l.mu.Unlock()
		return ErrAlreadyMounted
	}
	if l.opts.Lazy && l.deps.Observer == nil {
		l.mu.Unlock()
		return ErrNoObserver
	}
	l.mounted = true

	if !l.opts.Lazy {
		l.enterInViewLocked(ctx)
		l.mu.Unlock()
		return nil
	}

	l.setStateLocked(StatePending)
	gen := l.gen
	l.mu.Unlock()

	// The observer may call back before Observe returns.
	obs := l.deps.Observer.Observe(l.opts.Bounds, l.opts.RootMargin, func(e Entry) {
		l.onIntersect(ctx, gen, e)
	})

	l.mu.Lock()
	if !l.mounted || l.gen != gen || l.state != StatePending {
		l.mu.Unlock()
		obs.Disconnect()
		return nil
	}
	l.obs = obs
	l.mu.Unlock()
	return nil
}

// Unmount detaches the loader. The observation, if any, is disconnected and
// a fetch still in flight is ignored when it completes.
func (l *Loader) Unmount() {
	l.mu.Lock()
	obs := l.obs
	l.obs = nil
	l.mounted = false
	l.gen++
	l.mu.Unlock()

	if obs != nil {
		obs.Disconnect()
	}
}

// Retry re-requests the asset with a cache-busting parameter.
func (l *Loader) Retry(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.mounted {
		return ErrNotMounted
	}
	if l.state != StateErrored {
		return ErrNotErrored
	}
	l.attempts++
	metrics.LoaderRetriesTotal.Inc()
	logging.Debug("Retrying %s (attempt %d)", l.rec.Filename, l.attempts)
	l.enterInViewLocked(ctx)
	return nil
}

// Wait blocks until every fetch started so far has finished.
func (l *Loader) Wait() {
	l.wg.Wait()
}

func (l *Loader) onIntersect(ctx context.Context, gen int, e Entry) {
	if !e.IsIntersecting || e.IntersectionRatio < l.opts.Threshold {
		return
	}

	l.mu.Lock()
	if !l.mounted || l.gen != gen || l.state != StatePending {
		l.mu.Unlock()
		return
	}
	obs := l.obs
	l.obs = nil
	l.enterInViewLocked(ctx)
	l.mu.Unlock()

	if obs != nil {
		obs.Disconnect()
	}
}

// enterInViewLocked starts a fetch of the current URL.
func (l *Loader) enterInViewLocked(ctx context.Context) {
	l.setStateLocked(StateInView)
	l.gen++
	gen := l.gen
	url := l.urlLocked()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		err := l.deps.Fetcher.Fetch(ctx, url)
		l.finish(ctx, gen, err)
	}()
}

func (l *Loader) finish(ctx context.Context, gen int, err error) {
	l.mu.Lock()
	if !l.mounted || l.gen != gen {
		l.mu.Unlock()
		logging.Debug("Discarding late result for %s", l.rec.Filename)
		return
	}

	event := analytics.Event{
		Category: analytics.CategoryPerformance,
		Label:    l.rec.Filename,
	}
	if err != nil {
		l.lastErr = err
		l.setStateLocked(StateErrored)
		event.Action = analytics.ActionImageError
	} else {
		l.lastErr = nil
		l.setStateLocked(StateLoaded)
		event.Action = analytics.ActionImageLoaded
	}
	l.mu.Unlock()

	if err != nil {
		logging.Debug("Image %s failed to load: %v", l.rec.Filename, err)
	}
	l.deps.Sink.Emit(ctx, event)
}

func (l *Loader) setStateLocked(s State) {
	l.state = s
	metrics.LoaderTransitionsTotal.WithLabelValues(s.String()).Inc()
}
