package loader

import (
	"math"
	"sync"
)

// Rect is an axis-aligned box in page coordinates (pixels).
type Rect struct {
	X, Y, Width, Height float64
}

// Area returns the box area, zero for empty boxes.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Intersect returns the overlap of r and o. The result has zero size when
// they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.X+r.Width, o.X+o.Width)
	y1 := math.Min(r.Y+r.Height, o.Y+o.Height)
	if x1 < x0 || y1 < y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// overlaps reports whether the boxes touch or overlap.
func (r Rect) overlaps(o Rect) bool {
	return r.X <= o.X+o.Width && o.X <= r.X+r.Width &&
		r.Y <= o.Y+o.Height && o.Y <= r.Y+r.Height
}

// Entry describes one intersection change for an observed target.
type Entry struct {
	IntersectionRatio float64
	IsIntersecting    bool
}

// Observation is a live registration with an Observer.
type Observation interface {
	// Disconnect stops callbacks. Calling it more than once is harmless.
	Disconnect()
}

// Observer delivers intersection entries for a target box.
type Observer interface {
	Observe(target Rect, rootMargin float64, cb func(Entry)) Observation
}

// Viewport is an Observer over a scrollable rectangle. Callbacks run on the
// goroutine that calls Observe, ScrollTo or Resize, outside the viewport's
// lock, and only when an observation's entry changes.
type Viewport struct {
	mu     sync.Mutex
	bounds Rect
	obs    map[*observation]struct{}
}

// NewViewport returns a viewport of the given size at the page origin.
func NewViewport(width, height float64) *Viewport {
	return &Viewport{
		bounds: Rect{Width: width, Height: height},
		obs:    make(map[*observation]struct{}),
	}
}

type observation struct {
	vp     *Viewport
	target Rect
	margin float64
	cb     func(Entry)
	last   *Entry
}

// Disconnect implements Observation.
func (o *observation) Disconnect() {
	o.vp.mu.Lock()
	delete(o.vp.obs, o)
	o.vp.mu.Unlock()
}

// Observe registers target and evaluates it immediately.
func (v *Viewport) Observe(target Rect, rootMargin float64, cb func(Entry)) Observation {
	o := &observation{vp: v, target: target, margin: rootMargin, cb: cb}

	v.mu.Lock()
	v.obs[o] = struct{}{}
	pending := v.evaluate([]*observation{o})
	v.mu.Unlock()

	deliver(pending)
	return o
}

// Bounds returns the current viewport rectangle.
func (v *Viewport) Bounds() Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bounds
}

// ScrollTo moves the viewport's top edge to y.
func (v *Viewport) ScrollTo(y float64) {
	v.mu.Lock()
	v.bounds.Y = y
	pending := v.evaluate(v.snapshot())
	v.mu.Unlock()

	deliver(pending)
}

// Resize changes the viewport size, keeping its position.
func (v *Viewport) Resize(width, height float64) {
	v.mu.Lock()
	v.bounds.Width = width
	v.bounds.Height = height
	pending := v.evaluate(v.snapshot())
	v.mu.Unlock()

	deliver(pending)
}

// Observing returns the number of connected observations.
func (v *Viewport) Observing() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.obs)
}

func (v *Viewport) snapshot() []*observation {
	list := make([]*observation, 0, len(v.obs))
	for o := range v.obs {
		list = append(list, o)
	}
	return list
}

type delivery struct {
	cb    func(Entry)
	entry Entry
}

// evaluate must be called with v.mu held.
func (v *Viewport) evaluate(list []*observation) []delivery {
	var out []delivery
	for _, o := range list {
		root := v.bounds
		root.Y -= o.margin
		root.Height += 2 * o.margin

		e := Entry{IsIntersecting: root.overlaps(o.target)}
		if area := o.target.Area(); area > 0 && e.IsIntersecting {
			e.IntersectionRatio = root.Intersect(o.target).Area() / area
		}

		if o.last != nil && *o.last == e {
			continue
		}
		o.last = &e
		out = append(out, delivery{cb: o.cb, entry: e})
	}
	return out
}

func deliver(list []delivery) {
	for _, d := range list {
		d.cb(d.entry)
	}
}
