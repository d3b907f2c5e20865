// Package loader implements visibility-gated image loading.
//
// A Loader is one image instance in a gallery. When lazy, it registers a
// single observation with an Observer and waits for its bounds to come
// within RootMargin of the viewport; the first qualifying intersection
// moves it to StateInView, disconnects the observation and starts the
// fetch. The fetch outcome moves it to StateLoaded or StateErrored, and
// an errored instance can be retried with a cache-busting query
// parameter.
//
// State transitions:
//
//	pending --intersect--> in_view --ok--> loaded
//	                          |
//	                          +--fail--> errored --Retry--> in_view
//
// Viewport is a geometric Observer used by the CLI and by tests. It has
// no rendering surface; callers move it with ScrollTo and Resize.
package loader
