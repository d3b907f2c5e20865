// Package memory keeps image transcoding inside the container's memory
// budget.
//
// # Configuration
//
// Go reads the cgroup CPU quota for GOMAXPROCS but never the memory limit,
// so [ConfigureFromEnv] sets GOMEMLIMIT explicitly. Call it first in main:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ...
//	}
//
// The limit is taken from, in order:
//
//   - GOMEMLIMIT, when already set, which is left untouched
//   - MEMORY_LIMIT, a byte count, typically from the Downward API
//   - the cgroup v2 memory.max or cgroup v1 memory.limit_in_bytes file
//
// MEMORY_RATIO picks the share of that limit given to the Go heap, 0.80 by
// default. libvips allocates outside the Go heap, so deployments using the
// vips transcoder may want a lower ratio:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.70"
//
// GOMEMLIMIT is a soft limit. The runtime collects more aggressively as the
// heap approaches it, but a burst of large decodes can still overshoot.
//
// # Backpressure
//
// [Monitor] samples heap usage and pauses new server-side transcodes while
// usage stays above the pause mark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if err := monitor.Wait(ctx); err != nil {
//	    return err // request cancelled or shutting down
//	}
//	// decode and encode
//
// Usage and pause state are exported as backdrops_memory_* metrics.
package memory
