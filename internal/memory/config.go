package memory

import (
	"errors"
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"backdrop-gallery/internal/logging"
)

const (
	// DefaultMemoryRatio is the share of the container limit given to the Go
	// heap. The rest is left for libvips, decoded pixel buffers that live
	// outside the heap, and goroutine stacks.
	DefaultMemoryRatio = 0.80

	// cgroupUnlimited is what cgroup v1 reports for "no limit" (page-aligned
	// MaxInt64).
	cgroupUnlimited = math.MaxInt64 &^ 4095
)

// Sources reported in ConfigResult.Source.
const (
	SourceGoMemLimit  = "GOMEMLIMIT"
	SourceMemoryLimit = "MEMORY_LIMIT"
	SourceCgroup      = "cgroup"
	SourceNone        = "none"
)

// DefaultCgroupPaths are the cgroup v2 and v1 files holding the container
// memory limit.
var DefaultCgroupPaths = []string{
	"/sys/fs/cgroup/memory.max",
	"/sys/fs/cgroup/memory/memory.limit_in_bytes",
}

var errNoLimit = errors.New("no memory limit")

// ConfigResult describes what ConfigureFromEnv did.
type ConfigResult struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets GOMEMLIMIT from the container memory limit. Call it
// early in main, before images are decoded.
//
// An explicit GOMEMLIMIT wins. Otherwise the limit comes from MEMORY_LIMIT
// (bytes, usually injected through the Kubernetes Downward API) or, failing
// that, from the cgroup filesystem. MEMORY_RATIO (0 < r <= 1) overrides
// DefaultMemoryRatio.
func ConfigureFromEnv() ConfigResult {
	return configure(os.Getenv, DefaultCgroupPaths)
}

func configure(getenv func(string) string, cgroupPaths []string) ConfigResult {
	if v := getenv("GOMEMLIMIT"); v != "" {
		result := ConfigResult{Source: SourceGoMemLimit}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	limit, source := int64(0), SourceNone
	if v := getenv("MEMORY_LIMIT"); v != "" {
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed <= 0 {
			logging.Warn("Ignoring invalid MEMORY_LIMIT %q", v)
		} else {
			limit, source = parsed, SourceMemoryLimit
		}
	}
	if limit == 0 {
		if parsed, err := readCgroupLimit(cgroupPaths); err == nil {
			limit, source = parsed, SourceCgroup
		}
	}
	if limit == 0 {
		logging.Debug("No container memory limit found, GOMEMLIMIT left unset")
		return ConfigResult{Source: SourceNone}
	}

	ratio := parseRatio(getenv("MEMORY_RATIO"))
	goMemLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s from %s)",
		formatBytes(goMemLimit), ratio*100, formatBytes(limit), source)

	return ConfigResult{
		Configured:     true,
		Source:         source,
		ContainerLimit: limit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func parseRatio(v string) float64 {
	if v == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(v, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", v, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// readCgroupLimit returns the first finite limit found in paths.
func readCgroupLimit(paths []string) (int64, error) {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		v := strings.TrimSpace(string(data))
		if v == "" || v == "max" {
			continue
		}
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil || limit <= 0 || limit >= cgroupUnlimited {
			continue
		}
		return limit, nil
	}
	return 0, errNoLimit
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
