package handlers

import (
	"net/http"
	"runtime"
	"time"

	"backdrop-gallery/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	MetadataPath  string `json:"metadataPath,omitempty"`
	MetadataError string `json:"metadataError,omitempty"`
	Images        int    `json:"images"`
	Categories    int    `json:"categories"`

	Transcoder       string `json:"transcoder"`
	TranscodeSlots   int    `json:"transcodeSlots"`
	TranscodesActive int    `json:"transcodesActive"`
	EventStore       bool   `json:"eventStore"`

	MemoryUsage      float64 `json:"memoryUsage,omitempty"`
	TranscodesPaused bool    `json:"transcodesPaused,omitempty"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// VersionResponse is the build info plus the runtime choices that affect
// downloads.
type VersionResponse struct {
	startup.BuildInfo
	Transcoder     string `json:"transcoder"`
	DownloadFormat string `json:"downloadFormat"`
}

// HealthCheck reports service health. A missing or unreadable metadata
// document degrades the service without failing the check.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:           statusHealthy,
		Version:          startup.Version,
		Uptime:           time.Since(h.startTime).Round(time.Second).String(),
		Categories:       h.categories.Len(),
		Transcoder:       h.engine,
		TranscodeSlots:   h.limiter.Size(),
		TranscodesActive: h.limiter.InUse(),
		EventStore:       h.events != nil,
		GoVersion:        runtime.Version(),
		NumCPU:           runtime.NumCPU(),
		NumGoroutine:     runtime.NumGoroutine(),
	}

	if h.memory != nil {
		response.MemoryUsage = h.memory.Usage()
		response.TranscodesPaused = h.memory.Paused()
	}

	meta, err := h.store.Current(r.Context())
	if err != nil {
		response.Status = statusDegraded
		response.MetadataError = err.Error()
	} else {
		response.Ready = true
		response.Images = meta.Len()
		if path, _, err := h.store.Source().Resolve(); err == nil {
			response.MetadataPath = path
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}

// LivenessCheck returns 200 while the process is serving requests.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when a metadata document can be found.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, _, err := h.store.Source().Resolve(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{"status": "not_ready"})
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{"status": "ready"})
}

// GetVersion returns version information about the application
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, VersionResponse{
		BuildInfo:      startup.GetBuildInfo(),
		Transcoder:     h.engine,
		DownloadFormat: string(h.flowConfig.Format),
	})
}
