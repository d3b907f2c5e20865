package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/database"
	"backdrop-gallery/internal/logging"
)

const (
	maxEventBody  = 4 << 10
	maxLabelRunes = 256

	// maxVitalValue caps Web Vitals readings at one minute.
	maxVitalValue = 60000
)

// eventRule is the category an action must carry and the largest value it
// may report. Values are never negative.
type eventRule struct {
	category string
	maxValue int
}

// clientEvents are the events browsers may report, keyed by action. Anything
// else would let clients mint metric label values.
var clientEvents = map[string]eventRule{
	analytics.ActionDownload:    {category: analytics.CategoryEngagement, maxValue: 1},
	analytics.ActionImageLoaded: {category: analytics.CategoryPerformance},
	analytics.ActionImageError:  {category: analytics.CategoryPerformance},

	analytics.VitalLCP:  {category: analytics.CategoryWebVitals, maxValue: maxVitalValue},
	analytics.VitalCLS:  {category: analytics.CategoryWebVitals, maxValue: maxVitalValue},
	analytics.VitalFID:  {category: analytics.CategoryWebVitals, maxValue: maxVitalValue},
	analytics.VitalFCP:  {category: analytics.CategoryWebVitals, maxValue: maxVitalValue},
	analytics.VitalTTFB: {category: analytics.CategoryWebVitals, maxValue: maxVitalValue},
}

// StatsResponse lists recorded event counts.
type StatsResponse struct {
	Events []database.EventCount `json:"events"`
}

// RecordEvent accepts one analytics event from a client.
func (h *Handlers) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var e analytics.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		writeJSONError(w, "Invalid event", http.StatusBadRequest)
		return
	}

	rule, ok := clientEvents[e.Action]
	if !ok {
		writeJSONError(w, "Unknown action", http.StatusBadRequest)
		return
	}
	if e.Category == "" {
		e.Category = rule.category
	}
	if e.Category != rule.category {
		writeJSONError(w, "Category does not match action", http.StatusBadRequest)
		return
	}
	if e.Value < 0 || e.Value > rule.maxValue {
		writeJSONError(w, "Value out of range", http.StatusBadRequest)
		return
	}
	e.Label = truncateRunes(strings.TrimSpace(e.Label), maxLabelRunes)

	h.sink.Emit(r.Context(), e)
	w.WriteHeader(http.StatusNoContent)
}

// GetStats returns event counts from the event store.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeJSONError(w, "Event store disabled", http.StatusServiceUnavailable)
		return
	}

	counts, err := h.events.Counts(r.Context())
	if err != nil {
		logging.Error("Failed to read event counts: %v", err)
		writeJSONError(w, "Failed to read stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, StatsResponse{Events: counts})
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
