package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"backdrop-gallery/internal/catalog"
	"backdrop-gallery/internal/logging"
	"backdrop-gallery/internal/metadata"
)

// metadataNotFound is the 404 body when no metadata document exists.
type metadataNotFound struct {
	Error         string   `json:"error"`
	SearchedPaths []string `json:"searchedPaths"`
}

// metadataFailure is the 500 body for unreadable or malformed documents.
type metadataFailure struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// CategoryResponse is a category with its images in metadata order.
type CategoryResponse struct {
	Category catalog.CategoryInfo `json:"category"`
	Images   []catalog.Entry      `json:"images"`
}

// GetMetadata serves the enriched metadata mapping in document order.
func (h *Handlers) GetMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.Current(r.Context())
	if err != nil {
		var nf *metadata.NotFoundError
		if errors.As(err, &nf) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, metadataNotFound{Error: "Metadata file not found", SearchedPaths: nf.Searched})
			return
		}

		logging.Error("Failed to load metadata: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, metadataFailure{Error: "Failed to load metadata", Details: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, meta)
}

// ListCategories returns the category table.
func (h *Handlers) ListCategories(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.categories.All())
}

// GetCategory returns one category and its images. Metadata that cannot be
// loaded yields an empty image list rather than an error.
func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	info, ok := h.categories.Lookup(slug)
	if !ok {
		writeJSONError(w, "Category not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, CategoryResponse{
		Category: info,
		Images:   h.store.Images(r.Context(), slug),
	})
}
