package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"backdrop-gallery/internal/catalog"
	"backdrop-gallery/internal/handlers"
	"backdrop-gallery/internal/metadata"
	"backdrop-gallery/internal/startup"
	"backdrop-gallery/internal/transcode"
)

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	root := t.TempDir()
	imagesDir := filepath.Join(root, "public", "images")
	if err := os.MkdirAll(filepath.Join(imagesDir, "office"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(imagesDir, "office", "loft.jpg"), []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths := metadata.DefaultPaths(root)
	if err := os.MkdirAll(filepath.Dir(paths[0]), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `{"loft": {"filename": "office/loft.jpg", "title": "Loft", "category": "home-offices"}}`
	if err := os.WriteFile(paths[0], []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cats := catalog.DefaultCategories()
	store := metadata.NewStore(metadata.NewSource(paths...), catalog.NewEnricher(cats, catalog.SiteInfo{BaseURL: "https://example.test"}))
	trans, err := transcode.New(transcode.EngineImaging)
	if err != nil {
		t.Fatal(err)
	}
	config := &startup.Config{ImagesDir: imagesDir, Transcoder: transcode.EngineImaging, DownloadFormat: transcode.PNG}

	h := handlers.New(store, cats, trans, nil, nil, config)
	return setupRouter(h, imagesDir), imagesDir
}

func TestRouterRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/livez", http.StatusOK},
		{http.MethodHead, "/livez", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodGet, "/api/metadata", http.StatusOK},
		{http.MethodGet, "/api/categories", http.StatusOK},
		{http.MethodGet, "/api/categories/home-offices", http.StatusOK},
		{http.MethodGet, "/api/categories/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/download/missing", http.StatusNotFound},
		{http.MethodGet, "/api/stats", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/metadata", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/events", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, http.NoBody))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestImageServer(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/images/office/loft.jpg", http.StatusOK},
		{"/images/office/", http.StatusNotFound},
		{"/images/", http.StatusNotFound},
		{"/images/office/missing.jpg", http.StatusNotFound},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))
		if w.Code != tt.wantStatus {
			t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.wantStatus)
		}
		if tt.wantStatus == http.StatusOK {
			if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=86400" {
				t.Errorf("Cache-Control = %q", cc)
			}
			if w.Body.String() != "jpeg bytes" {
				t.Errorf("body = %q", w.Body.String())
			}
		}
	}
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer("0")
	if srv.ReadHeaderTimeout <= 0 || srv.WriteTimeout <= 0 {
		t.Error("metrics server must set timeouts")
	}

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("GET /metrics = %d", w.Code)
	}
}
