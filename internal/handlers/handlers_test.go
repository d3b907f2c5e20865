package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/catalog"
	"backdrop-gallery/internal/database"
	"backdrop-gallery/internal/memory"
	"backdrop-gallery/internal/metadata"
	"backdrop-gallery/internal/startup"
	"backdrop-gallery/internal/transcode"
	"backdrop-gallery/internal/workers"
)

const testMetadata = `{
  "loft": {"filename": "office/loft.jpg", "title": "Sunlit Loft", "category": "home-offices", "keywords": ["loft", "sunlight"]},
  "penthouse": {"filename": "penthouse.jpg", "title": "Penthouse", "category": "premium-4k", "isPremium": true, "price": 9, "gumroadPermalink": "penthouse4k"},
  "broken": {"filename": "broken.jpg", "category": "home-offices"}
}`

type recordingSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (s *recordingSink) Emit(_ context.Context, e analytics.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) all() []analytics.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]analytics.Event(nil), s.events...)
}

type fakeEventStore struct {
	counts []database.EventCount
	err    error
}

func (f *fakeEventStore) Counts(context.Context) ([]database.EventCount, error) {
	return f.counts, f.err
}

type testEnv struct {
	h       *Handlers
	root    string
	sink    *recordingSink
	docPath string
}

func writeJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		for y := 0; y < 6; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// setupHandlers builds handlers over a temp data directory. doc is written
// as the metadata document unless empty.
func setupHandlers(t *testing.T, doc string, events EventStore) *testEnv {
	t.Helper()

	root := t.TempDir()
	imagesDir := filepath.Join(root, "public", "images")
	writeJPEG(t, filepath.Join(imagesDir, "office", "loft.jpg"))
	if err := os.WriteFile(filepath.Join(imagesDir, "broken.jpg"), []byte("not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths := metadata.DefaultPaths(root)
	if doc != "" {
		if err := os.MkdirAll(filepath.Dir(paths[0]), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(paths[0], []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cats := catalog.DefaultCategories()
	enricher := catalog.NewEnricher(cats, catalog.SiteInfo{BaseURL: "https://example.test", Name: "Example", ImagesRoot: "images"})
	store := metadata.NewStore(metadata.NewSource(paths...), enricher)

	trans, err := transcode.New(transcode.EngineImaging)
	if err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	cfg := &startup.Config{
		ImagesDir:      imagesDir,
		MarketplaceURL: "https://market.test",
		Transcoder:     transcode.EngineImaging,
		DownloadFormat: transcode.PNG,
	}

	return &testEnv{
		h:       New(store, cats, trans, events, sink, cfg),
		root:    root,
		sink:    sink,
		docPath: paths[0],
	}
}

func serve(handler http.HandlerFunc, req *http.Request, vars map[string]string) *httptest.ResponseRecorder {
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestGetMetadata(t *testing.T) {
	env := setupHandlers(t, testMetadata, nil)

	w := serve(env.h.GetMetadata, httptest.NewRequest(http.MethodGet, "/api/metadata", http.NoBody), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", cc)
	}

	body := w.Body.String()
	iLoft, iPent, iBroken := strings.Index(body, `"loft"`), strings.Index(body, `"penthouse"`), strings.Index(body, `"broken"`)
	if iLoft < 0 || iPent < iLoft || iBroken < iPent {
		t.Errorf("keys not in document order: loft=%d penthouse=%d broken=%d", iLoft, iPent, iBroken)
	}

	var decoded map[string]catalog.ImageRecord
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	loft := decoded["loft"]
	if loft.Alt == "" || loft.ImageSchema == nil {
		t.Errorf("loft not enriched: %+v", loft)
	}
	if decoded["penthouse"].Price != "9" {
		t.Errorf("price = %q, want \"9\"", decoded["penthouse"].Price)
	}
}

func TestGetMetadataNotFound(t *testing.T) {
	env := setupHandlers(t, "", nil)

	w := serve(env.h.GetMetadata, httptest.NewRequest(http.MethodGet, "/api/metadata", http.NoBody), nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	var body metadataNotFound
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "Metadata file not found" || len(body.SearchedPaths) != 2 {
		t.Errorf("body = %+v", body)
	}
}

func TestGetMetadataMalformed(t *testing.T) {
	env := setupHandlers(t, `{"loft": [1, 2`, nil)

	w := serve(env.h.GetMetadata, httptest.NewRequest(http.MethodGet, "/api/metadata", http.NoBody), nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	var body metadataFailure
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "Failed to load metadata" || body.Details == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestListCategories(t *testing.T) {
	env := setupHandlers(t, testMetadata, nil)

	w := serve(env.h.ListCategories, httptest.NewRequest(http.MethodGet, "/api/categories", http.NoBody), nil)

	var cats []catalog.CategoryInfo
	if err := json.Unmarshal(w.Body.Bytes(), &cats); err != nil {
		t.Fatal(err)
	}
	if len(cats) != catalog.DefaultCategories().Len() {
		t.Errorf("got %d categories", len(cats))
	}
}

func TestGetCategory(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		slug       string
		wantStatus int
		wantKeys   []string
	}{
		{"images in order", testMetadata, "home-offices", http.StatusOK, []string{"loft", "broken"}},
		{"premium", testMetadata, "premium-4k", http.StatusOK, []string{"penthouse"}},
		{"empty category", testMetadata, "lobbies", http.StatusOK, []string{}},
		{"metadata missing", "", "home-offices", http.StatusOK, []string{}},
		{"unknown slug", testMetadata, "spaceships", http.StatusNotFound, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupHandlers(t, tt.doc, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/categories/"+tt.slug, http.NoBody)
			w := serve(env.h.GetCategory, req, map[string]string{"slug": tt.slug})

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantKeys == nil {
				return
			}

			var resp struct {
				Category catalog.CategoryInfo `json:"category"`
				Images   []struct {
					Key string `json:"key"`
				} `json:"images"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Images == nil {
				t.Fatal("images must encode as [] not null")
			}
			if resp.Category.Slug != tt.slug {
				t.Errorf("category = %q", resp.Category.Slug)
			}
			if len(resp.Images) != len(tt.wantKeys) {
				t.Fatalf("got %d images, want %d", len(resp.Images), len(tt.wantKeys))
			}
			for i, key := range tt.wantKeys {
				if resp.Images[i].Key != key {
					t.Errorf("images[%d] = %q, want %q", i, resp.Images[i].Key, key)
				}
			}
		})
	}
}

func TestDownloadConverted(t *testing.T) {
	tests := []struct {
		query    string
		mimeType string
		filename string
	}{
		{"", "image/png", "loft.png"},
		{"?format=tiff", "image/tiff", "loft.tiff"},
		{"?format=BMP", "image/bmp", "loft.bmp"},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			env := setupHandlers(t, testMetadata, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/download/loft"+tt.query, http.NoBody)
			w := serve(env.h.Download, req, map[string]string{"key": "loft"})

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.mimeType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.mimeType)
			}
			if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, tt.filename) {
				t.Errorf("Content-Disposition = %q, want filename %s", cd, tt.filename)
			}
			if tt.mimeType == "image/png" {
				img, err := png.Decode(w.Body)
				if err != nil {
					t.Fatalf("body is not a PNG: %v", err)
				}
				if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
					t.Errorf("bounds = %v, want 8x6", b)
				}
			}

			events := env.sink.all()
			if len(events) != 1 || events[0].Action != analytics.ActionDownload || events[0].Label != "Sunlit Loft" || events[0].Value != 0 {
				t.Errorf("events = %+v", events)
			}
		})
	}
}

// gatedTranscoder holds every transcode until release is closed.
type gatedTranscoder struct {
	inner   transcode.Transcoder
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newGatedTranscoder(inner transcode.Transcoder) *gatedTranscoder {
	return &gatedTranscoder{inner: inner, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedTranscoder) Transcode(ctx context.Context, data []byte, to transcode.Format) ([]byte, error) {
	g.mu.Lock()
	g.calls++
	if g.calls == 1 {
		close(g.started)
	}
	g.mu.Unlock()

	<-g.release
	return g.inner.Transcode(ctx, data, to)
}

func (g *gatedTranscoder) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestDownloadSharesConcurrentTranscode(t *testing.T) {
	env := setupHandlers(t, testMetadata, nil)
	if _, err := env.h.store.Current(context.Background()); err != nil {
		t.Fatal(err)
	}
	env.h.limiter = workers.NewLimiter(4)
	gate := newGatedTranscoder(env.h.transcoder)
	env.h.transcoder = gate

	download := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/download/loft", http.NoBody)
		return serve(env.h.Download, req, map[string]string{"key": "loft"})
	}

	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, 2)
	wg.Add(2)
	go func() { defer wg.Done(); results[0] = download() }()
	<-gate.started
	go func() { defer wg.Done(); results[1] = download() }()

	// Let the second request reach the in-flight transcode.
	time.Sleep(50 * time.Millisecond)
	close(gate.release)
	wg.Wait()

	if n := gate.count(); n != 1 {
		t.Errorf("transcoder called %d times for concurrent downloads, want 1", n)
	}
	for i, w := range results {
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d: %s", i, w.Code, w.Body.String())
		}
	}
	if results[0].Body.Len() == 0 || !bytes.Equal(results[0].Body.Bytes(), results[1].Body.Bytes()) {
		t.Error("concurrent downloads did not receive the same converted bytes")
	}

	// Results are shared only while in flight, never cached.
	if w := download(); w.Code != http.StatusOK {
		t.Fatalf("later request status = %d", w.Code)
	}
	if n := gate.count(); n != 2 {
		t.Errorf("transcoder called %d times after a later download, want 2", n)
	}
}

func TestDownloadFallbackRedirectsToOriginal(t *testing.T) {
	env := setupHandlers(t, testMetadata, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/download/broken", http.NoBody)
	w := serve(env.h.Download, req, map[string]string{"key": "broken"})

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/images/broken.jpg" {
		t.Errorf("Location = %q", loc)
	}
}

func TestDownloadPremiumRedirectsToPurchase(t *testing.T) {
	env := setupHandlers(t, testMetadata, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/download/penthouse", http.NoBody)
	w := serve(env.h.Download, req, map[string]string{"key": "penthouse"})

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://market.test/l/penthouse4k" {
		t.Errorf("Location = %q", loc)
	}
	events := env.sink.all()
	if len(events) != 1 || events[0].Value != 1 {
		t.Errorf("events = %+v, want one premium download", events)
	}
}

func TestDownloadErrors(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		key        string
		query      string
		wantStatus int
	}{
		{"unknown key", testMetadata, "nope", "", http.StatusNotFound},
		{"bad format", testMetadata, "loft", "?format=jpeg", http.StatusBadRequest},
		{"metadata missing", "", "loft", "", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupHandlers(t, tt.doc, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/download/"+tt.key+tt.query, http.NoBody)
			w := serve(env.h.Download, req, map[string]string{"key": tt.key})

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if len(env.sink.all()) != 0 {
				t.Error("rejected downloads must not emit events")
			}
		})
	}
}

func TestDownloadCancelledWhileQueued(t *testing.T) {
	env := setupHandlers(t, testMetadata, nil)
	if _, err := env.h.store.Current(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < env.h.limiter.Size(); i++ {
		if err := env.h.limiter.Acquire(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/download/loft", http.NoBody).WithContext(ctx)
	w := serve(env.h.Download, req, map[string]string{"key": "loft"})

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestDownloadWaitsOnMemoryPressure(t *testing.T) {
	env := setupHandlers(t, testMetadata, nil)
	if _, err := env.h.store.Current(context.Background()); err != nil {
		t.Fatal(err)
	}

	// A one-byte limit puts the monitor under pressure on its first sample.
	monitor := memory.NewMonitor(memory.Config{
		MemoryLimitBytes: 1,
		ResumeWaterMark:  0.7,
		PauseWaterMark:   0.85,
		CheckInterval:    time.Millisecond,
	})
	monitor.Start()
	t.Cleanup(monitor.Stop)
	env.h.SetMemoryMonitor(monitor)

	deadline := time.Now().Add(time.Second)
	for !monitor.Paused() {
		if time.Now().After(deadline) {
			t.Fatal("monitor never paused")
		}
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/download/loft", http.NoBody).WithContext(ctx)
	w := serve(env.h.Download, req, map[string]string{"key": "loft"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("free download status = %d, want 503", w.Code)
	}
	if env.h.limiter.InUse() != 0 {
		t.Errorf("limiter slot leaked: %d in use", env.h.limiter.InUse())
	}

	// Premium downloads never transcode and are not held back.
	req = httptest.NewRequest(http.MethodGet, "/api/download/penthouse", http.NoBody)
	w = serve(env.h.Download, req, map[string]string{"key": "penthouse"})
	if w.Code != http.StatusSeeOther {
		t.Errorf("premium status = %d, want 303", w.Code)
	}

	w = serve(env.h.HealthCheck, httptest.NewRequest(http.MethodGet, "/health", http.NoBody), nil)
	var health HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if !health.TranscodesPaused {
		t.Error("health does not report paused transcodes")
	}
}

func TestResponseSaverLinkAfterCommit(t *testing.T) {
	w := httptest.NewRecorder()
	s := &responseSaver{w: w, r: httptest.NewRequest(http.MethodGet, "/", http.NoBody), mimeType: "image/png"}

	if err := s.Save(context.Background(), "home office.png", []byte("png")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveLink(context.Background(), "/images/x.jpg", "x.jpg"); !errors.Is(err, errResponseCommitted) {
		t.Errorf("SaveLink after Save = %v, want errResponseCommitted", err)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="home office.png"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestRecordEvent(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLabel  string
	}{
		{"loaded", `{"action":"image_loaded","category":"performance","label":"loft.jpg"}`, http.StatusNoContent, "loft.jpg"},
		{"category defaulted", `{"action":"download","label":" Loft "}`, http.StatusNoContent, "Loft"},
		{"long label truncated", `{"action":"image_error","label":"` + strings.Repeat("é", 300) + `"}`, http.StatusNoContent, strings.Repeat("é", maxLabelRunes)},
		{"unknown action", `{"action":"purchase"}`, http.StatusBadRequest, ""},
		{"category mismatch", `{"action":"download","category":"performance"}`, http.StatusBadRequest, ""},
		{"unknown field", `{"action":"download","extra":1}`, http.StatusBadRequest, ""},
		{"invalid json", `{`, http.StatusBadRequest, ""},
		{"download with count", `{"action":"download","label":"Loft","value":1}`, http.StatusNoContent, "Loft"},
		{"download value too large", `{"action":"download","value":2}`, http.StatusBadRequest, ""},
		{"negative value", `{"action":"download","value":-1}`, http.StatusBadRequest, ""},
		{"loaded with value", `{"action":"image_loaded","value":5}`, http.StatusBadRequest, ""},
		{"web vital", `{"action":"LCP","category":"web_vitals","label":"v3-123","value":2400}`, http.StatusNoContent, "v3-123"},
		{"scaled layout shift", `{"action":"CLS","label":"v3-456","value":87}`, http.StatusNoContent, "v3-456"},
		{"web vital wrong category", `{"action":"LCP","category":"performance","value":2400}`, http.StatusBadRequest, ""},
		{"web vital out of range", `{"action":"TTFB","category":"web_vitals","value":600000}`, http.StatusBadRequest, ""},
		{"unknown vital", `{"action":"XYZ","category":"web_vitals"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupHandlers(t, testMetadata, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(tt.body))
			w := serve(env.h.RecordEvent, req, nil)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			events := env.sink.all()
			if tt.wantStatus != http.StatusNoContent {
				if len(events) != 0 {
					t.Errorf("rejected event was emitted: %+v", events)
				}
				return
			}
			if len(events) != 1 || events[0].Label != tt.wantLabel || events[0].Category == "" {
				t.Errorf("events = %+v", events)
			}
		})
	}
}

func TestGetStats(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		env := setupHandlers(t, testMetadata, nil)
		w := serve(env.h.GetStats, httptest.NewRequest(http.MethodGet, "/api/stats", http.NoBody), nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
	})

	t.Run("counts", func(t *testing.T) {
		store := &fakeEventStore{counts: []database.EventCount{{Action: "download", Label: "Loft", Count: 3, Value: 0}}}
		env := setupHandlers(t, testMetadata, store)
		w := serve(env.h.GetStats, httptest.NewRequest(http.MethodGet, "/api/stats", http.NoBody), nil)

		var resp StatsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Events) != 1 || resp.Events[0].Count != 3 {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("store error", func(t *testing.T) {
		env := setupHandlers(t, testMetadata, &fakeEventStore{err: errors.New("disk gone")})
		w := serve(env.h.GetStats, httptest.NewRequest(http.MethodGet, "/api/stats", http.NoBody), nil)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})
}

func TestHealthChecks(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		env := setupHandlers(t, testMetadata, nil)

		w := serve(env.h.HealthCheck, httptest.NewRequest(http.MethodGet, "/health", http.NoBody), nil)
		var resp HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != statusHealthy || !resp.Ready || resp.Images != 3 || resp.MetadataPath != env.docPath {
			t.Errorf("health = %+v", resp)
		}
		if resp.Transcoder != transcode.EngineImaging || resp.TranscodeSlots < 1 {
			t.Errorf("transcoder fields = %q/%d", resp.Transcoder, resp.TranscodeSlots)
		}

		if w := serve(env.h.ReadinessCheck, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody), nil); w.Code != http.StatusOK {
			t.Errorf("readyz = %d, want 200", w.Code)
		}
	})

	t.Run("no metadata", func(t *testing.T) {
		env := setupHandlers(t, "", nil)

		w := serve(env.h.HealthCheck, httptest.NewRequest(http.MethodGet, "/health", http.NoBody), nil)
		var resp HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != statusDegraded || resp.Ready || resp.MetadataError == "" {
			t.Errorf("health = %+v", resp)
		}

		if w := serve(env.h.ReadinessCheck, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody), nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("readyz = %d, want 503", w.Code)
		}
	})

	t.Run("liveness head", func(t *testing.T) {
		env := setupHandlers(t, "", nil)
		w := serve(env.h.LivenessCheck, httptest.NewRequest(http.MethodHead, "/livez", http.NoBody), nil)
		if w.Code != http.StatusOK || w.Body.Len() != 0 {
			t.Errorf("HEAD /livez = %d with %d body bytes", w.Code, w.Body.Len())
		}
	})
}

func TestGetVersion(t *testing.T) {
	env := setupHandlers(t, "", nil)

	w := serve(env.h.GetVersion, httptest.NewRequest(http.MethodGet, "/version", http.NoBody), nil)

	var resp VersionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Version != startup.Version || resp.DownloadFormat != "png" || resp.Transcoder != transcode.EngineImaging {
		t.Errorf("version = %+v", resp)
	}
}
