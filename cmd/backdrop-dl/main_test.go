package main

import (
	"bytes"
	"encoding/json"
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

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/loader"
)

const testListing = `{
  "category": {"slug": "home-offices", "name": "Home Offices"},
  "images": [
    {"key": "loft", "filename": "loft.jpg", "title": "Loft", "category": "home-offices"},
    {"key": "flaky", "filename": "flaky.jpg", "title": "Flaky", "category": "home-offices"},
    {"key": "gone", "filename": "gone.jpg", "category": "home-offices"},
    {"key": "tower", "filename": "tower.jpg", "title": "Tower", "category": "home-offices", "isPremium": true, "price": "12"}
  ]
}`

const testMetadataDoc = `{
  "loft": {"filename": "loft.jpg", "title": "Loft", "category": "home-offices"},
  "tower": {"filename": "tower.jpg", "title": "Tower", "category": "premium-4k", "isPremium": true, "gumroadPermalink": "tower4k"}
}`

type fakeGallery struct {
	mu     sync.Mutex
	hits   map[string]int
	events []analytics.Event
	jpeg   []byte
}

func newFakeGallery(t *testing.T) (*fakeGallery, *httptest.Server) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xAA
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}

	g := &fakeGallery{hits: make(map[string]int), jpeg: buf.Bytes()}
	srv := httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(srv.Close)
	return g, srv
}

func (g *fakeGallery) serve(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.hits[r.URL.Path]++
	hits := g.hits[r.URL.Path]
	g.mu.Unlock()

	switch r.URL.Path {
	case "/api/categories/home-offices":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testListing))
	case "/api/categories/missing":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Category not found"}`))
	case "/api/metadata":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testMetadataDoc))
	case "/api/events":
		var e analytics.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		g.mu.Lock()
		g.events = append(g.events, e)
		g.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	case "/images/loft.jpg", "/images/tower.jpg":
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(g.jpeg)
	case "/images/flaky.jpg":
		if r.URL.Query().Get("retry") == "" || hits < 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(g.jpeg)
	default:
		http.NotFound(w, r)
	}
}

func (g *fakeGallery) recordedEvents() []analytics.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]analytics.Event(nil), g.events...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGridLayout(t *testing.T) {
	g := gridLayout{Columns: 3, TileWidth: 100, TileHeight: 50, Gap: 10}

	tests := []struct {
		i    int
		want loader.Rect
	}{
		{0, loader.Rect{X: 0, Y: 0, Width: 100, Height: 50}},
		{2, loader.Rect{X: 220, Y: 0, Width: 100, Height: 50}},
		{4, loader.Rect{X: 110, Y: 60, Width: 100, Height: 50}},
	}
	for _, tt := range tests {
		if got := g.Rect(tt.i); got != tt.want {
			t.Errorf("Rect(%d) = %+v, want %+v", tt.i, got, tt.want)
		}
	}

	if w := g.Width(); w != 320 {
		t.Errorf("Width() = %v, want 320", w)
	}
	heights := map[int]float64{0: 0, 1: 50, 3: 50, 4: 110, 7: 170}
	for n, want := range heights {
		if got := g.Height(n); got != want {
			t.Errorf("Height(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestListCommand(t *testing.T) {
	_, srv := newFakeGallery(t)

	out, err := runCLI(t, "list", "home-offices", "--server", srv.URL)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	for _, want := range []string{"Home Offices (4 images)", "loft", "Professional virtual background", "yes ($12)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestListUnknownCategory(t *testing.T) {
	_, srv := newFakeGallery(t)

	_, err := runCLI(t, "list", "missing", "--server", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "Category not found") {
		t.Errorf("err = %v, want server message", err)
	}
}

func TestCheckerLazyLoadsAndRetries(t *testing.T) {
	g, srv := newFakeGallery(t)
	client := newAPIClient(srv.URL, 0)

	listing, err := client.category(t.Context(), "home-offices")
	if err != nil {
		t.Fatal(err)
	}

	c := &checker{
		layout:         gridLayout{Columns: 1, TileWidth: 400, TileHeight: 225, Gap: 16},
		viewportHeight: 300,
		retries:        2,
		fetcher:        loader.NewHTTPFetcher(0),
		sink:           eventReporter{client: client},
		baseURL:        srv.URL,
	}

	res, err := c.run(t.Context(), listing.Images)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}

	if res.Loaded != 3 || len(res.Errored) != 1 || res.Pending != 0 {
		t.Fatalf("result = %d loaded, %d errored, %d pending", res.Loaded, len(res.Errored), res.Pending)
	}
	if got := res.Errored[0].Record().Filename; got != "gone.jpg" {
		t.Errorf("errored = %s, want gone.jpg", got)
	}
	if got := res.Errored[0].Attempts(); got != 2 {
		t.Errorf("gone.jpg attempts = %d, want 2", got)
	}

	g.mu.Lock()
	towerHits := g.hits["/images/tower.jpg"]
	g.mu.Unlock()
	if towerHits != 1 {
		t.Errorf("tower.jpg fetched %d times, want exactly once after scrolling", towerHits)
	}

	var loaded, errored int
	for _, e := range g.recordedEvents() {
		switch e.Action {
		case analytics.ActionImageLoaded:
			loaded++
		case analytics.ActionImageError:
			errored++
		}
	}
	// flaky fails once; gone fails on the first load and both retries.
	if loaded != 3 || errored != 4 {
		t.Errorf("reported %d loaded / %d errored events, want 3 / 4", loaded, errored)
	}
}

func TestCheckCommandFailsOnErrors(t *testing.T) {
	_, srv := newFakeGallery(t)

	out, err := runCLI(t, "check", "home-offices", "--server", srv.URL, "--retries", "1", "--viewport-height", "200")
	if err == nil {
		t.Fatal("expected an error when an image stays errored")
	}
	if !strings.Contains(out, "FAIL gone.jpg") || !strings.Contains(out, "3 loaded, 1 errored, 0 pending") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCheckCommandValidatesFlags(t *testing.T) {
	_, err := runCLI(t, "check", "home-offices", "--columns", "0")
	if err == nil {
		t.Error("expected --columns 0 to be rejected")
	}
}

func TestGetCommand(t *testing.T) {
	_, srv := newFakeGallery(t)

	t.Run("converted", func(t *testing.T) {
		dir := t.TempDir()
		out, err := runCLI(t, "get", "loft", "--server", srv.URL, "--out", dir)
		if err != nil {
			t.Fatalf("get error = %v\n%s", err, out)
		}

		f, err := os.Open(filepath.Join(dir, "loft.png"))
		if err != nil {
			t.Fatalf("expected loft.png: %v", err)
		}
		defer f.Close()
		if _, err := png.Decode(f); err != nil {
			t.Errorf("loft.png is not a PNG: %v", err)
		}
	})

	t.Run("premium prints purchase link", func(t *testing.T) {
		dir := t.TempDir()
		out, err := runCLI(t, "get", "tower", "--server", srv.URL, "--out", dir, "--marketplace", "https://market.test")
		if err != nil {
			t.Fatalf("get error = %v", err)
		}
		if !strings.Contains(out, "Purchase at: https://market.test/l/tower4k") {
			t.Errorf("output = %q", out)
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("premium download wrote %d files", len(entries))
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if _, err := runCLI(t, "get", "nope", "--server", srv.URL, "--out", t.TempDir()); err == nil {
			t.Error("expected error for unknown key")
		}
	})

	t.Run("bad format", func(t *testing.T) {
		if _, err := runCLI(t, "get", "loft", "--server", srv.URL, "--format", "gif"); err == nil {
			t.Error("expected error for unsupported format")
		}
	})
}
