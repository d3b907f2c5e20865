package handlers

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/sync/singleflight"

	"backdrop-gallery/internal/download"
	"backdrop-gallery/internal/logging"
	"backdrop-gallery/internal/transcode"
)

var errResponseCommitted = errors.New("response already written")

// responseSaver delivers a download over the HTTP response: converted bytes
// as an attachment, the original as a redirect.
type responseSaver struct {
	w         http.ResponseWriter
	r         *http.Request
	mimeType  string
	committed bool
}

func (s *responseSaver) Save(_ context.Context, filename string, data []byte) error {
	s.committed = true
	h := s.w.Header()
	h.Set("Content-Type", s.mimeType)
	h.Set("Content-Disposition", attachment(filename))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", "no-store")
	_, err := s.w.Write(data)
	return err
}

func (s *responseSaver) SaveLink(_ context.Context, url, _ string) error {
	if s.committed {
		return errResponseCommitted
	}
	s.committed = true
	http.Redirect(s.w, s.r, url, http.StatusFound)
	return nil
}

// redirectOpener sends the client to an external page.
type redirectOpener struct {
	w http.ResponseWriter
	r *http.Request
}

func (o redirectOpener) Open(_ context.Context, url string) error {
	http.Redirect(o.w, o.r, url, http.StatusSeeOther)
	return nil
}

// sharedTranscoder collapses concurrent transcodes of the same record and
// format into one call whose result every caller receives. The shared call
// is detached from the first caller's cancellation so that caller leaving
// does not fail the others.
type sharedTranscoder struct {
	group *singleflight.Group
	inner transcode.Transcoder
	key   string
}

func (t sharedTranscoder) Transcode(ctx context.Context, data []byte, to transcode.Format) ([]byte, error) {
	v, err, shared := t.group.Do(t.key+"|"+string(to), func() (interface{}, error) {
		return t.inner.Transcode(context.WithoutCancel(ctx), data, to)
	})
	if shared {
		logging.Debug("Shared transcode of %s to %s", t.key, to)
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// Download runs the download flow for one image. Free images are transcoded
// server-side and returned as an attachment, falling back to a redirect to
// the original asset; premium images redirect to their purchase page.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := mux.Vars(r)["key"]

	rec, ok, err := h.store.Record(ctx, key)
	if err != nil {
		logging.Warn("Download of %s: metadata unavailable: %v", key, err)
		writeJSONError(w, "Metadata unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		writeJSONError(w, "Image not found", http.StatusNotFound)
		return
	}

	cfg := h.flowConfig
	if cfg.Format == "" {
		cfg.Format = transcode.DefaultFormat
	}
	if name := r.URL.Query().Get("format"); name != "" {
		format, err := transcode.ParseFormat(name)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		cfg.Format = format
	}

	if !rec.IsPremium {
		if err := h.limiter.Acquire(ctx); err != nil {
			writeJSONError(w, "Download cancelled", http.StatusServiceUnavailable)
			return
		}
		defer h.limiter.Release()

		if h.memory != nil {
			if err := h.memory.Wait(ctx); err != nil {
				writeJSONError(w, "Server busy, try again later", http.StatusServiceUnavailable)
				return
			}
		}
	}

	saver := &responseSaver{w: w, r: r, mimeType: cfg.Format.MIMEType()}
	flow := download.NewFlow(cfg, download.Deps{
		Fetcher:    h.fetcher,
		Transcoder: sharedTranscoder{group: &h.transcodes, inner: h.transcoder, key: key},
		Saver:      saver,
		Opener:     redirectOpener{w: w, r: r},
		Sink:       h.sink,
	})

	out := flow.Run(ctx, rec)
	if out.Reason != nil {
		logging.Debug("Download of %s ended as %s: %v", key, out.Kind, out.Reason)
	}
	if !saver.committed && out.Kind != download.OutcomePurchase {
		writeJSONError(w, "Download failed", http.StatusBadGateway)
	}
}
