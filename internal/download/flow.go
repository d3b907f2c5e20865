package download

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/catalog"
	"backdrop-gallery/internal/logging"
	"backdrop-gallery/internal/metrics"
	"backdrop-gallery/internal/transcode"
)

// Kind identifies which branch a download took.
type Kind string

// Download outcomes.
const (
	OutcomePurchase  Kind = "purchase"
	OutcomeConverted Kind = "converted"
	OutcomeFallback  Kind = "fallback"
)

// Failure stages counted in backdrops_download_failures_total.
const (
	StageFetch  = "fetch"
	StageDecode = transcode.StageDecode
	StageEncode = transcode.StageEncode
	StageSave   = "save"
	StageLink   = "link"
	StageOpen   = "open"
)

// DefaultMarketplaceURL is the storefront purchase links are built on.
const DefaultMarketplaceURL = "https://gumroad.com"

// Outcome describes the result of a download.
type Outcome struct {
	Kind Kind
	// Filename is the name the asset was saved under.
	Filename string
	// PurchaseURL is set for premium images.
	PurchaseURL string
	// SourceURL is the original asset URL.
	SourceURL string
	// Bytes is the size of the converted output.
	Bytes int
	// Reason is the failure that caused a fallback, or the opener error for
	// a purchase.
	Reason error
}

// Fetcher retrieves the original asset bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Saver stores downloads.
type Saver interface {
	// Save stores converted bytes under filename.
	Save(ctx context.Context, filename string, data []byte) error
	// SaveLink stores the original asset at url as filename, unchanged.
	SaveLink(ctx context.Context, url, filename string) error
}

// Opener opens an external page, such as a purchase link.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Config is the static configuration of a Flow.
type Config struct {
	// BaseURL is prepended to asset paths.
	BaseURL string
	// ImagesRoot is the asset path prefix; "images" when empty.
	ImagesRoot string
	// MarketplaceURL is the storefront origin; DefaultMarketplaceURL when
	// empty.
	MarketplaceURL string
	// Format is the output container; transcode.DefaultFormat when empty.
	Format transcode.Format
}

// Deps are the collaborators of a Flow.
type Deps struct {
	Fetcher    Fetcher
	Transcoder transcode.Transcoder
	Saver      Saver
	Opener     Opener
	Sink       analytics.Sink
}

// Flow runs downloads.
type Flow struct {
	cfg  Config
	deps Deps
}

// NewFlow returns a Flow. Fetcher, Transcoder and Saver are required for
// free images; Opener for premium ones.
func NewFlow(cfg Config, deps Deps) *Flow {
	if cfg.Format == "" {
		cfg.Format = transcode.DefaultFormat
	}
	if cfg.MarketplaceURL == "" {
		cfg.MarketplaceURL = DefaultMarketplaceURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.MarketplaceURL = strings.TrimRight(cfg.MarketplaceURL, "/")
	deps.Sink = analytics.OrNop(deps.Sink)
	return &Flow{cfg: cfg, deps: deps}
}

// PurchaseURL returns the marketplace link for permalink. An empty permalink
// yields the storefront itself.
func PurchaseURL(marketplace, permalink string) string {
	marketplace = strings.TrimRight(marketplace, "/")
	if permalink == "" {
		return marketplace
	}
	return marketplace + "/l/" + url.PathEscape(permalink)
}

// AssetURL returns the original asset URL of rec.
func (f *Flow) AssetURL(rec catalog.ImageRecord) string {
	return f.cfg.BaseURL + catalog.AssetPath(f.cfg.ImagesRoot, rec.Filename)
}

// Run downloads rec. It never fails; see Outcome.
func (f *Flow) Run(ctx context.Context, rec catalog.ImageRecord) Outcome {
	start := time.Now()

	value := 0
	if rec.IsPremium {
		value = 1
	}
	f.deps.Sink.Emit(ctx, analytics.Event{
		Action:   analytics.ActionDownload,
		Category: analytics.CategoryEngagement,
		Label:    rec.Label(),
		Value:    value,
	})

	var out Outcome
	if rec.IsPremium {
		out = f.purchase(ctx, rec)
	} else {
		out = f.convert(ctx, rec)
	}

	metrics.DownloadsTotal.WithLabelValues(string(out.Kind)).Inc()
	metrics.DownloadDuration.WithLabelValues(string(out.Kind)).Observe(time.Since(start).Seconds())
	return out
}

func (f *Flow) purchase(ctx context.Context, rec catalog.ImageRecord) Outcome {
	out := Outcome{
		Kind:        OutcomePurchase,
		PurchaseURL: PurchaseURL(f.cfg.MarketplaceURL, rec.Permalink),
		SourceURL:   f.AssetURL(rec),
	}
	if rec.Permalink == "" {
		logging.Warn("Premium image %s has no marketplace permalink", rec.Filename)
	}

	if f.deps.Opener == nil {
		return out
	}
	if err := f.deps.Opener.Open(ctx, out.PurchaseURL); err != nil {
		failure(StageOpen)
		logging.Warn("Failed to open purchase page %s: %v", out.PurchaseURL, err)
		out.Reason = err
	}
	return out
}

func (f *Flow) convert(ctx context.Context, rec catalog.ImageRecord) Outcome {
	src := f.AssetURL(rec)

	data, err := f.deps.Fetcher.Fetch(ctx, src)
	if err != nil {
		return f.fallback(ctx, rec, src, StageFetch, err)
	}

	converted, err := f.deps.Transcoder.Transcode(ctx, data, f.cfg.Format)
	if err != nil {
		stage := StageEncode
		var se *transcode.StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		return f.fallback(ctx, rec, src, stage, err)
	}

	name := f.cfg.Format.ReplaceExt(rec.Filename)
	if err := f.deps.Saver.Save(ctx, name, converted); err != nil {
		return f.fallback(ctx, rec, src, StageSave, err)
	}

	logging.Debug("Converted %s to %s (%d bytes)", rec.Filename, name, len(converted))
	return Outcome{
		Kind:      OutcomeConverted,
		Filename:  name,
		SourceURL: src,
		Bytes:     len(converted),
	}
}

// fallback saves the original asset by link. Its own failure is logged and
// counted but does not change the outcome.
func (f *Flow) fallback(ctx context.Context, rec catalog.ImageRecord, src, stage string, cause error) Outcome {
	failure(stage)
	logging.Warn("Download of %s failed at %s, saving original: %v", rec.Filename, stage, cause)

	if err := f.deps.Saver.SaveLink(ctx, src, rec.Filename); err != nil {
		failure(StageLink)
		logging.Error("Direct link save of %s failed: %v", rec.Filename, err)
	}

	return Outcome{
		Kind:      OutcomeFallback,
		Filename:  rec.Filename,
		SourceURL: src,
		Reason:    cause,
	}
}

func failure(stage string) {
	metrics.DownloadFailuresTotal.WithLabelValues(stage).Inc()
}
