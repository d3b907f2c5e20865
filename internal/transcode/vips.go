package transcode

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"backdrop-gallery/internal/logging"
)

// EngineVips names the libvips engine.
const EngineVips = "vips"

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

var errVipsUnavailable = errors.New("libvips not available")

// vipsLogSettings maps the application log level to a libvips level and a
// handler that forwards messages at or above it.
func vipsLogSettings(appLevel logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	threshold := vips.LogLevelWarning
	switch appLevel {
	case logging.LevelDebug:
		threshold = vips.LogLevelInfo
	case logging.LevelError:
		threshold = vips.LogLevelCritical
	}

	// GLib levels grow numerically as severity drops
	return threshold, func(domain string, level vips.LogLevel, msg string) {
		if level > threshold {
			return
		}
		switch level {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
}

// InitVips starts libvips once per process. Later calls are no-ops.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Logging must be configured before Startup to respect LOG_LEVEL
	level, handler := vipsLogSettings(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips. govips cannot be restarted afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable reports whether libvips is started.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// VipsTranscoder transcodes with libvips.
type VipsTranscoder struct{}

// Transcode implements Transcoder. BMP has no libvips saver, so the decoded
// image is handed to imaging for that format.
func (t *VipsTranscoder) Transcode(ctx context.Context, data []byte, to Format) ([]byte, error) {
	return instrument(EngineVips, to, func() ([]byte, error) {
		if !IsVipsAvailable() {
			return nil, &StageError{Stage: StageDecode, Err: errVipsUnavailable}
		}
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: StageDecode, Err: err}
		}
		if err := checkDimensions(data); err != nil {
			return nil, err
		}

		ref, err := vips.NewImageFromBuffer(data)
		if err != nil {
			return nil, &StageError{Stage: StageDecode, Err: err}
		}
		defer ref.Close()

		if err := ref.AutoRotate(); err != nil {
			return nil, &StageError{Stage: StageDecode, Err: err}
		}

		var out []byte
		switch to {
		case TIFF:
			out, _, err = ref.ExportTiff(vips.NewTiffExportParams())
		case BMP:
			out, err = vipsToBMP(ref)
		default:
			out, _, err = ref.ExportPng(vips.NewPngExportParams())
		}
		if err != nil {
			return nil, &StageError{Stage: StageEncode, Err: err}
		}
		if len(out) == 0 {
			return nil, &StageError{Stage: StageEncode, Err: errEmptyOutput}
		}
		return out, nil
	})
}

func vipsToBMP(ref *vips.ImageRef) ([]byte, error) {
	img, err := ref.ToImage(vips.NewDefaultPNGExportParams())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.BMP); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
