package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"backdrop-gallery/internal/logging"
	"backdrop-gallery/internal/metrics"
)

// Stages a transcode can fail in.
const (
	StageDecode = "decode"
	StageEncode = "encode"
)

// MaxImagePixels bounds the decoded size of a source image (~40MP, about
// 160MB as RGBA).
const MaxImagePixels = 40_000_000

var errEmptyOutput = errors.New("encoder produced no output")

// StageError is a transcode failure tagged with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Transcoder converts encoded image bytes to another format.
type Transcoder interface {
	Transcode(ctx context.Context, data []byte, to Format) ([]byte, error)
}

// New returns the transcoder for engine ("imaging" or "vips").
func New(engine string) (Transcoder, error) {
	switch engine {
	case "", EngineImaging:
		return &ImagingTranscoder{}, nil
	case EngineVips:
		if err := InitVips(); err != nil {
			return nil, err
		}
		return &VipsTranscoder{}, nil
	default:
		return nil, fmt.Errorf("unknown transcoder %q", engine)
	}
}

// checkDimensions rejects sources whose header declares too many pixels.
// Formats image.DecodeConfig cannot read are left to the engine.
func checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return &StageError{Stage: StageDecode, Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	if pixels := cfg.Width * cfg.Height; pixels > MaxImagePixels {
		return &StageError{Stage: StageDecode, Err: fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)}
	}
	return nil
}

// instrument runs fn and records transcode metrics for engine.
func instrument(engine string, to Format, fn func() ([]byte, error)) ([]byte, error) {
	metrics.TranscodesInProgress.Inc()
	defer metrics.TranscodesInProgress.Dec()

	start := time.Now()
	out, err := fn()
	metrics.TranscodeDuration.WithLabelValues(engine).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
		logging.Debug("%s transcode to %s failed: %v", engine, to, err)
	}
	metrics.TranscodesTotal.WithLabelValues(engine, string(to), status).Inc()
	return out, err
}
