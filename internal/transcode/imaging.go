package transcode

import (
	"bytes"
	"context"
	"image/png"

	// Source format decoders
	_ "image/gif"
	_ "image/jpeg"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

// EngineImaging names the pure Go engine.
const EngineImaging = "imaging"

// ImagingTranscoder transcodes with disintegration/imaging.
type ImagingTranscoder struct{}

// Transcode implements Transcoder. EXIF orientation is applied on decode.
func (t *ImagingTranscoder) Transcode(ctx context.Context, data []byte, to Format) ([]byte, error) {
	return instrument(EngineImaging, to, func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: StageDecode, Err: err}
		}
		if err := checkDimensions(data); err != nil {
			return nil, err
		}

		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, &StageError{Stage: StageDecode, Err: err}
		}

		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: StageEncode, Err: err}
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, to.imaging(), imaging.PNGCompressionLevel(png.DefaultCompression)); err != nil {
			return nil, &StageError{Stage: StageEncode, Err: err}
		}
		if buf.Len() == 0 {
			return nil, &StageError{Stage: StageEncode, Err: errEmptyOutput}
		}
		return buf.Bytes(), nil
	})
}
