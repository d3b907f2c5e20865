// Package transcode decodes catalog images and re-encodes them losslessly.
//
// Two engines are available. ImagingTranscoder is pure Go
// (disintegration/imaging with the x/image WebP decoder registered) and is
// the default. VipsTranscoder uses libvips through govips and must be
// started with InitVips before use.
//
// Both report failures as *StageError so callers can tell a decode
// problem from an encode problem.
package transcode
