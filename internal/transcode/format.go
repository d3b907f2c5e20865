package transcode

import (
	"fmt"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

// Format is a lossless output container.
type Format string

// Supported output formats.
const (
	PNG  Format = "png"
	TIFF Format = "tiff"
	BMP  Format = "bmp"
)

// DefaultFormat is used when no format is requested.
const DefaultFormat = PNG

// Formats lists every supported output format.
func Formats() []Format {
	return []Format{PNG, TIFF, BMP}
}

// ParseFormat accepts a format name or extension, case-insensitively.
// An empty name yields DefaultFormat.
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".") {
	case "":
		return DefaultFormat, nil
	case "png":
		return PNG, nil
	case "tif", "tiff":
		return TIFF, nil
	case "bmp":
		return BMP, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", name)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// MIMEType returns the content type of the format.
func (f Format) MIMEType() string {
	switch f {
	case TIFF:
		return "image/tiff"
	case BMP:
		return "image/bmp"
	default:
		return "image/png"
	}
}

// ReplaceExt swaps the extension of filename for the format's. A filename
// without an extension gets one appended.
func (f Format) ReplaceExt(filename string) string {
	base := path.Base(filename)
	if ext := path.Ext(base); ext != "" && ext != base {
		filename = strings.TrimSuffix(filename, ext)
	}
	return filename + f.Ext()
}

func (f Format) imaging() imaging.Format {
	switch f {
	case TIFF:
		return imaging.TIFF
	case BMP:
		return imaging.BMP
	default:
		return imaging.PNG
	}
}
