package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"backdrop-gallery/internal/catalog"
	"backdrop-gallery/internal/filesystem"
	"backdrop-gallery/internal/logging"
)

// DocumentName is the file name of the metadata document.
const DocumentName = "image-metadata.json"

var (
	// ErrNotFound is returned when no candidate path holds the document.
	ErrNotFound = errors.New("metadata file not found")
	// ErrMalformed is returned when the document is not a valid mapping.
	ErrMalformed = errors.New("malformed metadata document")
)

// NotFoundError lists the paths that were searched.
type NotFoundError struct {
	Searched []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v (searched %s)", ErrNotFound, strings.Join(e.Searched, ", "))
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// DefaultPaths returns the candidate locations under dataDir, in lookup order.
func DefaultPaths(dataDir string) []string {
	return []string{
		filepath.Join(dataDir, "public", "data", DocumentName),
		filepath.Join(dataDir, "data", DocumentName),
	}
}

// Source reads the raw metadata document.
type Source struct {
	paths []string
	retry filesystem.RetryConfig
}

// NewSource returns a source that searches paths in order.
func NewSource(paths ...string) *Source {
	return &Source{
		paths: append([]string(nil), paths...),
		retry: filesystem.DefaultRetryConfig(),
	}
}

// Paths returns the candidate paths.
func (s *Source) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Resolve returns the first candidate path that exists along with its file info.
func (s *Source) Resolve() (string, os.FileInfo, error) {
	for _, path := range s.paths {
		info, err := filesystem.StatWithRetry(path, s.retry)
		if err == nil && !info.IsDir() {
			return path, info, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Debug("Metadata candidate %s not usable: %v", path, err)
		}
	}
	return "", nil, &NotFoundError{Searched: s.Paths()}
}

// Load resolves and decodes the document.
func (s *Source) Load(ctx context.Context) (*catalog.Metadata, error) {
	path, _, err := s.Resolve()
	if err != nil {
		return nil, err
	}
	return s.LoadFile(ctx, path)
}

// LoadFile decodes the document at path.
func (s *Source) LoadFile(ctx context.Context, path string) (*catalog.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := filesystem.OpenWithRetry(path, s.retry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Searched: []string{path}}
		}
		return nil, fmt.Errorf("failed to open metadata %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close metadata file %s: %v", path, err)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", path, err)
	}

	meta := catalog.NewMetadata()
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return meta, nil
}
