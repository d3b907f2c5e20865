package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"backdrop-gallery/internal/logging"
)

// FileSaver writes downloads into a directory. Files appear atomically: data
// goes to a temporary file that is renamed into place, and the temporary
// file is removed on any failure.
type FileSaver struct {
	Dir string
	// Fetcher retrieves originals for SaveLink.
	Fetcher Fetcher
}

// Save implements Saver.
func (s *FileSaver) Save(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(filename, data)
}

// SaveLink implements Saver by fetching url and writing it unchanged.
func (s *FileSaver) SaveLink(ctx context.Context, url, filename string) error {
	if s.Fetcher == nil {
		return fmt.Errorf("no fetcher configured for %s", url)
	}
	data, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch original: %w", err)
	}
	return s.write(filename, data)
}

// Target returns the path filename is saved to.
func (s *FileSaver) Target(filename string) string {
	return filepath.Join(s.Dir, filepath.Base(filepath.FromSlash(filename)))
}

func (s *FileSaver) write(filename string, data []byte) (err error) {
	target := s.Target(filename)

	tmp, err := os.CreateTemp(s.Dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmpName); rmErr != nil && !os.IsNotExist(rmErr) {
				logging.Warn("failed to remove temp file %s: %v", tmpName, rmErr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename to %s: %w", target, err)
	}
	return nil
}

// WriterOpener "opens" a URL by printing it, for terminals without a browser.
type WriterOpener struct {
	W io.Writer
}

// Open implements Opener.
func (o WriterOpener) Open(_ context.Context, url string) error {
	_, err := fmt.Fprintf(o.W, "Purchase at: %s\n", url)
	return err
}
