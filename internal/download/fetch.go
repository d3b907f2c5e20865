package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"backdrop-gallery/internal/filesystem"
	"backdrop-gallery/internal/logging"
)

// MaxAssetBytes bounds how much of an asset is read into memory.
const MaxAssetBytes = 64 << 20

// ErrAssetTooLarge is returned when an asset exceeds MaxAssetBytes.
var ErrAssetTooLarge = errors.New("asset exceeds size limit")

// HTTPFetcher fetches assets over HTTP.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	return readLimited(resp.Body)
}

// DirFetcher serves asset URLs from a local images directory. The URL path
// must start with the images root; the host is ignored.
type DirFetcher struct {
	Dir        string
	ImagesRoot string
	Retry      filesystem.RetryConfig
}

// NewDirFetcher returns a DirFetcher with default NFS retry settings.
func NewDirFetcher(dir, imagesRoot string) *DirFetcher {
	return &DirFetcher{Dir: dir, ImagesRoot: imagesRoot, Retry: filesystem.DefaultRetryConfig()}
}

// Path maps an asset URL to a file under Dir.
func (f *DirFetcher) Path(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", rawURL, err)
	}

	root := strings.Trim(f.ImagesRoot, "/")
	if root == "" {
		root = "images"
	}
	rel, ok := strings.CutPrefix(u.Path, "/"+root+"/")
	if !ok || rel == "" {
		return "", fmt.Errorf("%s is not under /%s/", u.Path, root)
	}

	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid asset path %q", rel)
	}
	return filepath.Join(f.Dir, rel), nil
}

// Fetch implements Fetcher.
func (f *DirFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := f.Path(rawURL)
	if err != nil {
		return nil, err
	}

	file, err := filesystem.OpenWithRetry(p, f.Retry)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close asset %s: %v", p, err)
		}
	}()

	return readLimited(file)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAssetBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxAssetBytes {
		return nil, ErrAssetTooLarge
	}
	return data, nil
}
