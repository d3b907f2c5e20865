package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/catalog"
	"backdrop-gallery/internal/logging"
)

// listedImage is one entry of a category listing: the record with its key
// flattened in.
type listedImage struct {
	Key string `json:"key"`
	catalog.ImageRecord
}

type categoryListing struct {
	Category catalog.CategoryInfo `json:"category"`
	Images   []listedImage        `json:"images"`
}

// apiClient calls the gallery JSON API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string, timeout time.Duration) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx response from the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&msg)
		return &apiError{Status: resp.StatusCode, Message: msg.Error}
	}

	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *apiClient) category(ctx context.Context, slug string) (*categoryListing, error) {
	var listing categoryListing
	if err := c.do(ctx, http.MethodGet, "/api/categories/"+url.PathEscape(slug), nil, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *apiClient) metadata(ctx context.Context) (*catalog.Metadata, error) {
	meta := catalog.NewMetadata()
	if err := c.do(ctx, http.MethodGet, "/api/metadata", nil, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (c *apiClient) postEvent(ctx context.Context, e analytics.Event) error {
	return c.do(ctx, http.MethodPost, "/api/events", e, nil)
}

// eventReporter forwards loader events to the server's analytics endpoint.
type eventReporter struct {
	client *apiClient
}

func (r eventReporter) Emit(ctx context.Context, e analytics.Event) {
	if err := r.client.postEvent(ctx, e); err != nil {
		logging.Warn("Failed to report %s event for %s: %v", e.Action, e.Label, err)
	}
}
