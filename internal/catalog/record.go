package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// DefaultTitle replaces an empty title in alt text and structured data.
	DefaultTitle = "Professional virtual background"

	// DefaultDescription replaces an empty description in structured data.
	DefaultDescription = "High-quality background for video calls"
)

// ImageRecord is one background asset as stored in the metadata document.
// Alt and ImageSchema are derived by the Enricher and never read back as input.
type ImageRecord struct {
	Filename    string   `json:"filename"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Keywords    []string `json:"keywords,omitempty"`
	IsPremium   bool     `json:"isPremium,omitempty"`
	Price       Price    `json:"price,omitempty"`
	Permalink   string   `json:"gumroadPermalink,omitempty"`

	Alt         string       `json:"alt,omitempty"`
	ImageSchema *ImageSchema `json:"imageSchema,omitempty"`
}

// DisplayTitle returns the title or DefaultTitle when it is blank.
func (r ImageRecord) DisplayTitle() string {
	if strings.TrimSpace(r.Title) == "" {
		return DefaultTitle
	}
	return r.Title
}

// DisplayDescription returns the description or DefaultDescription when it is blank.
func (r ImageRecord) DisplayDescription() string {
	if strings.TrimSpace(r.Description) == "" {
		return DefaultDescription
	}
	return r.Description
}

// Label is the analytics label for the record: its title, else its filename.
func (r ImageRecord) Label() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Filename
}

// TopKeywords returns at most n keywords, preserving order.
func (r ImageRecord) TopKeywords(n int) []string {
	if len(r.Keywords) <= n {
		return r.Keywords
	}
	return r.Keywords[:n]
}

// ImageSchema is the schema.org ImageObject embedded next to each image.
type ImageSchema struct {
	Type               string       `json:"@type"`
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	ContentURL         string       `json:"contentUrl"`
	License            string       `json:"license"`
	AcquireLicensePage string       `json:"acquireLicensePage"`
	CreditText         string       `json:"creditText"`
	Creator            SchemaEntity `json:"creator"`
	Keywords           string       `json:"keywords"`
	Width              string       `json:"width"`
	Height             string       `json:"height"`
}

// SchemaEntity is a typed, named schema.org node.
type SchemaEntity struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// Price is an optional amount that the metadata document stores either as a
// JSON string ("9.99") or as a number (9.99). The raw text is kept verbatim.
type Price string

// UnmarshalJSON accepts a string, a number or null.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("price must be a string or number: %w", err)
		}
		*p = Price(n.String())
		return nil
	}
}
