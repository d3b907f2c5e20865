package catalog

import (
	"net/url"
	"strings"
)

// SiteInfo carries the public identity used in structured data.
type SiteInfo struct {
	// BaseURL is the canonical site origin, e.g. https://streambackdrops.com.
	BaseURL string
	// Name is used as credit text and creator organization.
	Name string
	// ImagesRoot is the URL path segment assets are served under.
	ImagesRoot string
}

// AssetPath returns the public path of filename under root. Each path segment
// is URL-encoded; the filename is otherwise used verbatim.
func AssetPath(root, filename string) string {
	root = strings.Trim(root, "/")
	if root == "" {
		root = "images"
	}
	segments := strings.Split(filename, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + root + "/" + strings.Join(segments, "/")
}

// Enricher adds alt text and structured data to raw records.
type Enricher struct {
	alt  *AltText
	site SiteInfo
}

// NewEnricher returns an Enricher using cats for alt text context.
func NewEnricher(cats *Categories, site SiteInfo) *Enricher {
	site.BaseURL = strings.TrimRight(site.BaseURL, "/")
	return &Enricher{alt: NewAltText(cats), site: site}
}

// Enrich returns a new mapping with every record of raw enriched. raw is not
// modified; keys and order are preserved.
func (e *Enricher) Enrich(raw *Metadata) *Metadata {
	out := NewMetadata()
	for _, entry := range raw.Entries() {
		out.Set(entry.Key, e.EnrichRecord(entry.Record))
	}
	return out
}

// EnrichRecord derives Alt and ImageSchema for a single record.
func (e *Enricher) EnrichRecord(rec ImageRecord) ImageRecord {
	if rec.Keywords != nil {
		rec.Keywords = append([]string(nil), rec.Keywords...)
	}
	rec.Alt = e.alt.Synthesize(rec)
	rec.ImageSchema = e.schema(rec)
	return rec
}

// ContentURL returns the absolute URL of the record's asset.
func (e *Enricher) ContentURL(rec ImageRecord) string {
	return e.site.BaseURL + AssetPath(e.site.ImagesRoot, rec.Filename)
}

func (e *Enricher) schema(rec ImageRecord) *ImageSchema {
	terms := e.site.BaseURL + "/terms"
	return &ImageSchema{
		Type:               "ImageObject",
		Name:               rec.DisplayTitle(),
		Description:        rec.DisplayDescription(),
		ContentURL:         e.ContentURL(rec),
		License:            terms,
		AcquireLicensePage: terms,
		CreditText:         e.site.Name,
		Creator:            SchemaEntity{Type: "Organization", Name: e.site.Name},
		Keywords:           strings.Join(rec.Keywords, ", "),
		Width:              "1920",
		Height:             "1080",
	}
}
