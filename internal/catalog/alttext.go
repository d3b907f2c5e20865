package catalog

import (
	"strings"
)

const (
	altKeywordLimit = 3
	altPlatformTail = " for Zoom, Teams, and professional video calls"
)

// AltText synthesizes alt text from a record's title, category and keywords.
type AltText struct {
	contexts map[string]string
}

// NewAltText builds a synthesizer from the AltContext phrases of cats.
func NewAltText(cats *Categories) *AltText {
	contexts := make(map[string]string)
	for _, info := range cats.All() {
		if info.AltContext != "" {
			contexts[info.Slug] = info.AltContext
		}
	}
	return &AltText{contexts: contexts}
}

// Synthesize returns the alt text for rec. The result depends only on the
// title, category and keywords, so it is stable across calls.
//
// The platform tail is added unless the record's own wording (title and the
// selected keywords) already mentions video calls or virtual backgrounds.
// The default title and the category phrase do not count, since they always
// would.
func (a *AltText) Synthesize(rec ImageRecord) string {
	keywords := strings.Join(rec.TopKeywords(altKeywordLimit), ", ")

	var b strings.Builder
	b.WriteString(rec.DisplayTitle())

	if context, ok := a.contexts[rec.Category]; ok {
		b.WriteString(" - ")
		b.WriteString(context)
	}

	if keywords != "" {
		b.WriteString(" featuring ")
		b.WriteString(keywords)
	}

	if !mentionsVideoCalls(rec.Title + " " + keywords) {
		b.WriteString(altPlatformTail)
	}
	return b.String()
}

func mentionsVideoCalls(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "video call") || strings.Contains(lower, "virtual background")
}
