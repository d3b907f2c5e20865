package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CategoryInfo describes one browsable category.
type CategoryInfo struct {
	Slug        string `yaml:"slug" json:"slug"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	IsPremium   bool   `yaml:"isPremium" json:"isPremium,omitempty"`

	// AltContext is the phrase the alt text synthesizer appends for records
	// of this category. Empty means no phrase.
	AltContext string `yaml:"altContext" json:"-"`
}

// Categories is an immutable, ordered category table.
type Categories struct {
	list   []CategoryInfo
	bySlug map[string]int
}

// ErrDuplicateCategory is returned when a table lists a slug twice.
var ErrDuplicateCategory = errors.New("duplicate category slug")

// NewCategories validates and freezes a category table.
func NewCategories(list []CategoryInfo) (*Categories, error) {
	c := &Categories{
		list:   make([]CategoryInfo, len(list)),
		bySlug: make(map[string]int, len(list)),
	}
	copy(c.list, list)

	for i, info := range c.list {
		if info.Slug == "" {
			return nil, fmt.Errorf("category %d has no slug", i)
		}
		if _, dup := c.bySlug[info.Slug]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, info.Slug)
		}
		c.bySlug[info.Slug] = i
	}
	return c, nil
}

// Lookup returns the category with the given slug.
func (c *Categories) Lookup(slug string) (CategoryInfo, bool) {
	if c == nil {
		return CategoryInfo{}, false
	}
	i, ok := c.bySlug[slug]
	if !ok {
		return CategoryInfo{}, false
	}
	return c.list[i], true
}

// All returns a copy of the table in order.
func (c *Categories) All() []CategoryInfo {
	if c == nil {
		return nil
	}
	out := make([]CategoryInfo, len(c.list))
	copy(out, c.list)
	return out
}

// Len returns the number of categories.
func (c *Categories) Len() int {
	if c == nil {
		return 0
	}
	return len(c.list)
}

type categoryFile struct {
	Categories []CategoryInfo `yaml:"categories"`
}

// LoadCategories reads a category table from a YAML file of the form
//
//	categories:
//	  - slug: lobbies
//	    name: Lobbies
//	    description: ...
//	    altContext: ...
func LoadCategories(path string) (*Categories, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}

	var file categoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse categories file %s: %w", path, err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("categories file %s defines no categories", path)
	}

	return NewCategories(file.Categories)
}

// DefaultCategories returns the site's built-in category table.
func DefaultCategories() *Categories {
	c, err := NewCategories(defaultCategoryList)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultCategoryList = []CategoryInfo{
	{
		Slug:        "home-offices",
		Name:        "Home Offices",
		Description: "Professional home office backgrounds perfect for remote work and video calls",
		AltContext:  "home office virtual background perfect for remote work and video calls",
	},
	{
		Slug:        "executive-offices",
		Name:        "Executive Offices",
		Description: "Luxury executive office backgrounds for leadership meetings and professional calls",
		AltContext:  "luxury executive office virtual background ideal for leadership meetings and professional presentations",
	},
	{
		Slug:        "conference-rooms",
		Name:        "Conference Rooms",
		Description: "Professional meeting room backgrounds for team calls and presentations",
		AltContext:  "professional conference room virtual background for team meetings and business presentations",
	},
	{
		Slug:        "open-offices",
		Name:        "Open Offices",
		Description: "Modern open workspace backgrounds for collaborative video calls",
		AltContext:  "modern open office virtual background for collaborative meetings and startup environments",
	},
	{
		Slug:        "lobbies",
		Name:        "Lobbies",
		Description: "Professional lobby backgrounds for client meetings and business calls",
		AltContext:  "professional lobby virtual background for client meetings and business calls",
	},
	{
		Slug:        "private-offices",
		Name:        "Private Offices",
		Description: "Specialized private office backgrounds for professional consultations and meetings",
		AltContext:  "specialized private office virtual background for consultations and professional meetings",
	},
	{
		Slug:        "premium-4k",
		Name:        "Premium 4K",
		Description: "Ultra high-quality 4K virtual backgrounds with premium materials and luxury details",
		IsPremium:   true,
	},
}
