package catalog

import "sync"

// FilterByCategory returns the entries of meta whose category equals slug,
// in mapping order. A nil mapping means the metadata has not loaded yet and
// yields an empty result.
func FilterByCategory(meta *Metadata, slug string) []Entry {
	out := []Entry{}
	if meta == nil || slug == "" {
		return out
	}
	for _, key := range meta.keys {
		rec := meta.records[key]
		if rec.Category == slug {
			out = append(out, Entry{Key: key, Record: rec})
		}
	}
	return out
}

// Filter memoizes FilterByCategory on the identity of its inputs. Results are
// cached per slug for the current *Metadata snapshot and dropped as soon as a
// different snapshot is passed in. Snapshots are never mutated after they are
// published, so pointer identity is sufficient.
type Filter struct {
	mu      sync.Mutex
	meta    *Metadata
	results map[string][]Entry
}

// Select returns the entries for slug. Callers must not modify the returned slice.
func (f *Filter) Select(meta *Metadata, slug string) []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.results == nil || f.meta != meta {
		f.meta = meta
		f.results = make(map[string][]Entry)
	}

	if cached, ok := f.results[slug]; ok {
		return cached
	}

	result := FilterByCategory(meta, slug)
	f.results[slug] = result
	return result
}
