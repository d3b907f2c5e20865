package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry pairs a record with its key in the metadata mapping.
type Entry struct {
	Key    string
	Record ImageRecord
}

// MarshalJSON flattens the key into the record object, the shape category
// listings are served in.
func (e Entry) MarshalJSON() ([]byte, error) {
	rec, err := json.Marshal(e.Record)
	if err != nil {
		return nil, err
	}
	key, err := json.Marshal(e.Key)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"key":`)
	buf.Write(key)
	if len(rec) > 2 {
		buf.WriteByte(',')
		buf.Write(rec[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// Metadata is an ordered mapping from key to ImageRecord. Iteration follows
// the order keys first appeared in, which for decoded documents is the
// document order.
type Metadata struct {
	keys    []string
	records map[string]ImageRecord
}

// NewMetadata returns an empty mapping.
func NewMetadata() *Metadata {
	return &Metadata{records: make(map[string]ImageRecord)}
}

// Set stores rec under key. A new key is appended; an existing key keeps its
// position and takes the new value.
func (m *Metadata) Set(key string, rec ImageRecord) {
	if m.records == nil {
		m.records = make(map[string]ImageRecord)
	}
	if _, exists := m.records[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.records[key] = rec
}

// Get returns the record stored under key.
func (m *Metadata) Get(key string) (ImageRecord, bool) {
	if m == nil {
		return ImageRecord{}, false
	}
	rec, ok := m.records[key]
	return rec, ok
}

// Len returns the number of records. A nil mapping is empty.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Entries returns all records in order.
func (m *Metadata) Entries() []Entry {
	if m == nil {
		return nil
	}
	entries := make([]Entry, 0, len(m.keys))
	for _, key := range m.keys {
		entries = append(entries, Entry{Key: key, Record: m.records[key]})
	}
	return entries
}

// CategoryCounts returns the number of records per category.
func (m *Metadata) CategoryCounts() map[string]int {
	counts := make(map[string]int)
	if m == nil {
		return counts
	}
	for _, key := range m.keys {
		counts[m.records[key].Category]++
	}
	return counts
}

// MarshalJSON encodes the mapping as a JSON object in key order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, key := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(m.records[key])
			if err != nil {
				return nil, fmt.Errorf("encode record %q: %w", key, err)
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping document key order. Entries
// whose value is null are skipped.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata must be a JSON object, got %v", tok)
	}

	out := NewMetadata()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected metadata key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode record %q: %w", key, err)
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}

		var rec ImageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode record %q: %w", key, err)
		}
		out.Set(key, rec)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = *out
	return nil
}
