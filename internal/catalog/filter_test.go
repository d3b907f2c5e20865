package catalog

import (
	"testing"
)

func TestFilterByCategory(t *testing.T) {
	meta := rawFixture()

	got := FilterByCategory(meta, "lobbies")
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Key != "lobby-1" || got[1].Key != "lobby-2" {
		t.Errorf("order = [%s %s], want [lobby-1 lobby-2]", got[0].Key, got[1].Key)
	}
	for _, e := range got {
		if e.Record.Category != "lobbies" {
			t.Errorf("entry %s has category %q", e.Key, e.Record.Category)
		}
	}
}

func TestFilterByCategoryEmpty(t *testing.T) {
	tests := []struct {
		name string
		meta *Metadata
		slug string
	}{
		{"unknown slug", rawFixture(), "rooftops"},
		{"metadata not loaded", nil, "lobbies"},
		{"empty metadata", NewMetadata(), "lobbies"},
		{"empty slug", rawFixture(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterByCategory(tt.meta, tt.slug)
			if got == nil {
				t.Fatal("expected empty slice, got nil")
			}
			if len(got) != 0 {
				t.Errorf("got %d entries, want 0", len(got))
			}
		})
	}
}

func TestFilterSelectMemoizes(t *testing.T) {
	var f Filter
	meta := rawFixture()

	first := f.Select(meta, "lobbies")
	second := f.Select(meta, "lobbies")
	if len(first) == 0 || &first[0] != &second[0] {
		t.Error("same inputs should return the cached slice")
	}

	exec := f.Select(meta, "executive-offices")
	if len(exec) != 1 || exec[0].Key != "exec-1" {
		t.Errorf("slug change should recompute, got %+v", exec)
	}
}

func TestFilterSelectRecomputesOnNewSnapshot(t *testing.T) {
	var f Filter
	meta := rawFixture()
	before := f.Select(meta, "lobbies")

	next := rawFixture()
	next.Set("lobby-3", ImageRecord{Filename: "c.webp", Category: "lobbies"})
	after := f.Select(next, "lobbies")

	if len(before) != 2 || len(after) != 3 {
		t.Errorf("before=%d after=%d, want 2 and 3", len(before), len(after))
	}

	if got := f.Select(nil, "lobbies"); len(got) != 0 {
		t.Errorf("nil snapshot should yield empty result, got %d", len(got))
	}
}
