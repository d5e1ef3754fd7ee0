package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func newTestHistory(t *testing.T) *SearchHistory {
	t.Helper()
	return NewSearchHistory(filepath.Join(t.TempDir(), SearchesFileName))
}

func TestSearchHistoryEmpty(t *testing.T) {
	h := newTestHistory(t)

	if got := h.Recent(); len(got) != 0 {
		t.Errorf("Recent() = %v, want empty", got)
	}
}

func TestSearchHistoryMostRecentFirst(t *testing.T) {
	h := newTestHistory(t)

	h.Remember("first")
	h.Remember("second")
	h.Remember("third")

	got := h.Recent()
	want := []string{"third", "second", "first"}
	if len(got) != len(want) {
		t.Fatalf("Recent() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Recent()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSearchHistoryDeduplicates(t *testing.T) {
	h := newTestHistory(t)

	h.Remember("jazz")
	h.Remember("ambient")
	h.Remember("jazz")

	got := h.Recent()
	if len(got) != 2 {
		t.Fatalf("Recent() length = %d, want 2", len(got))
	}
	if got[0] != "jazz" || got[1] != "ambient" {
		t.Errorf("Recent() = %v, want repeated query moved to front", got)
	}
}

func TestSearchHistoryIgnoresEmptyQuery(t *testing.T) {
	h := newTestHistory(t)

	h.Remember("")

	if got := h.Recent(); len(got) != 0 {
		t.Errorf("Recent() = %v, want empty query ignored", got)
	}
}

func TestSearchHistoryCapped(t *testing.T) {
	h := newTestHistory(t)

	for i := 0; i < MaxRecentSearches+5; i++ {
		h.Remember(fmt.Sprintf("query %d", i))
	}

	got := h.Recent()
	if len(got) != MaxRecentSearches {
		t.Fatalf("Recent() length = %d, want %d", len(got), MaxRecentSearches)
	}
	if got[0] != fmt.Sprintf("query %d", MaxRecentSearches+4) {
		t.Errorf("Recent()[0] = %q, want the newest query", got[0])
	}
}

func TestSearchHistoryPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), SearchesFileName)

	h := NewSearchHistory(path)
	h.Remember("synthwave")
	h.Remember("lofi")

	reloaded := NewSearchHistory(path)
	got := reloaded.Recent()
	if len(got) != 2 || got[0] != "lofi" || got[1] != "synthwave" {
		t.Errorf("reloaded Recent() = %v, want [lofi synthwave]", got)
	}
}

func TestSearchHistoryMalformedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), SearchesFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	h := NewSearchHistory(path)
	if got := h.Recent(); len(got) != 0 {
		t.Errorf("Recent() = %v, want empty for a malformed file", got)
	}

	// And the history keeps working afterwards.
	h.Remember("recovered")
	if got := h.Recent(); len(got) != 1 || got[0] != "recovered" {
		t.Errorf("Recent() = %v, want [recovered]", got)
	}
}
