package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	SearchesFileName = "searches.json"
	// MaxRecentSearches bounds the persisted search history.
	MaxRecentSearches = 20
)

// SearchHistory persists the recent search strings, most recent first.
// Like the preference table, it never fails callers: storage problems are
// logged and swallowed.
type SearchHistory struct {
	path string

	mu       sync.Mutex
	loadOnce sync.Once
	entries  []string
}

// GetSearchesPath returns the search history file under the config dir.
func GetSearchesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, SearchesFileName), nil
}

// NewSearchHistory creates a history backed by the given file path.
func NewSearchHistory(path string) *SearchHistory {
	return &SearchHistory{path: path}
}

// Recent returns the stored searches, most recent first.
func (h *SearchHistory) Recent() []string {
	h.loadOnce.Do(h.load)

	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]string, len(h.entries))
	copy(result, h.entries)
	return result
}

// Remember moves the query to the front, deduplicated, capped at
// MaxRecentSearches, and persists the list.
func (h *SearchHistory) Remember(query string) {
	if query == "" {
		return
	}

	h.loadOnce.Do(h.load)

	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append([]string{query}, lo.Without(h.entries, query)...)
	if len(entries) > MaxRecentSearches {
		entries = entries[:MaxRecentSearches]
	}
	h.entries = entries

	h.persistLocked()
}

func (h *SearchHistory) load() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := os.ReadFile(h.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", h.path).Msg("Failed to read search history")
		}
		return
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Str("file", h.path).Msg("Search history is malformed, starting empty")
		return
	}
	h.entries = entries
}

func (h *SearchHistory) persistLocked() {
	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Failed to create search history directory")
		return
	}

	data, err := json.Marshal(h.entries)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal search history")
		return
	}

	tmpFile, err := os.CreateTemp(dir, ".searches-*.tmp")
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Failed to create temp search history file")
		return
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		log.Warn().Err(err).Str("file", tmpPath).Msg("Failed to write search history")
		return
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		log.Warn().Err(err).Str("file", tmpPath).Msg("Failed to close search history file")
		return
	}

	if err := os.Rename(tmpPath, h.path); err != nil {
		os.Remove(tmpPath)
		log.Warn().Err(err).Str("file", h.path).Msg("Failed to replace search history")
	}
}
