// Package prefs persists the per-track stream source preference table.
//
// The store is deliberately failure-proof: every read or write problem
// degrades to "no preference known" so that a broken disk or corrupt file
// can never block playback.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/mo"
)

const (
	// FileName is the preference table file under the app config directory.
	FileName = "preferences.json"
	// MaxEntries bounds the table; the oldest entries are evicted on write.
	MaxEntries = 200

	formatVersion = 1
)

// Preference records which provider and instance last resolved a track
// successfully, keyed by the opaque track identifier.
type Preference struct {
	Source    string    `json:"source"`
	Instance  string    `json:"instance,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type table struct {
	Version int                   `json:"version"`
	Entries map[string]Preference `json:"entries"`
}

// Store is the process-wide owner of the persisted preference table.
// The table is loaded lazily on first access, once per process lifetime.
type Store struct {
	path string

	mu       sync.Mutex
	loadOnce sync.Once
	entries  map[string]Preference
}

// DefaultPath returns the preference file location under the user config dir.
func DefaultPath(appDir string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDir, FileName), nil
}

// NewStore creates a store backed by the given file path. The file is not
// touched until the first Lookup or Remember.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Lookup returns the remembered preference for a track, if any.
func (s *Store) Lookup(id string) mo.Option[Preference] {
	s.loadOnce.Do(s.load)

	s.mu.Lock()
	defer s.mu.Unlock()

	pref, ok := s.entries[id]
	if !ok {
		return mo.None[Preference]()
	}
	return mo.Some(pref)
}

// Remember stores the preference for a track, overwriting any prior entry,
// and evicts the least-recently-updated entries beyond MaxEntries. All
// persistence failures are swallowed after a warning log.
func (s *Store) Remember(id, source, instance string) {
	if id == "" || source == "" {
		return
	}

	s.loadOnce.Do(s.load)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if prev, ok := s.entries[id]; ok && !now.After(prev.UpdatedAt) {
		// Keep UpdatedAt strictly monotonic even on coarse clocks.
		now = prev.UpdatedAt.Add(time.Nanosecond)
	}

	s.entries[id] = Preference{
		Source:    source,
		Instance:  instance,
		UpdatedAt: now,
	}

	s.evictLocked()
	s.persistLocked()
}

// Len reports the current entry count.
func (s *Store) Len() int {
	s.loadOnce.Do(s.load)

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Preference)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", s.path).Msg("Failed to read preference table")
		}
		return
	}

	var tbl table
	if err := json.Unmarshal(data, &tbl); err != nil {
		log.Warn().Err(err).Str("file", s.path).Msg("Preference table is malformed, starting empty")
		return
	}

	if tbl.Entries != nil {
		s.entries = tbl.Entries
	}
}

func (s *Store) evictLocked() {
	for len(s.entries) > MaxEntries {
		oldestID := ""
		var oldest time.Time
		for id, pref := range s.entries {
			if oldestID == "" || pref.UpdatedAt.Before(oldest) {
				oldestID = id
				oldest = pref.UpdatedAt
			}
		}
		delete(s.entries, oldestID)
	}
}

// persistLocked writes the table atomically via temp file + rename.
func (s *Store) persistLocked() {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Failed to create preference directory")
		return
	}

	data, err := json.Marshal(table{Version: formatVersion, Entries: s.entries})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal preference table")
		return
	}

	tmpFile, err := os.CreateTemp(dir, ".prefs-*.tmp")
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Failed to create temp preference file")
		return
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		log.Warn().Err(err).Str("file", tmpPath).Msg("Failed to write preference table")
		return
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		log.Warn().Err(err).Str("file", tmpPath).Msg("Failed to close preference file")
		return
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		log.Warn().Err(err).Str("file", s.path).Msg("Failed to replace preference table")
	}
}
