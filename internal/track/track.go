// Package track defines the data structures for playable tracks.
package track

import (
	"fmt"
	"strings"
)

// Track represents a single playable item as returned by the search API.
// ID is an opaque provider-assigned identifier, stable for the session, and
// is the key for every preference and cache lookup.
type Track struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Album     string `json:"album,omitempty"`
	Duration  int    `json:"duration,omitempty"` // seconds
	Thumbnail string `json:"thumbnail,omitempty"`
}

// DisplayTitle returns "Artist - Title" when both are known, falling back to
// whichever part is present.
func (t Track) DisplayTitle() string {
	switch {
	case t.Artist != "" && t.Title != "":
		return fmt.Sprintf("%s - %s", t.Artist, t.Title)
	case t.Title != "":
		return t.Title
	default:
		return t.ID
	}
}

// SearchQuery returns the text used to look the track up in the catalog
// fallback, which is keyed by title/artist rather than by id.
func (t Track) SearchQuery() string {
	parts := []string{}
	if t.Title != "" {
		parts = append(parts, t.Title)
	}
	if t.Artist != "" {
		parts = append(parts, t.Artist)
	}
	return strings.Join(parts, " ")
}

// FormatDuration renders the duration as m:ss (or h:mm:ss for long tracks).
func (t Track) FormatDuration() string {
	if t.Duration <= 0 {
		return "--:--"
	}
	h := t.Duration / 3600
	m := (t.Duration % 3600) / 60
	s := t.Duration % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
