package track

import "testing"

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		expected string
	}{
		{"artist and title", Track{ID: "x", Artist: "Boards of Canada", Title: "Roygbiv"}, "Boards of Canada - Roygbiv"},
		{"title only", Track{ID: "x", Title: "Roygbiv"}, "Roygbiv"},
		{"neither", Track{ID: "abc123"}, "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.track.DisplayTitle(); got != tt.expected {
				t.Errorf("DisplayTitle() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		expected string
	}{
		{"title and artist", Track{Title: "Roygbiv", Artist: "Boards of Canada"}, "Roygbiv Boards of Canada"},
		{"title only", Track{Title: "Roygbiv"}, "Roygbiv"},
		{"empty", Track{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.track.SearchQuery(); got != tt.expected {
				t.Errorf("SearchQuery() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int
		expected string
	}{
		{"zero", 0, "--:--"},
		{"under a minute", 42, "0:42"},
		{"minutes", 215, "3:35"},
		{"over an hour", 3725, "1:02:05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Track{Duration: tt.seconds}
			if got := tr.FormatDuration(); got != tt.expected {
				t.Errorf("FormatDuration() = %q, want %q", got, tt.expected)
			}
		})
	}
}
