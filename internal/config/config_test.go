package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClampVolume(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"below minimum", -10, MinVolume},
		{"at minimum", 0, 0},
		{"in range", 50, 50},
		{"at maximum", 100, 100},
		{"above maximum", 150, MaxVolume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampVolume(tt.input); got != tt.expected {
				t.Errorf("ClampVolume(%d) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	defaults := DefaultConfig()
	if cfg.APIBase != defaults.APIBase {
		t.Errorf("APIBase = %q, want default %q", cfg.APIBase, defaults.APIBase)
	}
	if cfg.Playback.Volume != DefaultVolume {
		t.Errorf("Volume = %d, want %d", cfg.Playback.Volume, DefaultVolume)
	}
	if len(cfg.PipedInstances) == 0 {
		t.Error("defaults should include at least one piped instance")
	}
}

func TestLoadFromMalformedFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("version: [not a number"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err == nil {
		t.Error("LoadFrom() should report the parse error")
	}
	if cfg == nil {
		t.Fatal("LoadFrom() should still return a usable config")
	}
	if cfg.Playback.Volume != DefaultVolume {
		t.Errorf("Volume = %d, want default %d", cfg.Playback.Volume, DefaultVolume)
	}
}

func TestLoadFromClampsVolume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "version: 2\nplayback:\n  volume: 250\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Playback.Volume != MaxVolume {
		t.Errorf("Volume = %d, want clamped to %d", cfg.Playback.Volume, MaxVolume)
	}
}

func TestLoadFromMigratesVersionOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "version: 1\nvolume: 35\nquality: medium\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d after migration", cfg.Version, CurrentVersion)
	}
	if cfg.Playback.Volume != 35 {
		t.Errorf("Playback.Volume = %d, want migrated value 35", cfg.Playback.Volume)
	}
	if cfg.Playback.Quality != "medium" {
		t.Errorf("Playback.Quality = %q, want migrated value %q", cfg.Playback.Quality, "medium")
	}
	if cfg.LegacyVolume != nil || cfg.LegacyQuality != "" {
		t.Error("legacy fields should be cleared after migration")
	}
}

func TestMigrateLeavesCurrentVersionAlone(t *testing.T) {
	legacy := 10
	cfg := DefaultConfig()
	cfg.Playback.Volume = 80
	cfg.LegacyVolume = &legacy

	cfg.migrate()

	if cfg.Playback.Volume != 80 {
		t.Errorf("Volume = %d, want 80 untouched for a current-version config", cfg.Playback.Volume)
	}
}

func TestSaveToAndLoadFromRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg := DefaultConfig()
	cfg.APIBase = "https://music.example.net"
	cfg.CatalogBase = "https://catalog.example.net"
	cfg.PipedInstances = []string{"https://piped.example.net"}
	cfg.Playback.Volume = 45
	cfg.Playback.Codec = "mp3"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if loaded.APIBase != cfg.APIBase {
		t.Errorf("APIBase = %q, want %q", loaded.APIBase, cfg.APIBase)
	}
	if loaded.CatalogBase != cfg.CatalogBase {
		t.Errorf("CatalogBase = %q, want %q", loaded.CatalogBase, cfg.CatalogBase)
	}
	if len(loaded.PipedInstances) != 1 || loaded.PipedInstances[0] != cfg.PipedInstances[0] {
		t.Errorf("PipedInstances = %v, want %v", loaded.PipedInstances, cfg.PipedInstances)
	}
	if loaded.Playback.Volume != 45 {
		t.Errorf("Volume = %d, want 45", loaded.Playback.Volume)
	}
	if loaded.Playback.Codec != "mp3" {
		t.Errorf("Codec = %q, want %q", loaded.Playback.Codec, "mp3")
	}
}

func TestSaveToLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	if err := DefaultConfig().SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "config.yml" {
		t.Errorf("directory contents = %v, want only config.yml", entries)
	}
}
