package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"gopkg.in/yaml.v3"
)

const (
	AppName        = "PipeTune"
	AppTagline     = "Terminal music player"
	AppDescription = "A terminal music player streaming through piped/invidious gateways"
	AppProjectURL  = "https://github.com/pipetune/pipetune"

	ConfigDir      = ".config/pipetune"
	ConfigFileName = "config.yml"

	DefaultVolume = 70
	MinVolume     = 0
	MaxVolume     = 100

	// CurrentVersion is the settings format version. Older files are
	// migrated forward on load and rewritten on the next save.
	CurrentVersion = 2
)

// AppVersion can be overridden at build time using ldflags:
// go build -ldflags "-X github.com/pipetune/pipetune/internal/config.AppVersion=1.0.0"
var AppVersion = "dev"

// ClampVolume ensures volume is within the valid range [0, 100].
func ClampVolume(volume int) int {
	if volume < MinVolume {
		return MinVolume
	}
	if volume > MaxVolume {
		return MaxVolume
	}
	return volume
}

type Theme struct {
	Background       string `yaml:"background"`
	Foreground       string `yaml:"foreground"`
	Borders          string `yaml:"borders"`
	Highlight        string `yaml:"highlight"`
	MutedVolume      string `yaml:"muted_volume"`
	HeaderBackground string `yaml:"header_background"`
	QueueHeaderBg    string `yaml:"queue_header_background"`
	QueueHeaderFg    string `yaml:"queue_header_foreground"`
	HelpBackground   string `yaml:"help_background"`
	HelpForeground   string `yaml:"help_foreground"`
	HelpHotkey       string `yaml:"help_hotkey"`
	ModalBackground  string `yaml:"modal_background"`
}

// Playback holds the playback-adjacent settings.
type Playback struct {
	Volume  int    `yaml:"volume"`
	Quality string `yaml:"quality"` // "best", "medium", "low"
	Codec   string `yaml:"codec"`   // preferred audio codec, e.g. "opus"
}

type Config struct {
	Version            int      `yaml:"version"`
	APIBase            string   `yaml:"api_base"`
	CatalogBase        string   `yaml:"catalog_base"`
	PipedInstances     []string `yaml:"piped_instances"`
	InvidiousInstances []string `yaml:"invidious_instances"`
	Playback           Playback `yaml:"playback"`
	Theme              Theme    `yaml:"theme"`

	// Version 1 kept playback settings at the top level. They are read
	// here only to migrate them into the Playback block.
	LegacyVolume  *int   `yaml:"volume,omitempty"`
	LegacyQuality string `yaml:"quality,omitempty"`
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(home, ConfigDir, ConfigFileName)
	return configPath, nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the config from an explicit path, falling back to defaults
// on any problem so the app always starts.
func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.migrate()
	cfg.Playback.Volume = ClampVolume(cfg.Playback.Volume)

	return cfg, nil
}

// migrate moves version 1 fields into their version 2 home. Unknown future
// versions are left as-is.
func (c *Config) migrate() {
	if c.Version >= CurrentVersion {
		return
	}

	if c.LegacyVolume != nil {
		c.Playback.Volume = *c.LegacyVolume
	}
	if c.LegacyQuality != "" {
		c.Playback.Quality = c.LegacyQuality
	}

	c.LegacyVolume = nil
	c.LegacyQuality = ""
	c.Version = CurrentVersion
}

// Save writes the configuration to disk atomically using temp file + rename.
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

func (c *Config) SaveTo(configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	c.Version = CurrentVersion

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpFile, err := os.CreateTemp(configDir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		return fmt.Errorf("failed to rename config file: %w", err)
	}

	tmpPath = "" // Prevent defer from removing the final file
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Version:     CurrentVersion,
		APIBase:     "http://localhost:3000",
		CatalogBase: "",
		PipedInstances: []string{
			"https://pipedapi.kavin.rocks",
		},
		InvidiousInstances: []string{
			"https://yewtu.be",
			"https://inv.nadeko.net",
		},
		Playback: Playback{
			Volume:  DefaultVolume,
			Quality: "best",
			Codec:   "opus",
		},
		Theme: Theme{
			Background:       "#1a1b25",
			Foreground:       "#a3aacb",
			Borders:          "#40445b",
			Highlight:        "#ff9d65",
			MutedVolume:      "#fe0702",
			HeaderBackground: "#473533",
			QueueHeaderBg:    "#3a3d4f",
			QueueHeaderFg:    "#c8d0e8",
			HelpBackground:   "#322f45",
			HelpForeground:   "#9aa3c6",
			HelpHotkey:       "#ff9d65",
			ModalBackground:  "#282a36",
		},
	}
}

func GetColor(colorStr string) tcell.Color {
	if colorStr == "" || colorStr == "default" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(colorStr)
}
