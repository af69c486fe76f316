// Package config loads the dialogbot configuration from YAML with
// DIALOGBOT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all dialogbot configuration.
type Config struct {
	// Bot resources
	Bot BotConfig `yaml:"bot"`

	// State storage
	Storage StorageConfig `yaml:"storage"`

	// Transcript recording
	Transcripts TranscriptConfig `yaml:"transcripts"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BotConfig locates the declarative bot.
type BotConfig struct {
	ResourceDir        string `yaml:"resource_dir"`
	RootDialog         string `yaml:"root_dialog"`
	LanguageGeneration string `yaml:"language_generation"`
	Watch              bool   `yaml:"watch"`
	MaxStepsPerTurn    int    `yaml:"max_steps_per_turn"`
	SendTrace          bool   `yaml:"send_trace"`
}

// StorageConfig selects the state store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite
	Path   string `yaml:"path"`
}

// TranscriptConfig configures the file transcript logger.
type TranscriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console, json
}

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			ResourceDir:        ".",
			RootDialog:         "Main.dialog",
			LanguageGeneration: "common.lg",
			MaxStepsPerTurn:    256,
		},
		Storage: StorageConfig{
			Driver: DriverMemory,
			Path:   "dialogbot.db",
		},
		Transcripts: TranscriptConfig{
			Dir: "transcripts",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("DIALOGBOT_RESOURCE_DIR"); v != "" {
		c.Bot.ResourceDir = v
	}
	if v := os.Getenv("DIALOGBOT_ROOT_DIALOG"); v != "" {
		c.Bot.RootDialog = v
	}
	if v := os.Getenv("DIALOGBOT_LG"); v != "" {
		c.Bot.LanguageGeneration = v
	}
	if v := os.Getenv("DIALOGBOT_STORAGE"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("DIALOGBOT_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("DIALOGBOT_TRANSCRIPT_DIR"); v != "" {
		c.Transcripts.Enabled = true
		c.Transcripts.Dir = v
	}
	if v := os.Getenv("DIALOGBOT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DIALOGBOT_WATCH"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DIALOGBOT_WATCH: %w", err)
		}
		c.Bot.Watch = watch
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Bot.RootDialog == "" {
		return fmt.Errorf("bot.root_dialog is required")
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Bot.MaxStepsPerTurn < 0 {
		return fmt.Errorf("bot.max_steps_per_turn must not be negative")
	}
	return nil
}
