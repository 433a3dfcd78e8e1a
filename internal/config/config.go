// Package config loads the pagesmith project configuration (pagesmith.yaml).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/kvstore"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
)

// CurrentVersion is the only configuration format version accepted by Load.
const CurrentVersion = "1.0"

// DefaultPath is the configuration file looked up when no path is given.
const DefaultPath = "pagesmith.yaml"

// Config is the project configuration.
type Config struct {
	Version     string            `yaml:"version"`
	Storage     StorageConfig     `yaml:"storage"`
	History     HistoryConfig     `yaml:"history"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Export      ExportConfig      `yaml:"export"`
	Preview     PreviewConfig     `yaml:"preview"`
	Logging     LoggingConfig     `yaml:"logging"`
	Palette     PaletteConfig     `yaml:"palette"`
}

// StorageConfig selects the key-value backend holding the project.
type StorageConfig struct {
	Backend kvstore.Backend `yaml:"backend"`
	Path    string          `yaml:"path"` // database file (sqlite) or directory (file)
}

// HistoryConfig bounds undo history.
type HistoryConfig struct {
	Limit          int      `yaml:"limit"`
	CoalesceWindow Duration `yaml:"coalesce_window"`
}

// PersistenceConfig controls how often the project is written.
type PersistenceConfig struct {
	Debounce Duration `yaml:"debounce"`
	// CheckpointInterval enables periodic checkpoints while serving; zero disables them.
	CheckpointInterval Duration `yaml:"checkpoint_interval"`
	CheckpointKeep     int      `yaml:"checkpoint_keep"`
}

// ExportConfig controls site export.
type ExportConfig struct {
	Output    string       `yaml:"output"`
	Format    ExportFormat `yaml:"format"`
	SkipLegal bool         `yaml:"skip_legal"`
}

// PreviewConfig configures the live preview server.
type PreviewConfig struct {
	Addr  string `yaml:"addr"`
	Watch bool   `yaml:"watch"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// PaletteConfig tunes logo palette extraction.
type PaletteConfig struct {
	MaxSize int `yaml:"max_size"`
	Colors  int `yaml:"colors"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{Version: CurrentVersion}
	applyDefaults(c)
	return c
}

// Load reads, expands, normalizes, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	for _, f := range loadEnvFiles() {
		slog.Debug("Loaded environment file", logfields.Path(f))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewError(errors.CategoryNotFound, "configuration file not found").
				WithContext("path", path).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes an already expanded configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Build()
	}
	if cfg.Version != CurrentVersion {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)).
			WithContext("version", cfg.Version).
			Build()
	}

	res := NormalizeConfig(&cfg)
	for _, w := range res.Warnings {
		slog.Warn("config normalization", slog.String("detail", w))
	}
	applyDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}
	example := Default()
	example.Persistence.CheckpointInterval = Duration(5 * time.Minute)
	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example config").Build()
	}
	header := "# pagesmith project configuration\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}

// KVConfig returns the storage settings in the form kvstore.Open expects.
func (c *Config) KVConfig() kvstore.Config {
	return kvstore.Config{Backend: c.Storage.Backend, Path: c.Storage.Path}
}

func applyDefaults(c *Config) {
	if c.Storage.Backend == "" {
		c.Storage.Backend = kvstore.BackendSQLite
	}
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case kvstore.BackendSQLite:
			c.Storage.Path = ".pagesmith/project.db"
		case kvstore.BackendFile:
			c.Storage.Path = ".pagesmith/store"
		}
	}
	if c.History.Limit == 0 {
		c.History.Limit = 50
	}
	if c.History.CoalesceWindow == 0 {
		c.History.CoalesceWindow = Duration(450 * time.Millisecond)
	}
	if c.Persistence.Debounce == 0 {
		c.Persistence.Debounce = Duration(450 * time.Millisecond)
	}
	if c.Persistence.CheckpointKeep == 0 {
		c.Persistence.CheckpointKeep = 10
	}
	if c.Export.Output == "" {
		c.Export.Output = "dist"
	}
	if c.Export.Format == "" {
		c.Export.Format = ExportFormatZip
	}
	if c.Preview.Addr == "" {
		c.Preview.Addr = "127.0.0.1:8787"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
	if c.Palette.MaxSize == 0 {
		c.Palette.MaxSize = 96
	}
	if c.Palette.Colors == 0 {
		c.Palette.Colors = 8
	}
}
