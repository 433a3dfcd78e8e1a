package config

import (
	"fmt"
	"net"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/kvstore"
)

// ValidateConfig checks a normalized, defaulted configuration.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.ConfigError("configuration is nil").Build()
	}
	checks := []func(*Config) error{
		validateStorage,
		validateHistory,
		validatePersistence,
		validatePreview,
		validatePalette,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field string, value any, reason string) error {
	return errors.ConfigError(fmt.Sprintf("invalid %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}

func validateStorage(cfg *Config) error {
	switch cfg.Storage.Backend {
	case kvstore.BackendSQLite, kvstore.BackendFile:
		if cfg.Storage.Path == "" {
			return invalid("storage.path", cfg.Storage.Path, "required for "+string(cfg.Storage.Backend)+" backend")
		}
	case kvstore.BackendMemory:
	default:
		return invalid("storage.backend", cfg.Storage.Backend, "unsupported backend")
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Limit < 1 {
		return invalid("history.limit", cfg.History.Limit, "must be at least 1")
	}
	if cfg.History.CoalesceWindow < 0 {
		return invalid("history.coalesce_window", cfg.History.CoalesceWindow.String(), "must not be negative")
	}
	return nil
}

func validatePersistence(cfg *Config) error {
	if cfg.Persistence.Debounce < 0 {
		return invalid("persistence.debounce", cfg.Persistence.Debounce.String(), "must not be negative")
	}
	if cfg.Persistence.CheckpointInterval < 0 {
		return invalid("persistence.checkpoint_interval", cfg.Persistence.CheckpointInterval.String(), "must not be negative")
	}
	if cfg.Persistence.CheckpointKeep < 1 {
		return invalid("persistence.checkpoint_keep", cfg.Persistence.CheckpointKeep, "must be at least 1")
	}
	return nil
}

func validatePreview(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.Preview.Addr); err != nil {
		return invalid("preview.addr", cfg.Preview.Addr, "expected host:port")
	}
	return nil
}

func validatePalette(cfg *Config) error {
	if cfg.Palette.MaxSize < 8 || cfg.Palette.MaxSize > 1024 {
		return invalid("palette.max_size", cfg.Palette.MaxSize, "must be between 8 and 1024")
	}
	if cfg.Palette.Colors < 1 || cfg.Palette.Colors > 32 {
		return invalid("palette.colors", cfg.Palette.Colors, "must be between 1 and 32")
	}
	return nil
}
