// Package kvstore provides the host key-value storage the persistence layer writes to.
package kvstore

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// Store is a string key-value store. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// ErrUnavailable is returned by stores whose backend refuses reads or writes.
var ErrUnavailable = errors.StorageError("storage unavailable").Build()

// Backend identifies a Store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

// Config selects and locates a backend.
type Config struct {
	Backend Backend
	// Path is the database file for sqlite and the directory for file.
	Path string
}

// Open constructs the configured store.
func Open(cfg Config) (Store, error) {
	switch Backend(strings.ToLower(string(cfg.Backend))) {
	case BackendSQLite, "":
		if cfg.Path == "" {
			return nil, errors.ConfigError("sqlite storage requires a path").Build()
		}
		return NewSQLiteStore(cfg.Path)
	case BackendFile:
		if cfg.Path == "" {
			return nil, errors.ConfigError("file storage requires a directory").Build()
		}
		return NewFileStore(cfg.Path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unknown storage backend %q", cfg.Backend)).
			WithContext("backend", string(cfg.Backend)).
			Build()
	}
}
