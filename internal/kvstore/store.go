package kvstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"danmu/internal/config"
)

// Record is one stored value.
type Record struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence contract shared by every backend.
type Store interface {
	// Get returns the record for key and whether it exists.
	Get(ctx context.Context, key string) (Record, bool, error)
	// Put stores value under key and reports whether anything changed.
	Put(ctx context.Context, key string, value []byte) (bool, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Hash returns the hex SHA-256 digest used as the change hash.
func Hash(value []byte) string {
	sum := sha256.Sum256(value)
	return hex.EncodeToString(sum[:])
}

// Open creates the backend named by cfg.Cache.Backend.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return NewMemory(), nil
	case "file":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		return OpenFile(cfg.Cache.Path, logger), nil
	case "sqlite":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		return OpenSQLite(cfg.Cache.Path)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
}

func newRecord(key string, value []byte, now time.Time) Record {
	return Record{
		Key:       key,
		Value:     append([]byte(nil), value...),
		Hash:      Hash(value),
		UpdatedAt: now.UTC(),
	}
}
