// Package config holds the settings captured when a cache is constructed.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"

	"github.com/krisalay/tiered-cache/eviction"
	"github.com/krisalay/tiered-cache/expiration"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "TIEREDCACHE_"

// AppName names the per-user cache directory used when StorageLocation is empty.
const AppName = "tiered-cache"

/*
Config is immutable once handed to a cache: the cache keeps its own copy, and a
new cache must be built to change any setting.

Zero limits mean "unlimited".
*/
type Config struct {
	// StorageLocation is the disk tier directory. Empty means the per-user cache dir.
	StorageLocation string `env:"STORAGE_LOCATION"`

	// MaxDiskBytes bounds the total size of entry files.
	MaxDiskBytes uint64 `env:"MAX_DISK_BYTES" envDefault:"0"`

	// MemoryCountLimit bounds the number of entries kept in memory.
	MemoryCountLimit uint `env:"MEMORY_COUNT_LIMIT" envDefault:"0"`

	// MemoryCostLimit bounds the summed cost (encoded bytes) of entries kept in memory.
	MemoryCostLimit uint64 `env:"MEMORY_COST_LIMIT" envDefault:"0"`

	// DefaultExpiry applies to writes that carry no expiry of their own.
	DefaultExpiry expiration.Expiry `env:"DEFAULT_EXPIRY" envDefault:"never"`

	// EvictionPolicy picks memory victims: LRU, LFU or FIFO.
	EvictionPolicy eviction.PolicyType `env:"EVICTION_POLICY" envDefault:"LRU"`

	// CleanupInterval runs RemoveExpired in the background when positive.
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"0s"`

	// AsyncWorkers and AsyncQueueSize size the background executor.
	AsyncWorkers   int `env:"ASYNC_WORKERS" envDefault:"4"`
	AsyncQueueSize int `env:"ASYNC_QUEUE_SIZE" envDefault:"256"`

	// Compression stores disk payloads zstd-compressed at CompressionLevel (1-22, 0 = default).
	Compression      bool `env:"COMPRESSION" envDefault:"false"`
	CompressionLevel int  `env:"COMPRESSION_LEVEL" envDefault:"3"`
}

// Default returns a config with every limit disabled and entries that never expire.
func Default() Config {
	return Config{
		DefaultExpiry:    expiration.Never(),
		EvictionPolicy:   eviction.LRU,
		AsyncWorkers:     4,
		AsyncQueueSize:   256,
		CompressionLevel: 3,
	}
}

// FromEnv reads a Config from TIEREDCACHE_* environment variables.
func FromEnv() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: EnvPrefix})
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// DefaultStorageLocation resolves the per-user cache directory for this library.
func DefaultStorageLocation() (string, error) {
	scope := gap.NewScope(gap.User, AppName)
	dir, err := scope.CacheDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve cache directory: %w", err)
	}
	return filepath.Join(dir, "store"), nil
}

// WithDefaults fills the fields a cache cannot run without.
func (c Config) WithDefaults() (Config, error) {
	if c.StorageLocation == "" {
		dir, err := DefaultStorageLocation()
		if err != nil {
			return c, err
		}
		c.StorageLocation = dir
	}
	if c.EvictionPolicy == "" {
		c.EvictionPolicy = eviction.LRU
	}
	return c, nil
}

// Validate reports the first setting a cache cannot be built with.
func (c Config) Validate() error {
	if c.StorageLocation == "" {
		return errors.New("config: storage location is required")
	}
	if _, err := eviction.ParsePolicyType(string(c.EvictionPolicy)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("config: cleanup interval must not be negative, got %s", c.CleanupInterval)
	}
	if c.AsyncWorkers < 0 || c.AsyncQueueSize < 0 {
		return errors.New("config: async workers and queue size must not be negative")
	}
	if c.Compression && (c.CompressionLevel < 0 || c.CompressionLevel > 22) {
		return fmt.Errorf("config: compression level must be within 0-22, got %d", c.CompressionLevel)
	}
	return nil
}
