package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/tiered-cache/eviction"
	"github.com/krisalay/tiered-cache/expiration"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("TIEREDCACHE_STORAGE_LOCATION", "/tmp/tiered")
	t.Setenv("TIEREDCACHE_MAX_DISK_BYTES", "1048576")
	t.Setenv("TIEREDCACHE_MEMORY_COUNT_LIMIT", "100")
	t.Setenv("TIEREDCACHE_DEFAULT_EXPIRY", "5m")
	t.Setenv("TIEREDCACHE_EVICTION_POLICY", "lfu")
	t.Setenv("TIEREDCACHE_CLEANUP_INTERVAL", "30s")
	t.Setenv("TIEREDCACHE_COMPRESSION", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/tiered", cfg.StorageLocation)
	assert.EqualValues(t, 1<<20, cfg.MaxDiskBytes)
	assert.EqualValues(t, 100, cfg.MemoryCountLimit)
	assert.Zero(t, cfg.MemoryCostLimit)
	assert.Equal(t, expiration.After(5*time.Minute), cfg.DefaultExpiry)
	assert.Equal(t, eviction.LFU, cfg.EvictionPolicy)
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.True(t, cfg.Compression)
	assert.Equal(t, 3, cfg.CompressionLevel)
	assert.Equal(t, 4, cfg.AsyncWorkers)
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.DefaultExpiry.IsNever())
	assert.Equal(t, eviction.LRU, cfg.EvictionPolicy)
	assert.Equal(t, Default().AsyncQueueSize, cfg.AsyncQueueSize)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("TIEREDCACHE_EVICTION_POLICY", "random")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestWithDefaultsFillsStorageLocation(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cfg, err := Config{}.WithDefaults()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.StorageLocation)
	assert.Contains(t, cfg.StorageLocation, AppName)
	assert.Equal(t, eviction.LRU, cfg.EvictionPolicy)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := Default()
	base.StorageLocation = t.TempDir()
	require.NoError(t, base.Validate())

	for name, mutate := range map[string]func(*Config){
		"no location":      func(c *Config) { c.StorageLocation = "" },
		"bad policy":       func(c *Config) { c.EvictionPolicy = "MRU" },
		"negative cleanup": func(c *Config) { c.CleanupInterval = -time.Second },
		"negative workers": func(c *Config) { c.AsyncWorkers = -1 },
		"bad level":        func(c *Config) { c.Compression = true; c.CompressionLevel = 23 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
