// Package main provides a small command line front-end to a tiered cache directory.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cache "github.com/krisalay/tiered-cache"
	"github.com/krisalay/tiered-cache/config"
	"github.com/krisalay/tiered-cache/eviction"
	"github.com/krisalay/tiered-cache/expiration"
	"github.com/krisalay/tiered-cache/types"
)

var (
	// Version as provided by goreleaser.
	Version = ""

	configFile string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "tieredcache",
		Short:         "Inspect and edit a tiered cache directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return initConfig()
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				log.Error("Cache operation failed", "kind", types.KindOf(ee.err), "err", ee.err)
			}
			os.Exit(ee.code)
		}
		log.Error("Command failed", "err", err)
		os.Exit(1)
	}
}

func init() {
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is tieredcache.yml in the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("dir", "", "storage location of the disk tier")
	rootCmd.PersistentFlags().Uint64("max-disk-bytes", 0, "disk tier size limit in bytes (0 = unlimited)")
	rootCmd.PersistentFlags().String("default-expiry", "never", `default expiry: "never", a duration or an RFC 3339 time`)
	rootCmd.PersistentFlags().Bool("compress", false, "zstd-compress disk payloads")

	_ = viper.BindPFlag("storage_location", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("max_disk_bytes", rootCmd.PersistentFlags().Lookup("max-disk-bytes"))
	_ = viper.BindPFlag("default_expiry", rootCmd.PersistentFlags().Lookup("default-expiry"))
	_ = viper.BindPFlag("compression", rootCmd.PersistentFlags().Lookup("compress"))

	viper.SetDefault("default_expiry", "never")
	viper.SetDefault("eviction_policy", string(eviction.LRU))
	viper.SetDefault("memory_count_limit", 0)
	viper.SetDefault("memory_cost_limit", 0)
	viper.SetDefault("compression_level", 3)

	rootCmd.AddCommand(setCmd, getCmd, existsCmd, removeCmd, clearCmd, sweepCmd, statsCmd)
}

// initConfig layers flags over TIEREDCACHE_* env vars over the config file.
func initConfig() error {
	level := log.InfoLevel
	if debug || strings.EqualFold(os.Getenv("TIEREDCACHE_LOG_LEVEL"), "debug") {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		scope := gap.NewScope(gap.User, config.AppName)
		dirs, err := scope.ConfigDirs()
		if err != nil {
			return fmt.Errorf("could not find configuration directory: %w", err)
		}
		if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
			dirs = append([]string{filepath.Join(c, config.AppName)}, dirs...)
		}
		for _, v := range dirs {
			viper.AddConfigPath(v)
		}
		viper.SetConfigName("tieredcache")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("tieredcache")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return fmt.Errorf("could not parse configuration file: %w", err)
		}
	}
	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
	}
	return nil
}

// loadConfig turns the merged viper settings into a cache config.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	cfg.StorageLocation = viper.GetString("storage_location")
	cfg.MaxDiskBytes = viper.GetUint64("max_disk_bytes")
	cfg.MemoryCountLimit = viper.GetUint("memory_count_limit")
	cfg.MemoryCostLimit = viper.GetUint64("memory_cost_limit")
	cfg.Compression = viper.GetBool("compression")
	cfg.CompressionLevel = viper.GetInt("compression_level")

	exp, err := expiration.Parse(viper.GetString("default_expiry"))
	if err != nil {
		return cfg, err
	}
	cfg.DefaultExpiry = exp

	policy, err := eviction.ParsePolicyType(viper.GetString("eviction_policy"))
	if err != nil {
		return cfg, err
	}
	cfg.EvictionPolicy = policy
	return cfg, nil
}

// openCache opens a string-valued cache over the configured directory.
func openCache() (*cache.Cache[string], error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := log.Default().WithPrefix("tieredcache")
	return cache.New[string](cfg, cache.WithLogger[string](logger))
}

// exitCodeFor maps error kinds to distinct exit codes for scripts.
func exitCodeFor(err error) int {
	switch types.KindOf(err) {
	case types.ErrInvalidKey:
		return 2
	case types.ErrCacheWrite, types.ErrStorageWrite:
		return 3
	case types.ErrStorageRead, types.ErrDecoding, types.ErrCacheRead:
		return 4
	default:
		return 1
	}
}
