// Package config loads reflector.yml and the environment through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory, without extension
const FileName = "reflector"

// Config is the full reflector configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects the database to introspect
type DatabaseConfig struct {
	URL     string   `mapstructure:"url"`
	Schemas []string `mapstructure:"schemas"`
}

// PoolConfig sizes the connection pool
type PoolConfig struct {
	Reserve int `mapstructure:"reserve"`
}

// CacheConfig configures catalog snapshot caching. An empty RedisAddr keeps snapshots in
// memory for the lifetime of the process.
type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads the config file at path, or reflector.yml/reflector.yaml from the working
// directory when path is empty. A missing default file is not an error. Environment
// variables prefixed with REFLECTOR_ override file values, and DATABASE_URL overrides
// database.url.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.schemas", []string{"public"})
	v.SetDefault("pool.reserve", 1)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("REFLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about
	v.SetDefault("database.url", "")
	v.SetDefault("cache.redis_addr", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Pool.Reserve < 0 {
		return fmt.Errorf("pool.reserve must not be negative, got: %d", cfg.Pool.Reserve)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got: %s", cfg.Cache.TTL)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", cfg.Log.Level)
	}
	return nil
}
