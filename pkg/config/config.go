package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cubahno/refbundle/internal/types"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
)

// Config is the bundler configuration.
// BaseDir is the directory relative locations are loaded from.
// DedupeIdentical collapses structurally identical external subtrees
// that come from different locations.
// Cache configures caching of loaded source documents.
type Config struct {
	BaseDir         string       `koanf:"baseDir" yaml:"baseDir"`
	DedupeIdentical bool         `koanf:"dedupeIdentical" yaml:"dedupeIdentical"`
	Cache           *CacheConfig `koanf:"cache" yaml:"cache"`
}

// CacheType defines the backend of the source cache.
type CacheType string

const (
	// CacheTypeNone disables caching.
	CacheTypeNone CacheType = "none"

	// CacheTypeMemory keeps sources in process memory.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeRedis shares sources between processes through Redis.
	CacheTypeRedis CacheType = "redis"
)

// CacheConfig configures the source cache.
// TTL of 0 keeps entries until they are cleared.
// Prefix namespaces keys in shared backends.
type CacheConfig struct {
	Type   CacheType     `koanf:"type" yaml:"type"`
	TTL    time.Duration `koanf:"ttl" yaml:"ttl"`
	Prefix string        `koanf:"prefix" yaml:"prefix"`
	Redis  *RedisConfig  `koanf:"redis" yaml:"redis"`
}

// RedisConfig configures Redis connection.
type RedisConfig struct {
	// host:port
	Address  string `koanf:"address" yaml:"address"`
	Password string `koanf:"password" yaml:"password"`
	DB       int    `koanf:"db" yaml:"db"`
}

// NewDefaultConfig creates a config with caching disabled and no base directory.
func NewDefaultConfig() *Config {
	return &Config{
		Cache: &CacheConfig{
			Type:   CacheTypeNone,
			Prefix: "refbundle",
		},
	}
}

func defaultValues() map[string]any {
	return map[string]any{
		"baseDir":         "",
		"dedupeIdentical": false,
		"cache.type":      string(CacheTypeNone),
		"cache.ttl":       "0s",
		"cache.prefix":    "refbundle",
		// listed so CACHE_REDIS_* variables apply without a redis section
		"cache.redis.address":  "",
		"cache.redis.password": "",
		"cache.redis.db":       0,
	}
}

// NewConfigFromFile creates a config from a YAML file.
// Environment variables named after the snake-cased key override values,
// e.g. CACHE_TTL overrides cache.ttl.
func NewConfigFromFile(filePath string) (*Config, error) {
	cfg, err := load(file.Provider(filePath))
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", filePath, err)
	}
	return cfg, nil
}

// NewConfigFromContent creates a config from YAML content.
func NewConfigFromContent(content []byte) (*Config, error) {
	return load(rawbytes.Provider(content))
}

// MustConfig loads the config file and falls back to the default config
// when the file is missing or invalid.
func MustConfig(filePath string) *Config {
	cfg, err := NewConfigFromFile(filePath)
	if err != nil {
		slog.Error("error loading config. using fallback", "error", err)
		return NewDefaultConfig()
	}
	return cfg
}

func load(provider koanf.Provider) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return nil, err
	}
	if err := k.Load(provider, yaml.Parser()); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := transformConfig(k).Unmarshal("", cfg); err != nil {
		return nil, err
	}
	cfg.ensureValues()

	return cfg, nil
}

// transformConfig applies environment overrides to scalar values.
func transformConfig(k *koanf.Koanf) *koanf.Koanf {
	transformed := koanf.New(".")
	for key, value := range k.All() {
		envKey := types.ToEnvName(key)
		finalValue := value

		switch value.(type) {
		case int, float64, bool, string:
			if envValue, exists := os.LookupEnv(envKey); exists {
				finalValue = envValue
			}
		}

		_ = transformed.Set(key, finalValue)
	}
	return transformed
}

// ensureValues fills values left empty by the loaded content.
func (c *Config) ensureValues() {
	defaults := NewDefaultConfig()
	if c.Cache == nil {
		c.Cache = defaults.Cache
	}
	if c.Cache.Type == "" {
		c.Cache.Type = defaults.Cache.Type
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = defaults.Cache.Prefix
	}
	if c.Cache.Redis != nil && *c.Cache.Redis == (RedisConfig{}) {
		c.Cache.Redis = nil
	}
}
