// Package config loads and validates the module configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/marketfall/marketfall"
	"github.com/marketfall/marketfall/threecommas"
)

type Config struct {
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Engine      EngineConfig      `mapstructure:"engine"`
	ThreeCommas ThreeCommasConfig `mapstructure:"threecommas"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ProvidersConfig struct {
	// Enabled lists the providers the engine races, by name.
	Enabled     []string       `mapstructure:"enabled"`
	CoinGecko   ProviderConfig `mapstructure:"coingecko"`
	CoinPaprika ProviderConfig `mapstructure:"coinpaprika"`
	Binance     ProviderConfig `mapstructure:"binance"`
}

type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type CacheConfig struct {
	Type  string      `mapstructure:"type"` // "memory", "localfs", "s3" or "redis"
	Path  string      `mapstructure:"path"` // For localfs
	S3    S3Config    `mapstructure:"s3"`
	Redis RedisConfig `mapstructure:"redis"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type EngineConfig struct {
	RaceTimeout time.Duration `mapstructure:"race_timeout"`
}

// ThreeCommasConfig holds the two credential pairs of the signed
// client. A pair is optional, but key and secret come together.
type ThreeCommasConfig struct {
	ReadOnlyKey    string `mapstructure:"read_only_key"`
	ReadOnlySecret string `mapstructure:"read_only_secret"`
	TradingKey     string `mapstructure:"trading_key"`
	TradingSecret  string `mapstructure:"trading_secret"`
}

// Keyring converts the configured pairs into the signed client's form.
func (c ThreeCommasConfig) Keyring() threecommas.Keyring {
	return threecommas.Keyring{
		ReadOnly: threecommas.Credentials{Key: c.ReadOnlyKey, Secret: c.ReadOnlySecret},
		Trading:  threecommas.Credentials{Key: c.TradingKey, Secret: c.TradingSecret},
	}
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from file. A .env next to the file, when
// present, fills the environment before ${VAR} references resolve.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Enabled: []string{"coingecko", "coinpaprika", "binance"},
		},
		Cache: CacheConfig{
			Type: "memory",
		},
		Engine: EngineConfig{
			RaceTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

var knownProviders = map[string]bool{
	"coingecko":   true,
	"coinpaprika": true,
	"binance":     true,
}

var knownCacheTypes = map[string]bool{
	"memory":  true,
	"localfs": true,
	"s3":      true,
	"redis":   true,
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Provider validation
	if len(c.Providers.Enabled) == 0 {
		return marketfall.WrapError(marketfall.ErrConfigMissing,
			fmt.Errorf("at least one provider must be enabled"))
	}
	for _, name := range c.Providers.Enabled {
		if !knownProviders[name] {
			return marketfall.WrapError(marketfall.ErrConfigInvalid,
				fmt.Errorf("unknown provider %q", name))
		}
	}

	// Cache validation
	if !knownCacheTypes[c.Cache.Type] {
		return marketfall.WrapError(marketfall.ErrConfigInvalid,
			fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}
	switch c.Cache.Type {
	case "localfs":
		if c.Cache.Path == "" {
			return marketfall.WrapError(marketfall.ErrConfigMissing,
				fmt.Errorf("cache path required when type is localfs"))
		}
	case "s3":
		if c.Cache.S3.Bucket == "" {
			return marketfall.WrapError(marketfall.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when type is s3"))
		}
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return marketfall.WrapError(marketfall.ErrConfigMissing,
				fmt.Errorf("redis addr required when type is redis"))
		}
	}

	// Engine validation
	if c.Engine.RaceTimeout <= 0 {
		return marketfall.WrapError(marketfall.ErrConfigInvalid,
			fmt.Errorf("race_timeout must be positive, got %s", c.Engine.RaceTimeout))
	}

	// Credential pairs are optional but indivisible.
	if (c.ThreeCommas.ReadOnlyKey == "") != (c.ThreeCommas.ReadOnlySecret == "") {
		return marketfall.WrapError(marketfall.ErrConfigInvalid,
			fmt.Errorf("read_only_key and read_only_secret must be set together"))
	}
	if (c.ThreeCommas.TradingKey == "") != (c.ThreeCommas.TradingSecret == "") {
		return marketfall.WrapError(marketfall.ErrConfigInvalid,
			fmt.Errorf("trading_key and trading_secret must be set together"))
	}

	return nil
}
