package engine

import (
	"fmt"

	"github.com/marketfall/marketfall"
	"github.com/marketfall/marketfall/cache"
	"github.com/marketfall/marketfall/config"
	"github.com/marketfall/marketfall/provider"
	"github.com/marketfall/marketfall/provider/binance"
	"github.com/marketfall/marketfall/provider/coingecko"
	"github.com/marketfall/marketfall/provider/coinpaprika"
)

// FromConfig assembles an engine from a validated configuration:
// providers by enabled name, the configured cache backend, and the
// configured race timeout. An explicit Options.RaceTimeout wins over
// the configured one.
func FromConfig(cfg *config.Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	providers, err := buildProviders(cfg.Providers)
	if err != nil {
		return nil, err
	}
	backend, err := buildBackend(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if opts.RaceTimeout == 0 {
		opts.RaceTimeout = cfg.Engine.RaceTimeout
	}
	store := cache.NewStore(backend, opts.Logger, opts.Metrics)
	return New(providers, store, opts), nil
}

func buildProviders(cfg config.ProvidersConfig) ([]provider.Provider, error) {
	providers := make([]provider.Provider, 0, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		switch name {
		case "coingecko":
			if cfg.CoinGecko.BaseURL != "" {
				providers = append(providers, coingecko.NewWithBaseURL(cfg.CoinGecko.APIKey, cfg.CoinGecko.BaseURL))
			} else {
				providers = append(providers, coingecko.New(cfg.CoinGecko.APIKey))
			}
		case "coinpaprika":
			if cfg.CoinPaprika.BaseURL != "" {
				providers = append(providers, coinpaprika.NewWithBaseURL(cfg.CoinPaprika.APIKey, cfg.CoinPaprika.BaseURL))
			} else {
				providers = append(providers, coinpaprika.New(cfg.CoinPaprika.APIKey))
			}
		case "binance":
			if cfg.Binance.BaseURL != "" {
				providers = append(providers, binance.NewWithBaseURL(cfg.Binance.BaseURL))
			} else {
				providers = append(providers, binance.New())
			}
		default:
			return nil, marketfall.WrapError(marketfall.ErrConfigInvalid,
				fmt.Errorf("unknown provider %q", name))
		}
	}
	return providers, nil
}

func buildBackend(cfg config.CacheConfig) (cache.Backend, error) {
	switch cfg.Type {
	case "", "memory":
		return cache.NewMemory(), nil
	case "localfs":
		return cache.NewLocalFS(cfg.Path)
	case "s3":
		return cache.NewS3(cache.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	case "redis":
		return cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}), nil
	default:
		return nil, marketfall.WrapError(marketfall.ErrConfigInvalid,
			fmt.Errorf("unknown cache type %q", cfg.Type))
	}
}
