package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marketfall/marketfall"
	"github.com/marketfall/marketfall/config"
)

func TestFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine.RaceTimeout = 7 * time.Second

	e, err := FromConfig(cfg, Options{})
	require.NoError(t, err)
	require.Len(t, e.providers, 3)
	require.Equal(t, 7*time.Second, e.timeout)
}

func TestFromConfig_SubsetOfProviders(t *testing.T) {
	cfg := config.Defaults()
	cfg.Providers.Enabled = []string{"binance"}
	cfg.Providers.Binance.BaseURL = "http://127.0.0.1:9"

	e, err := FromConfig(cfg, Options{})
	require.NoError(t, err)
	require.Len(t, e.providers, 1)
	require.Equal(t, "binance", e.providers[0].Name())
}

func TestFromConfig_OptionsTimeoutWins(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine.RaceTimeout = 7 * time.Second

	e, err := FromConfig(cfg, Options{RaceTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, time.Second, e.timeout)
}

func TestFromConfig_LocalFSBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.Cache.Type = "localfs"
	cfg.Cache.Path = t.TempDir()

	_, err := FromConfig(cfg, Options{})
	require.NoError(t, err)
}

func TestFromConfig_InvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Providers.Enabled = []string{"kraken"}

	_, err := FromConfig(cfg, Options{})
	require.ErrorIs(t, err, marketfall.ErrConfigInvalid)
}
