// Package provider defines the contract shared by all upstream
// market-data sources, plus the coin registry that translates
// canonical coin identifiers into provider-native ones.
package provider

import (
	"context"

	"github.com/marketfall/marketfall"
)

// Provider is a single upstream market-data source.
type Provider interface {
	// Name returns the provider identifier (e.g. "binance", "coingecko")
	Name() string

	// FetchSeries fetches the series for a query in a single upstream
	// request. Implementations honor ctx cancellation and return points
	// with UTC timestamps at the provider's native granularity.
	FetchSeries(ctx context.Context, q marketfall.Query) (marketfall.Series, error)
}
