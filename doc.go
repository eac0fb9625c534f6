// Package marketfall defines the shared data model for the multi-source
// market-data acquisition engine: time-series points, queries, the metric
// and timeframe enums, the error taxonomy, and the boundary JSON Value type.
//
// Conventions:
//   - Timestamps: time.Time in UTC; provider epochs (ms or s) are converted
//     at the adapter boundary
//   - Series: ascending by timestamp, unique timestamps (see Series.Normalize)
//   - Coin identifiers: CoinGecko-style slugs ("bitcoin", "ethereum")
//
// The packages provider, race, cache, engine and threecommas build on these
// types; callers normally construct an engine.Engine and feed it Queries.
package marketfall
