package engine

import (
	"time"

	"github.com/marketfall/marketfall"
)

// syntheticValues are the fixed reference points served when neither a
// provider nor the cache can deliver. Deliberately recognizable as
// placeholder data rather than plausible market values.
var syntheticValues = [4]float64{100, 105, 95, 100}

// Synthetic builds the fallback series for a query: four points one
// timeframe step apart ending at now, the queried metric axis carrying
// the reference values.
func Synthetic(q marketfall.Query, now time.Time) marketfall.Series {
	step := q.Timeframe.Step()
	series := make(marketfall.Series, len(syntheticValues))
	for i, v := range syntheticValues {
		p := marketfall.TimeSeriesPoint{
			Timestamp: now.Add(-time.Duration(len(syntheticValues)-1-i) * step).UTC(),
		}
		switch q.Metric {
		case marketfall.MetricVolume:
			p.Volume = v
		case marketfall.MetricMarketCap:
			p.MarketCap = v
		default:
			p.Price = v
		}
		series[i] = p
	}
	return series
}
