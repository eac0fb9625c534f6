package marketfall

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Metric selects which axis of market data a query is about.
type Metric string

const (
	MetricPrice     Metric = "price"
	MetricVolume    Metric = "volume"
	MetricMarketCap Metric = "market_cap"
)

// ParseMetric converts user input to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "price":
		return MetricPrice, nil
	case "volume", "vol":
		return MetricVolume, nil
	case "market_cap", "marketcap", "mcap":
		return MetricMarketCap, nil
	}
	return "", WrapError(ErrInvalidQuery, fmt.Errorf("unknown metric %q", s))
}

// Timeframe is the chart window requested by the caller. Each timeframe maps
// deterministically to a lookback window and a sampling step.
type Timeframe string

const (
	TimeframeDay        Timeframe = "1d"
	TimeframeWeek       Timeframe = "7d"
	TimeframeMonth      Timeframe = "30d"
	TimeframeYear       Timeframe = "1y"
	TimeframeThreeYears Timeframe = "3y"
	TimeframeAll        Timeframe = "all"
)

// ParseTimeframe converts user input to a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1d", "day", "24h":
		return TimeframeDay, nil
	case "7d", "week", "1w":
		return TimeframeWeek, nil
	case "30d", "month", "1m":
		return TimeframeMonth, nil
	case "1y", "year", "365d":
		return TimeframeYear, nil
	case "3y", "threeyears":
		return TimeframeThreeYears, nil
	case "all", "max":
		return TimeframeAll, nil
	}
	return "", WrapError(ErrInvalidQuery, fmt.Errorf("unknown timeframe %q", s))
}

// Lookback returns the window length for the timeframe. TimeframeAll returns
// zero: adapters substitute their provider's maximum range.
func (tf Timeframe) Lookback() time.Duration {
	switch tf {
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	case TimeframeYear:
		return 365 * 24 * time.Hour
	case TimeframeThreeYears:
		return 3 * 365 * 24 * time.Hour
	case TimeframeAll:
		return 0
	}
	return 24 * time.Hour
}

// Step returns the sampling interval for the timeframe.
func (tf Timeframe) Step() time.Duration {
	switch tf {
	case TimeframeDay:
		return time.Hour
	case TimeframeWeek:
		return 4 * time.Hour
	case TimeframeMonth:
		return 12 * time.Hour
	case TimeframeYear, TimeframeThreeYears, TimeframeAll:
		return 7 * 24 * time.Hour
	}
	return time.Hour
}

// Window computes the (start, end) range for a fetch issued at now.
// For TimeframeAll start is the zero time; adapters clamp it themselves.
func (tf Timeframe) Window(now time.Time) (start, end time.Time) {
	end = now.UTC()
	if lb := tf.Lookback(); lb > 0 {
		start = end.Add(-lb)
	}
	return start, end
}

// Query identifies one time series to acquire. Queries are transient: they
// are built per user interaction and passed by value.
type Query struct {
	CoinID    string    `json:"coin_id"`
	Timeframe Timeframe `json:"timeframe"`
	Metric    Metric    `json:"metric"`
}

// Validate checks that the query names a coin and uses known enum values.
func (q Query) Validate() error {
	if strings.TrimSpace(q.CoinID) == "" {
		return WrapError(ErrInvalidQuery, fmt.Errorf("coin id is empty"))
	}
	switch q.Timeframe {
	case TimeframeDay, TimeframeWeek, TimeframeMonth, TimeframeYear, TimeframeThreeYears, TimeframeAll:
	default:
		return WrapError(ErrInvalidQuery, fmt.Errorf("unknown timeframe %q", q.Timeframe))
	}
	switch q.Metric {
	case MetricPrice, MetricVolume, MetricMarketCap:
	default:
		return WrapError(ErrInvalidQuery, fmt.Errorf("unknown metric %q", q.Metric))
	}
	return nil
}

func (q Query) String() string {
	return fmt.Sprintf("%s/%s/%s", q.CoinID, q.Metric, q.Timeframe)
}

// TimeSeriesPoint is one sample of a market-data series. Fields a provider
// does not supply are zero, never omitted.
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"ts"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	MarketCap float64   `json:"market_cap"`
}

// Value returns the sample on the requested metric axis.
func (p TimeSeriesPoint) Value(m Metric) float64 {
	switch m {
	case MetricVolume:
		return p.Volume
	case MetricMarketCap:
		return p.MarketCap
	default:
		return p.Price
	}
}

// Series is an ordered sequence of samples.
type Series []TimeSeriesPoint

// Empty reports whether the series carries no samples. An empty series is
// never a valid provider success.
func (s Series) Empty() bool { return len(s) == 0 }

// Normalize sorts the series ascending by timestamp, converts timestamps to
// UTC and collapses duplicate timestamps keeping the later sample. It is
// idempotent and returns the (possibly shortened) slice.
func (s Series) Normalize() Series {
	if len(s) == 0 {
		return s
	}
	for i := range s {
		s[i].Timestamp = s[i].Timestamp.UTC()
	}
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Timestamp.Before(s[j].Timestamp)
	})
	out := s[:1]
	for _, p := range s[1:] {
		if p.Timestamp.Equal(out[len(out)-1].Timestamp) {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// Sorted reports whether the series already satisfies the ordering
// invariant: ascending, no duplicate timestamps.
func (s Series) Sorted() bool {
	for i := 1; i < len(s); i++ {
		if !s[i-1].Timestamp.Before(s[i].Timestamp) {
			return false
		}
	}
	return true
}

// First and Last return boundary samples; both are zero values on an empty
// series.
func (s Series) First() TimeSeriesPoint {
	if len(s) == 0 {
		return TimeSeriesPoint{}
	}
	return s[0]
}

func (s Series) Last() TimeSeriesPoint {
	if len(s) == 0 {
		return TimeSeriesPoint{}
	}
	return s[len(s)-1]
}
