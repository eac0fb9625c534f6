// Package coinpaprika adapts the CoinPaprika historical tickers API.
package coinpaprika

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketfall/marketfall"
	"github.com/marketfall/marketfall/provider"
)

const baseURL = "https://api.coinpaprika.com"

// Free plan serves at most one year of history.
const maxLookback = 365 * 24 * time.Hour

// CoinPaprika implements the provider interface over
// /v1/tickers/{id}/historical. Every tick carries price, volume and
// market cap together.
type CoinPaprika struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a new CoinPaprika provider
func New(apiKey string) *CoinPaprika {
	return &CoinPaprika{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		now:     time.Now,
	}
}

// NewWithBaseURL creates a CoinPaprika provider with custom base URL (for testing)
func NewWithBaseURL(apiKey, url string) *CoinPaprika {
	c := New(apiKey)
	c.baseURL = url
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func (c *CoinPaprika) Name() string {
	return "coinpaprika"
}

// historical tick as served by /v1/tickers/{id}/historical
type historicalTick struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume24h float64   `json:"volume_24h"`
	MarketCap float64   `json:"market_cap"`
}

// timeframeInterval picks the closest interval the API supports.
func timeframeInterval(tf marketfall.Timeframe) string {
	switch tf {
	case marketfall.TimeframeDay:
		return "1h"
	case marketfall.TimeframeWeek:
		return "6h"
	case marketfall.TimeframeMonth:
		return "12h"
	default:
		return "7d"
	}
}

// FetchSeries fetches the full series for a query in one request.
func (c *CoinPaprika) FetchSeries(ctx context.Context, q marketfall.Query) (marketfall.Series, error) {
	coin, err := provider.MustResolve(q.CoinID)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	now := c.now()
	start, _ := q.Timeframe.Window(now)
	if earliest := now.Add(-maxLookback); start.Before(earliest) {
		start = earliest
	}

	url := fmt.Sprintf("%s/v1/tickers/%s/historical?start=%d&interval=%s",
		c.baseURL, coin.PaprikaID, start.Unix(), timeframeInterval(q.Timeframe))

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, marketfall.WrapError(marketfall.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, marketfall.UpstreamStatus(resp.StatusCode)
	}

	var ticks []historicalTick
	if err := json.NewDecoder(resp.Body).Decode(&ticks); err != nil {
		return nil, marketfall.WrapError(marketfall.ErrDecode, err)
	}
	if len(ticks) == 0 {
		return nil, marketfall.WrapError(marketfall.ErrEmptyResult, fmt.Errorf("no ticks for %s", coin.PaprikaID))
	}

	series := make(marketfall.Series, 0, len(ticks))
	for _, tick := range ticks {
		series = append(series, marketfall.TimeSeriesPoint{
			Timestamp: tick.Timestamp.UTC(),
			Price:     tick.Price,
			Volume:    tick.Volume24h,
			MarketCap: tick.MarketCap,
		})
	}
	return series.Normalize(), nil
}
