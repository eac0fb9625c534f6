// Package coingecko adapts the CoinGecko market_chart API.
package coingecko

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

const baseURL = "https://api.coingecko.com/api/v3"

// CoinGecko implements the provider interface over /coins/{id}/market_chart.
// One request returns price, market cap and volume together.
type CoinGecko struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// New creates a new CoinGecko provider
func New(apiKey string) *CoinGecko {
	return &CoinGecko{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		// Free tier allows roughly 50 calls/minute.
		limiter: rate.NewLimiter(rate.Every(1200*time.Millisecond), 1),
	}
}

// NewWithBaseURL creates a CoinGecko provider with custom base URL (for testing)
func NewWithBaseURL(apiKey, url string) *CoinGecko {
	c := New(apiKey)
	c.baseURL = url
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func (c *CoinGecko) Name() string {
	return "coingecko"
}

// market_chart response: aligned [ms, value] pairs per metric
type marketChartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// timeframeParams maps a timeframe to the days/interval query values.
// Granularity is automatic below one year (5-minutely for 1 day,
// hourly up to 90 days); daily is requested explicitly beyond that.
func timeframeParams(tf marketfall.Timeframe) (days, interval string) {
	switch tf {
	case marketfall.TimeframeDay:
		return "1", ""
	case marketfall.TimeframeWeek:
		return "7", ""
	case marketfall.TimeframeMonth:
		return "30", ""
	case marketfall.TimeframeYear:
		return "365", "daily"
	case marketfall.TimeframeThreeYears:
		return "1095", "daily"
	default:
		return "max", "daily"
	}
}

// FetchSeries fetches the full series for a query in one request.
func (c *CoinGecko) FetchSeries(ctx context.Context, q marketfall.Query) (marketfall.Series, error) {
	coin, err := provider.MustResolve(q.CoinID)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	days, interval := timeframeParams(q.Timeframe)
	url := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%s", c.baseURL, coin.ID, days)
	if interval != "" {
		url += "&interval=" + interval
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, marketfall.WrapError(marketfall.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, marketfall.UpstreamStatus(resp.StatusCode)
	}

	var chart marketChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, marketfall.WrapError(marketfall.ErrDecode, err)
	}

	series := mergeChart(chart)
	if series.Empty() {
		return nil, marketfall.WrapError(marketfall.ErrEmptyResult, fmt.Errorf("no chart data for %s", coin.ID))
	}
	return series, nil
}

// mergeChart joins the three metric arrays on their millisecond
// timestamps. The arrays are normally aligned but gaps do occur, so
// points missing a metric keep it at zero.
func mergeChart(chart marketChartResponse) marketfall.Series {
	points := make(map[int64]*marketfall.TimeSeriesPoint, len(chart.Prices))

	at := func(ms int64) *marketfall.TimeSeriesPoint {
		p, ok := points[ms]
		if !ok {
			p = &marketfall.TimeSeriesPoint{Timestamp: time.UnixMilli(ms).UTC()}
			points[ms] = p
		}
		return p
	}

	for _, pair := range chart.Prices {
		at(int64(pair[0])).Price = pair[1]
	}
	for _, pair := range chart.MarketCaps {
		at(int64(pair[0])).MarketCap = pair[1]
	}
	for _, pair := range chart.TotalVolumes {
		at(int64(pair[0])).Volume = pair[1]
	}

	series := make(marketfall.Series, 0, len(points))
	for _, p := range points {
		series = append(series, *p)
	}
	return series.Normalize()
}
