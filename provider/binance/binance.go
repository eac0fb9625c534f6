// Package binance adapts the Binance klines API.
//
// Klines are exchange data: they carry price and traded volume but no
// market capitalization, so points are served with a zero market cap.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketfall/marketfall"
	"github.com/marketfall/marketfall/provider"
)

const baseURL = "https://api.binance.com"

// klines caps a single response at 1000 rows
const klineLimit = 1000

// Binance implements the provider interface over /api/v3/klines.
type Binance struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a new Binance provider. Klines are public, no key needed.
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		now:     time.Now,
	}
}

// NewWithBaseURL creates a Binance provider with custom base URL (for testing)
func NewWithBaseURL(url string) *Binance {
	b := New()
	b.baseURL = url
	b.limiter = rate.NewLimiter(rate.Inf, 1)
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// timeframeInterval maps a timeframe to a native kline interval.
func timeframeInterval(tf marketfall.Timeframe) string {
	switch tf {
	case marketfall.TimeframeDay:
		return "1h"
	case marketfall.TimeframeWeek:
		return "4h"
	case marketfall.TimeframeMonth:
		return "12h"
	default:
		return "1w"
	}
}

// FetchSeries fetches the full series for a query in one request.
func (b *Binance) FetchSeries(ctx context.Context, q marketfall.Query) (marketfall.Series, error) {
	coin, err := provider.MustResolve(q.CoinID)
	if err != nil {
		return nil, err
	}
	symbol := coin.Symbol + "USDT"

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		b.baseURL, symbol, timeframeInterval(q.Timeframe), klineLimit)
	if q.Timeframe != marketfall.TimeframeAll {
		start, end := q.Timeframe.Window(b.now())
		url += fmt.Sprintf("&startTime=%d&endTime=%d", start.UnixMilli(), end.UnixMilli())
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, marketfall.WrapError(marketfall.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, marketfall.UpstreamStatus(resp.StatusCode)
	}

	// Rows mix numbers and strings, so they are decoded as tagged
	// values and every field access is checked.
	var rows []marketfall.Value
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, marketfall.WrapError(marketfall.ErrDecode, err)
	}
	if len(rows) == 0 {
		return nil, marketfall.WrapError(marketfall.ErrEmptyResult, fmt.Errorf("no klines for %s", symbol))
	}

	series := make(marketfall.Series, 0, len(rows))
	for i, row := range rows {
		point, err := parseKline(row)
		if err != nil {
			return nil, marketfall.WrapError(marketfall.ErrDecode, fmt.Errorf("kline %d: %w", i, err))
		}
		series = append(series, point)
	}
	return series.Normalize(), nil
}

// parseKline converts one kline row:
//
//	[openTime, "open", "high", "low", "close", "volume",
//	 closeTime, "quoteVolume", trades, ...]
//
// Price is the close; volume is the quote-asset volume, which is
// USD-denominated for *USDT pairs and therefore comparable with the
// other sources.
func parseKline(row marketfall.Value) (marketfall.TimeSeriesPoint, error) {
	var zero marketfall.TimeSeriesPoint

	if row.Kind() != marketfall.KindArray || row.Len() < 8 {
		return zero, fmt.Errorf("row has %d fields, want at least 8", row.Len())
	}

	openTime, err := klineInt(row, 0)
	if err != nil {
		return zero, err
	}
	closePrice, err := klineFloat(row, 4)
	if err != nil {
		return zero, err
	}
	quoteVolume, err := klineFloat(row, 7)
	if err != nil {
		return zero, err
	}

	return marketfall.TimeSeriesPoint{
		Timestamp: time.UnixMilli(openTime).UTC(),
		Price:     closePrice,
		Volume:    quoteVolume,
	}, nil
}

func klineInt(row marketfall.Value, idx int) (int64, error) {
	v, ok := row.Index(idx)
	if !ok {
		return 0, fmt.Errorf("field %d missing", idx)
	}
	n, ok := v.Int64()
	if !ok {
		return 0, fmt.Errorf("field %d is %s, want integer", idx, v.Kind())
	}
	return n, nil
}

func klineFloat(row marketfall.Value, idx int) (float64, error) {
	v, ok := row.Index(idx)
	if !ok {
		return 0, fmt.Errorf("field %d missing", idx)
	}
	s, ok := v.Str()
	if !ok {
		return 0, fmt.Errorf("field %d is %s, want string", idx, v.Kind())
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("field %d: %w", idx, err)
	}
	return f, nil
}
