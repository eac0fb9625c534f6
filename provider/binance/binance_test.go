package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marketfall/marketfall"
)

const klineFixture = `[
	[1700000000000, "63900.0", "64100.0", "63800.0", "64000.5", "29.7", 1700003599999, "1901000000.0", 1200, "14.1", "903000000.0", "0"],
	[1700003600000, "64000.5", "64300.0", "64000.0", "64100.25", "31.2", 1700007199999, "2000500000.0", 1310, "15.8", "1012000000.0", "0"]
]`

func TestBinance_Name(t *testing.T) {
	b := New()
	if b.Name() != "binance" {
		t.Errorf("expected 'binance', got '%s'", b.Name())
	}
}

func TestTimeframeInterval(t *testing.T) {
	tests := []struct {
		tf   marketfall.Timeframe
		want string
	}{
		{marketfall.TimeframeDay, "1h"},
		{marketfall.TimeframeWeek, "4h"},
		{marketfall.TimeframeMonth, "12h"},
		{marketfall.TimeframeYear, "1w"},
		{marketfall.TimeframeThreeYears, "1w"},
		{marketfall.TimeframeAll, "1w"},
	}

	for _, tc := range tests {
		if got := timeframeInterval(tc.tf); got != tc.want {
			t.Errorf("timeframeInterval(%s) = %s, want %s", tc.tf, got, tc.want)
		}
	}
}

func TestBinance_FetchSeries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		query := r.URL.Query()
		if got := query.Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %s, want BTCUSDT", got)
		}
		if got := query.Get("interval"); got != "1h" {
			t.Errorf("interval = %s, want 1h", got)
		}
		if query.Get("startTime") == "" || query.Get("endTime") == "" {
			t.Error("expected startTime and endTime for bounded timeframe")
		}
		w.Write([]byte(klineFixture))
	}))
	defer server.Close()

	b := NewWithBaseURL(server.URL)
	b.now = func() time.Time { return now }

	series, err := b.FetchSeries(context.Background(), marketfall.Query{
		CoinID: "bitcoin", Timeframe: marketfall.TimeframeDay, Metric: marketfall.MetricPrice,
	})
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}

	if requests != 1 {
		t.Errorf("expected exactly 1 upstream request, got %d", requests)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 points, got %d", len(series))
	}
	if want := time.UnixMilli(1700000000000).UTC(); !series[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", series[0].Timestamp, want)
	}
	if series[0].Price != 64000.5 {
		t.Errorf("price = %f, want close 64000.5", series[0].Price)
	}
	if series[0].Volume != 1901000000.0 {
		t.Errorf("volume = %f, want quote volume 1901000000", series[0].Volume)
	}
	if series[0].MarketCap != 0 {
		t.Errorf("market cap = %f, want 0 (not served by the exchange)", series[0].MarketCap)
	}
}

func TestBinance_FetchSeries_AllOmitsWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("startTime") != "" || query.Get("endTime") != "" {
			t.Error("all-history query should not send a time window")
		}
		if got := query.Get("interval"); got != "1w" {
			t.Errorf("interval = %s, want 1w", got)
		}
		w.Write([]byte(klineFixture))
	}))
	defer server.Close()

	b := NewWithBaseURL(server.URL)
	_, err := b.FetchSeries(context.Background(), marketfall.Query{
		CoinID: "bitcoin", Timeframe: marketfall.TimeframeAll, Metric: marketfall.MetricPrice,
	})
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
}

func TestBinance_FetchSeries_UpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	b := NewWithBaseURL(server.URL)
	_, err := b.FetchSeries(context.Background(), marketfall.Query{
		CoinID: "bitcoin", Timeframe: marketfall.TimeframeDay, Metric: marketfall.MetricPrice,
	})
	if !errors.Is(err, marketfall.ErrUpstreamStatus) {
		t.Fatalf("expected UPSTREAM_STATUS, got %v", err)
	}
}

func TestBinance_FetchSeries_MalformedRow(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"row too short", `[[1700000000000, "1", "2"]]`},
		{"string timestamp", `[["soon", "1", "2", "3", "4", "5", 6, "7"]]`},
		{"unparseable price", `[[1700000000000, "1", "2", "3", "sixty-four", "5", 6, "7"]]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			b := NewWithBaseURL(server.URL)
			_, err := b.FetchSeries(context.Background(), marketfall.Query{
				CoinID: "bitcoin", Timeframe: marketfall.TimeframeDay, Metric: marketfall.MetricPrice,
			})
			if !errors.Is(err, marketfall.ErrDecode) {
				t.Fatalf("expected a decode error, got %v", err)
			}
		})
	}
}

func TestBinance_FetchSeries_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	b := NewWithBaseURL(server.URL)
	_, err := b.FetchSeries(context.Background(), marketfall.Query{
		CoinID: "bitcoin", Timeframe: marketfall.TimeframeDay, Metric: marketfall.MetricPrice,
	})
	if !errors.Is(err, marketfall.ErrEmptyResult) {
		t.Fatalf("expected EMPTY_RESULT, got %v", err)
	}
}

func TestBinance_FetchSeries_UnsupportedCoin(t *testing.T) {
	b := New()
	_, err := b.FetchSeries(context.Background(), marketfall.Query{
		CoinID: "not-a-coin", Timeframe: marketfall.TimeframeDay, Metric: marketfall.MetricPrice,
	})
	if !errors.Is(err, marketfall.ErrUnsupportedCoin) {
		t.Fatalf("expected UNSUPPORTED_COIN, got %v", err)
	}
}

// Integration test - skip in CI
func TestBinance_FetchSeries_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	b := New()
	series, err := b.FetchSeries(context.Background(), marketfall.Query{
		CoinID: "bitcoin", Timeframe: marketfall.TimeframeDay, Metric: marketfall.MetricPrice,
	})
	if err != nil {
		t.Fatalf("FetchSeries failed: %v", err)
	}

	if series.Empty() {
		t.Fatal("expected at least one point")
	}
	for _, p := range series {
		if p.Price <= 0 {
			t.Errorf("expected positive price, got %f", p.Price)
		}
	}
}
