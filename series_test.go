package marketfall

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestTimeframe_Lookback(t *testing.T) {
	tests := []struct {
		tf   Timeframe
		want time.Duration
	}{
		{TimeframeDay, 24 * time.Hour},
		{TimeframeWeek, 7 * 24 * time.Hour},
		{TimeframeMonth, 30 * 24 * time.Hour},
		{TimeframeYear, 365 * 24 * time.Hour},
		{TimeframeThreeYears, 3 * 365 * 24 * time.Hour},
		{TimeframeAll, 0},
	}

	for _, tc := range tests {
		if got := tc.tf.Lookback(); got != tc.want {
			t.Errorf("Lookback(%s) = %v, want %v", tc.tf, got, tc.want)
		}
	}
}

func TestTimeframe_Step(t *testing.T) {
	tests := []struct {
		tf   Timeframe
		want time.Duration
	}{
		{TimeframeDay, time.Hour},
		{TimeframeWeek, 4 * time.Hour},
		{TimeframeMonth, 12 * time.Hour},
		{TimeframeYear, 7 * 24 * time.Hour},
		{TimeframeThreeYears, 7 * 24 * time.Hour},
		{TimeframeAll, 7 * 24 * time.Hour},
	}

	for _, tc := range tests {
		if got := tc.tf.Step(); got != tc.want {
			t.Errorf("Step(%s) = %v, want %v", tc.tf, got, tc.want)
		}
	}
}

func TestTimeframe_Window(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	start, end := TimeframeDay.Window(now)
	if !end.Equal(now) {
		t.Errorf("end = %v, want %v", end, now)
	}
	if want := now.Add(-24 * time.Hour); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}

	start, _ = TimeframeAll.Window(now)
	if !start.IsZero() {
		t.Errorf("TimeframeAll start = %v, want zero time", start)
	}
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in      string
		want    Timeframe
		wantErr bool
	}{
		{"1d", TimeframeDay, false},
		{"day", TimeframeDay, false},
		{"week", TimeframeWeek, false},
		{"30d", TimeframeMonth, false},
		{"YEAR", TimeframeYear, false},
		{"3y", TimeframeThreeYears, false},
		{"max", TimeframeAll, false},
		{"century", "", true},
	}

	for _, tc := range tests {
		got, err := ParseTimeframe(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeframe(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeframe(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeframe(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"price", MetricPrice, false},
		{"volume", MetricVolume, false},
		{"vol", MetricVolume, false},
		{"market_cap", MetricMarketCap, false},
		{"mcap", MetricMarketCap, false},
		{"open_interest", "", true},
	}

	for _, tc := range tests {
		got, err := ParseMetric(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMetric(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMetric(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMetric(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestQuery_Validate(t *testing.T) {
	valid := Query{CoinID: "bitcoin", Timeframe: TimeframeDay, Metric: MetricPrice}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid query rejected: %v", err)
	}

	tests := []Query{
		{CoinID: "", Timeframe: TimeframeDay, Metric: MetricPrice},
		{CoinID: "bitcoin", Timeframe: "2d", Metric: MetricPrice},
		{CoinID: "bitcoin", Timeframe: TimeframeDay, Metric: "open"},
	}
	for _, q := range tests {
		if err := q.Validate(); err == nil {
			t.Errorf("Validate(%+v) expected error", q)
		}
	}
}

func TestSeries_Normalize(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s := Series{
		{Timestamp: t0.Add(2 * time.Hour), Price: 3},
		{Timestamp: t0, Price: 1},
		{Timestamp: t0.Add(time.Hour), Price: 2},
		{Timestamp: t0.Add(time.Hour), Price: 2.5}, // duplicate, later sample wins
	}

	got := s.Normalize()
	if len(got) != 3 {
		t.Fatalf("expected 3 points after dedup, got %d", len(got))
	}
	if !got.Sorted() {
		t.Error("normalized series not sorted")
	}
	if got[1].Price != 2.5 {
		t.Errorf("duplicate timestamp kept %f, want later sample 2.5", got[1].Price)
	}

	// Idempotent re-sort.
	again := got.Normalize()
	if len(again) != len(got) {
		t.Errorf("second Normalize changed length: %d -> %d", len(got), len(again))
	}
	for i := range again {
		if !again[i].Timestamp.Equal(got[i].Timestamp) {
			t.Errorf("second Normalize reordered point %d", i)
		}
	}
}

func TestSeries_Normalize_Empty(t *testing.T) {
	var s Series
	if got := s.Normalize(); len(got) != 0 {
		t.Errorf("expected empty series, got %d points", len(got))
	}
}

func TestSeries_JSONRoundTrip(t *testing.T) {
	t0 := time.Date(2025, 3, 15, 8, 30, 0, 0, time.UTC)
	s := Series{
		{Timestamp: t0, Price: 64213.1234567, Volume: 1.9e9, MarketCap: 1.26e12},
		{Timestamp: t0.Add(time.Hour), Price: 64550.00001, Volume: 2.1e9, MarketCap: 1.27e12},
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back Series
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if len(back) != len(s) {
		t.Fatalf("round trip changed length: %d -> %d", len(s), len(back))
	}
	const tol = 1e-9
	for i := range s {
		if !back[i].Timestamp.Equal(s[i].Timestamp) {
			t.Errorf("point %d timestamp changed: %v -> %v", i, s[i].Timestamp, back[i].Timestamp)
		}
		if math.Abs(back[i].Price-s[i].Price) > tol {
			t.Errorf("point %d price drifted: %v -> %v", i, s[i].Price, back[i].Price)
		}
		if math.Abs(back[i].Volume-s[i].Volume) > tol*s[i].Volume {
			t.Errorf("point %d volume drifted: %v -> %v", i, s[i].Volume, back[i].Volume)
		}
		if math.Abs(back[i].MarketCap-s[i].MarketCap) > tol*s[i].MarketCap {
			t.Errorf("point %d market cap drifted: %v -> %v", i, s[i].MarketCap, back[i].MarketCap)
		}
	}
}

func TestTimeSeriesPoint_Value(t *testing.T) {
	p := TimeSeriesPoint{Price: 1, Volume: 2, MarketCap: 3}

	tests := []struct {
		metric Metric
		want   float64
	}{
		{MetricPrice, 1},
		{MetricVolume, 2},
		{MetricMarketCap, 3},
	}
	for _, tc := range tests {
		if got := p.Value(tc.metric); got != tc.want {
			t.Errorf("Value(%s) = %f, want %f", tc.metric, got, tc.want)
		}
	}
}
