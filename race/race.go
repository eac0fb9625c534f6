// Package race fans a query out to every provider at once and keeps
// the first useful answer.
package race

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/marketfall/marketfall"
	"github.com/marketfall/marketfall/metrics"
	"github.com/marketfall/marketfall/provider"
)

// DefaultTimeout bounds a race so one hung provider cannot stall it.
const DefaultTimeout = 15 * time.Second

// Outcome is the winning result of a race.
type Outcome struct {
	Series  marketfall.Series
	Winner  string
	Elapsed time.Duration
}

// Options tune a single race.
type Options struct {
	Timeout time.Duration // overall deadline, DefaultTimeout when zero
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

type result struct {
	name    string
	series  marketfall.Series
	err     error
	elapsed time.Duration
}

// Run starts every provider concurrently and returns as soon as one
// delivers a non-empty series, canceling the rest. Providers carry no
// priority: whoever answers first wins. When every provider fails (an
// empty series counts as a failure) the per-provider causes are joined
// under ALL_PROVIDERS_FAILED.
func Run(ctx context.Context, providers []provider.Provider, q marketfall.Query, opts Options) (Outcome, error) {
	if len(providers) == 0 {
		return Outcome{}, marketfall.WrapError(marketfall.ErrAllProvidersFailed,
			errors.New("no providers configured"))
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()

	// Buffered so losers finishing after the winner never block.
	results := make(chan result, len(providers))
	for _, p := range providers {
		go func(p provider.Provider) {
			t0 := time.Now()
			series, err := p.FetchSeries(ctx, q)
			if err == nil && series.Empty() {
				err = marketfall.WrapError(marketfall.ErrEmptyResult,
					fmt.Errorf("%s returned no points", p.Name()))
			}
			results <- result{name: p.Name(), series: series, err: err, elapsed: time.Since(t0)}
		}(p)
	}

	failures := make([]error, 0, len(providers))
	for range providers {
		select {
		case res := <-results:
			observe(opts.Metrics, res)
			if res.err != nil {
				log.Debug("provider failed",
					zap.String("provider", res.name),
					zap.Duration("elapsed", res.elapsed),
					zap.Error(res.err))
				failures = append(failures, fmt.Errorf("%s: %w", res.name, res.err))
				continue
			}

			cancel()
			elapsed := time.Since(started)
			log.Debug("provider won race",
				zap.String("provider", res.name),
				zap.Duration("elapsed", elapsed),
				zap.Int("points", len(res.series)))
			if opts.Metrics != nil {
				opts.Metrics.RecordRace(res.name, elapsed.Seconds())
			}
			return Outcome{Series: res.series, Winner: res.name, Elapsed: elapsed}, nil

		case <-ctx.Done():
			failures = append(failures, ctx.Err())
			return loss(opts.Metrics, started, failures)
		}
	}

	return loss(opts.Metrics, started, failures)
}

func loss(m *metrics.Registry, started time.Time, failures []error) (Outcome, error) {
	if m != nil {
		m.RecordRace("", time.Since(started).Seconds())
	}
	return Outcome{}, marketfall.WrapError(marketfall.ErrAllProvidersFailed, errors.Join(failures...))
}

func observe(m *metrics.Registry, res result) {
	if m == nil {
		return
	}
	m.RecordProviderRequest(res.name, metrics.Outcome(res.err), res.elapsed.Seconds())
}
