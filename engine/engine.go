// Package engine drives a query from an optimistic cache serve through
// the provider race to a fresh, stale or synthetic resolution.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marketfall/marketfall"
	"github.com/marketfall/marketfall/cache"
	"github.com/marketfall/marketfall/metrics"
	"github.com/marketfall/marketfall/provider"
	"github.com/marketfall/marketfall/provider/binance"
	"github.com/marketfall/marketfall/provider/coingecko"
	"github.com/marketfall/marketfall/provider/coinpaprika"
	"github.com/marketfall/marketfall/race"
)

// State names a position in the acquisition lifecycle.
type State string

const (
	StateIdle              State = "idle"
	StateCacheServed       State = "cache_served"
	StateFetching          State = "fetching"
	StateResolvedFresh     State = "resolved_fresh"
	StateResolvedSynthetic State = "resolved_synthetic"
	StateFailed            State = "failed"
)

func (s State) String() string {
	return string(s)
}

// Update is one emission of a fetch. A fetch emits at most one
// optimistic cache serve, then exactly one terminal update, then the
// channel closes. A superseded fetch closes without a terminal update.
type Update struct {
	State  State
	Series marketfall.Series

	// Stale marks a series re-presented from cache rather than freshly
	// acquired.
	Stale bool

	// Synthetic marks the built-in fallback series.
	Synthetic bool

	// Warn carries the degradation cause when the series is stale or
	// synthetic. The result is still usable.
	Warn error

	// Err is set only on StateFailed.
	Err error

	// Seq is the issuance number of the fetch that produced this update.
	Seq uint64
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Logger      *zap.Logger
	Metrics     *metrics.Registry
	RaceTimeout time.Duration
	Clock       func() time.Time
}

// Engine races providers for series data, keeping the cache warm and
// degrading to stale or synthetic data instead of failing.
type Engine struct {
	providers []provider.Provider
	store     *cache.Store
	log       *zap.Logger
	metrics   *metrics.Registry
	timeout   time.Duration
	now       func() time.Time

	// seq orders fetch issuances; a resolution is dropped unless its
	// sequence is still the latest.
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// New creates an engine over the given providers and cache store.
func New(providers []provider.Provider, store *cache.Store, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	timeout := opts.RaceTimeout
	if timeout <= 0 {
		timeout = race.DefaultTimeout
	}
	return &Engine{
		providers: providers,
		store:     store,
		log:       log,
		metrics:   opts.Metrics,
		timeout:   timeout,
		now:       now,
	}
}

// Default wires the engine most callers want: the three public
// providers racing over an in-memory cache.
func Default(opts Options) *Engine {
	providers := []provider.Provider{
		coingecko.New(""),
		coinpaprika.New(""),
		binance.New(),
	}
	store := cache.NewStore(cache.NewMemory(), opts.Logger, opts.Metrics)
	return New(providers, store, opts)
}

// Fetch starts acquiring the series for a query. The returned channel
// emits an optimistic StateCacheServed update when the cache holds the
// key, then exactly one terminal update, then closes. Issuing a new
// Fetch supersedes any fetch still in flight: the older one is
// canceled and its resolutions are dropped without reaching either the
// channel or the cache.
func (e *Engine) Fetch(ctx context.Context, q marketfall.Query) <-chan Update {
	// Two slots: the optimistic serve and the terminal update. Sends
	// never block, so a caller that stops reading cannot leak the
	// fetch goroutine.
	updates := make(chan Update, 2)

	e.mu.Lock()
	e.seq++
	seq := e.seq
	if e.cancel != nil {
		e.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	go func() {
		defer cancel()
		e.run(fctx, q, seq, updates)
	}()
	return updates
}

// FetchLatest blocks until the fetch finishes and returns its terminal
// update. A superseded fetch returns ErrSuperseded; StateFailed
// returns the update's error.
func (e *Engine) FetchLatest(ctx context.Context, q marketfall.Query) (Update, error) {
	var last Update
	seen := false
	for update := range e.Fetch(ctx, q) {
		last = update
		seen = true
	}
	if !seen {
		return Update{}, marketfall.ErrSuperseded
	}
	if last.Err != nil {
		return last, last.Err
	}
	return last, nil
}

func (e *Engine) latest(seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return seq == e.seq
}

func (e *Engine) recordFetch(state State) {
	if e.metrics != nil {
		e.metrics.RecordFetch(string(state))
	}
}

func (e *Engine) run(ctx context.Context, q marketfall.Query, seq uint64, updates chan<- Update) {
	defer close(updates)

	log := e.log.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("coin", q.CoinID),
		zap.String("metric", string(q.Metric)),
		zap.String("timeframe", string(q.Timeframe)),
		zap.Uint64("seq", seq),
	)

	// Dropped entirely once a newer fetch has been issued.
	emit := func(u Update) bool {
		if !e.latest(seq) {
			log.Debug("dropping superseded update", zap.Stringer("state", u.State))
			return false
		}
		u.Seq = seq
		updates <- u
		return true
	}

	if err := q.Validate(); err != nil {
		log.Warn("invalid query", zap.Error(err))
		e.recordFetch(StateFailed)
		emit(Update{State: StateFailed, Err: err})
		return
	}

	// Optimistic serve: a cached series goes out immediately, flagged
	// stale, while the race refreshes it.
	var cached *cache.Entry
	if entry, ok, err := e.store.Load(ctx, q.CoinID, q.Metric); err != nil {
		log.Warn("cache read failed", zap.Error(err))
	} else if ok {
		cached = &entry
		log.Debug("serving cache while fetching",
			zap.Int("points", len(entry.Series)),
			zap.Time("saved_at", entry.SavedAt))
		if !emit(Update{State: StateCacheServed, Series: entry.Series, Stale: true}) {
			return
		}
	}

	log.Debug("state change", zap.Stringer("state", StateFetching))
	outcome, raceErr := race.Run(ctx, e.providers, q, race.Options{
		Timeout: e.timeout,
		Logger:  log,
		Metrics: e.metrics,
	})

	if raceErr == nil {
		if !e.latest(seq) {
			log.Debug("dropping superseded resolution", zap.String("winner", outcome.Winner))
			return
		}
		if err := e.store.Save(ctx, q.CoinID, q.Metric, outcome.Series); err != nil {
			log.Warn("cache write failed", zap.Error(err))
		}
		log.Info("resolved fresh",
			zap.String("winner", outcome.Winner),
			zap.Duration("elapsed", outcome.Elapsed),
			zap.Int("points", len(outcome.Series)))
		e.recordFetch(StateResolvedFresh)
		emit(Update{State: StateResolvedFresh, Series: outcome.Series})
		return
	}

	// The caller going away (or a supersede) is the one path with no
	// usable result to degrade to.
	if ctx.Err() != nil {
		if e.latest(seq) {
			log.Warn("fetch canceled", zap.Error(raceErr))
			e.recordFetch(StateFailed)
			emit(Update{State: StateFailed, Err: raceErr})
		}
		return
	}

	log.Warn("all providers failed", zap.Error(raceErr))

	// Stale cache beats synthetic data.
	if cached != nil {
		if err := e.store.MarkStale(ctx, q.CoinID, q.Metric); err != nil {
			log.Warn("marking cache stale failed", zap.Error(err))
		}
		e.recordFetch(StateCacheServed)
		emit(Update{State: StateCacheServed, Series: cached.Series, Stale: true, Warn: raceErr})
		return
	}

	series := Synthetic(q, e.now())
	log.Warn("serving synthetic fallback", zap.Int("points", len(series)))
	e.recordFetch(StateResolvedSynthetic)
	emit(Update{State: StateResolvedSynthetic, Series: series, Synthetic: true, Warn: raceErr})
}
