package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketfall/marketfall"
	"github.com/marketfall/marketfall/metrics"
)

const keyNamespace = "series"

// Entry is the persisted form of a cached series.
type Entry struct {
	Series  marketfall.Series `json:"series"`
	SavedAt time.Time         `json:"saved_at"`
	Stale   bool              `json:"stale"`
}

// Key builds the backend key for one coin and metric. The timeframe is
// deliberately left out: a fetch for the same coin and metric always
// supersedes the stored series whatever range it covered, and any
// stored range can stand in while the providers are down.
func Key(coinID string, metric marketfall.Metric) string {
	return fmt.Sprintf("%s:%s:%s", keyNamespace, coinID, metric)
}

// Store reads and writes series entries through a Backend. Writes to
// the same key are serialized; reads run concurrently.
type Store struct {
	backend Backend
	log     *zap.Logger
	metrics *metrics.Registry
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store over the given backend. Logger and metrics
// may be nil.
func NewStore(backend Backend, log *zap.Logger, m *metrics.Registry) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		backend: backend,
		log:     log,
		metrics: m,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *Store) recordRead(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCacheRead(outcome)
	}
}

// Load retrieves the entry for a coin and metric. A miss returns
// ok=false with a nil error.
func (s *Store) Load(ctx context.Context, coinID string, metric marketfall.Metric) (Entry, bool, error) {
	key := Key(coinID, metric)

	data, err := s.backend.Read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.recordRead("miss")
			return Entry{}, false, nil
		}
		s.recordRead("error")
		return Entry{}, false, fmt.Errorf("reading %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.recordRead("error")
		return Entry{}, false, marketfall.WrapError(marketfall.ErrDecode, fmt.Errorf("entry %s: %w", key, err))
	}

	s.recordRead("hit")
	return entry, true, nil
}

// Save stores a fresh series for a coin and metric, clearing the stale
// flag.
func (s *Store) Save(ctx context.Context, coinID string, metric marketfall.Metric, series marketfall.Series) error {
	key := Key(coinID, metric)
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	entry := Entry{
		Series:  series.Normalize(),
		SavedAt: s.now().UTC(),
		Stale:   false,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.backend.Write(ctx, key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}

	s.log.Debug("cache saved",
		zap.String("key", key),
		zap.Int("points", len(entry.Series)))
	return nil
}

// MarkStale flags the stored entry for a coin and metric as stale.
// Marking an absent key is a no-op.
func (s *Store) MarkStale(ctx context.Context, coinID string, metric marketfall.Metric) error {
	key := Key(coinID, metric)
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	data, err := s.backend.Read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return marketfall.WrapError(marketfall.ErrDecode, fmt.Errorf("entry %s: %w", key, err))
	}
	if entry.Stale {
		return nil
	}

	entry.Stale = true
	data, err = json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.backend.Write(ctx, key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}

	s.log.Debug("cache marked stale", zap.String("key", key))
	return nil
}

// Delete removes the entry for a coin and metric.
func (s *Store) Delete(ctx context.Context, coinID string, metric marketfall.Metric) error {
	key := Key(coinID, metric)
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	return s.backend.Delete(ctx, key)
}

// Has checks whether an entry exists for a coin and metric.
func (s *Store) Has(ctx context.Context, coinID string, metric marketfall.Metric) (bool, error) {
	return s.backend.Exists(ctx, Key(coinID, metric))
}

// Keys lists every stored series key.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	return s.backend.List(ctx, keyNamespace+":")
}
