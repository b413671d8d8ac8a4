package pricegen

import (
	"fmt"
	"sync"
	"time"

	"paper-exchange/internal/infrastructure"
	"paper-exchange/internal/model"

	"go.uber.org/zap"
)

// Service wraps Generate with a short TTL cache. Generation is
// deterministic within a wall-clock hour, so cached results cannot go
// stale inside the TTL window.
type Service struct {
	logger *zap.Logger
	ttl    time.Duration
	clock  func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	series  []model.PricePoint
	expires time.Time
}

func NewService(ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		logger: logger,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// Series returns the hourly series for symbol over the given day window.
func (s *Service) Series(symbol string, days int) ([]model.PricePoint, error) {
	inst, err := Lookup(symbol)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}
	if days > MaxDays {
		days = MaxDays
	}

	now := s.clock()
	key := fmt.Sprintf("%s:%d:%s", symbol, days, now.In(KST).Format("2006010215"))

	s.mu.Lock()
	if e, ok := s.cache[key]; ok && now.Before(e.expires) {
		s.mu.Unlock()
		infrastructure.SeriesCacheHits.Inc()
		return e.series, nil
	}
	s.mu.Unlock()
	infrastructure.SeriesCacheMisses.Inc()

	started := time.Now()
	series := Generate(inst, days, now)
	infrastructure.SeriesGenerateLatency.WithLabelValues(symbol).Observe(time.Since(started).Seconds())

	s.mu.Lock()
	s.cache[key] = cacheEntry{series: series, expires: now.Add(s.ttl)}
	// Drop entries from previous hours so the map does not grow unbounded.
	for k, e := range s.cache {
		if !now.Before(e.expires) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	s.logger.Debug("generated price series",
		zap.String("symbol", symbol),
		zap.Int("days", days),
		zap.Int("points", len(series)),
	)
	return series, nil
}
