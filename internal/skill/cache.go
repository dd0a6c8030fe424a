package skill

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a successful load is considered fresh.
const DefaultCacheTTL = 5 * time.Minute

// DefaultLoadTimeout bounds a single reload from the Source.
const DefaultLoadTimeout = 30 * time.Second

// Source supplies the full set of skill stats records.
type Source interface {
	AllSkillStats(ctx context.Context) ([]Record, error)
}

// SourceFunc adapts a plain function into a Source.
type SourceFunc func(ctx context.Context) ([]Record, error)

// AllSkillStats calls f.
func (f SourceFunc) AllSkillStats(ctx context.Context) ([]Record, error) { return f(ctx) }

// StatsCache holds every skill stats record in memory, indexed by lowercase name,
// and reloads the whole set from its Source once the TTL has elapsed.
//
// A failed reload keeps the previous contents and timestamp, so lookups continue
// against stale (or empty) data until a later reload succeeds.
type StatsCache struct {
	source      Source
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger

	mu       sync.RWMutex
	records  map[string]*Record
	loadedAt time.Time

	group singleflight.Group
}

// CacheOption configures a StatsCache.
type CacheOption func(*StatsCache)

// WithTTL overrides DefaultCacheTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *StatsCache) { c.ttl = ttl }
}

// WithLoadTimeout overrides DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *StatsCache) { c.loadTimeout = d }
}

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) CacheOption {
	return func(c *StatsCache) { c.now = now }
}

// NewStatsCache creates an empty cache backed by source.
//
// Precondition: source and logger must be non-nil.
// Postcondition: Returns a cache whose first EnsureLoaded call hits the source.
func NewStatsCache(source Source, logger *zap.Logger, opts ...CacheOption) *StatsCache {
	c := &StatsCache{
		source:      source,
		ttl:         DefaultCacheTTL,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
		logger:      logger,
		records:     make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureLoaded reloads the cache when it is empty or older than the TTL.
// Load failures are logged and swallowed.
//
// Concurrent callers past the TTL share a single reload. The reload is detached
// from ctx and bounded by the load timeout, so cancelling one caller neither
// aborts it nor fails the others; a cancelled caller stops waiting and returns.
func (c *StatsCache) EnsureLoaded(ctx context.Context) {
	if c.fresh() {
		return
	}
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan("reload", func() (any, error) {
		if c.fresh() {
			return nil, nil
		}
		loadCtx, cancel := context.WithTimeout(detached, c.loadTimeout)
		defer cancel()
		c.reload(loadCtx)
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

// Lookup returns the record for skillType, ignoring case.
func (c *StatsCache) Lookup(skillType string) (*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[strings.ToLower(skillType)]
	return r, ok
}

// Len reports the number of cached records.
func (c *StatsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// LoadedAt reports the time of the last successful load, or the zero time.
func (c *StatsCache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

func (c *StatsCache) fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records) > 0 && c.now().Sub(c.loadedAt) < c.ttl
}

func (c *StatsCache) reload(ctx context.Context) {
	start := c.now()
	c.logger.Debug("loading skill stats cache")

	all, err := c.source.AllSkillStats(ctx)
	if err != nil {
		c.logger.Error("loading skill stats cache",
			zap.Error(err),
			zap.Int("retained", c.Len()),
		)
		return
	}

	next := make(map[string]*Record, len(all))
	for i := range all {
		rec := all[i]
		next[strings.ToLower(rec.Name)] = &rec
	}

	c.mu.Lock()
	c.records = next
	c.loadedAt = start
	c.mu.Unlock()

	c.logger.Info("skill stats cache loaded",
		zap.Int("skills", len(next)),
		zap.Duration("elapsed", c.now().Sub(start)),
	)
}
