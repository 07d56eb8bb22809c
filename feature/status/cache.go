package status

import (
	"context"
	"sync"
	"time"

	"ledger-sync/core/domain"

	"golang.org/x/sync/singleflight"
)

const statsKey = "stats"

// statsCache serves Stats answers for a TTL and collapses concurrent rebuilds into one.
type statsCache struct {
	load func(ctx context.Context) (*domain.Stats, error)
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	value *domain.Stats
	built time.Time
	sf    singleflight.Group
}

func newStatsCache(load func(ctx context.Context) (*domain.Stats, error), ttl time.Duration) *statsCache {
	return &statsCache{load: load, ttl: ttl, now: time.Now}
}

func (c *statsCache) fresh() (*domain.Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == nil || c.ttl <= 0 || c.now().Sub(c.built) > c.ttl {
		return nil, false
	}
	return c.value, true
}

// Get returns the cached stats, rebuilding them when expired.
func (c *statsCache) Get(ctx context.Context) (*domain.Stats, error) {
	if v, ok := c.fresh(); ok {
		return v, nil
	}

	result, err, _ := c.sf.Do(statsKey, func() (any, error) {
		if v, ok := c.fresh(); ok {
			return v, nil
		}
		v, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.value, c.built = v, c.now()
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Stats), nil
}

// Invalidate drops the cached answer.
func (c *statsCache) Invalidate() {
	c.mu.Lock()
	c.value = nil
	c.mu.Unlock()
}
