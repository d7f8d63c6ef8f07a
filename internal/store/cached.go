package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/Farmer96/LuckGen/internal/models"
)

const cacheKey = "config"

// Cached serves Load from a short-lived cache so that polling readers do not
// hit the backend on every refresh. Concurrent misses share one backend read.
// Save is write-through. Writers that must see the latest document call
// LoadLatest, which always reads the backend.
type Cached struct {
	inner ConfigStore
	lru   *expirable.LRU[string, *models.LotteryConfig]
	group singleflight.Group
}

// NewCached wraps inner with a cache whose entries live for ttl.
func NewCached(inner ConfigStore, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		lru:   expirable.NewLRU[string, *models.LotteryConfig](1, nil, ttl),
	}
}

// Load returns a copy of the cached document, reading through on a miss.
func (c *Cached) Load(ctx context.Context) (*models.LotteryConfig, error) {
	if cfg, ok := c.lru.Get(cacheKey); ok {
		return cfg.Clone(), nil
	}

	// The read is shared with other waiters, so it must not die with the
	// caller that happened to start it.
	v, err, _ := c.group.Do(cacheKey, func() (interface{}, error) {
		cfg, err := c.inner.Load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.lru.Add(cacheKey, cfg)
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.LotteryConfig).Clone(), nil
}

// LoadLatest bypasses the cache and refreshes it.
func (c *Cached) LoadLatest(ctx context.Context) (*models.LotteryConfig, error) {
	cfg, err := c.inner.Load(ctx)
	if err != nil {
		if err == ErrNotFound {
			c.lru.Remove(cacheKey)
		}
		return nil, err
	}
	c.lru.Add(cacheKey, cfg.Clone())
	return cfg, nil
}

// Save writes through and refreshes the cache.
func (c *Cached) Save(ctx context.Context, cfg *models.LotteryConfig) error {
	if err := c.inner.Save(ctx, cfg); err != nil {
		c.lru.Remove(cacheKey)
		return err
	}
	c.lru.Add(cacheKey, cfg.Clone())
	return nil
}

// Delete removes the document and drops the cache entry.
func (c *Cached) Delete(ctx context.Context) error {
	c.lru.Remove(cacheKey)
	return c.inner.Delete(ctx)
}
