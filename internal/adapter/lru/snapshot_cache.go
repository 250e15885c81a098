// Package lru holds in-process caches: a snapshot cache in front of the
// extractor and an in-memory event log for deployments without Redis.
package lru

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
	"github.com/user/clone-service/pkg/utils"
)

// CachedExtractor serves repeated clones of the same URL from a recent
// snapshot instead of launching the browser again.
type CachedExtractor struct {
	inner repository.SnapshotExtractor
	cache *expirable.LRU[string, *entity.PageSnapshot]
}

// NewCachedExtractor wraps inner. A size <= 0 disables caching and returns
// inner unchanged.
func NewCachedExtractor(inner repository.SnapshotExtractor, size int, ttl time.Duration) repository.SnapshotExtractor {
	if size <= 0 {
		return inner
	}
	return &CachedExtractor{
		inner: inner,
		cache: expirable.NewLRU[string, *entity.PageSnapshot](size, nil, ttl),
	}
}

func (c *CachedExtractor) Extract(ctx context.Context, url string, logf entity.LogFunc) (*entity.PageSnapshot, error) {
	key := utils.HashURL(url)
	if snap, ok := c.cache.Get(key); ok {
		slog.Info("Snapshot cache hit", "url", url)
		if logf != nil {
			logf("Using snapshot captured at " + snap.ExtractedAt.Format(time.RFC3339))
		}
		return snap, nil
	}
	snap, err := c.inner.Extract(ctx, url, logf)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, snap)
	return snap, nil
}
