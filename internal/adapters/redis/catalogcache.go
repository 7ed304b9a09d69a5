package redis

import (
	"context"
	"time"

	"github.com/Unify-India/ekaant-sub000/internal/allocation"
	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
)

// CatalogCache fronts the library catalog with a short-TTL redis cache.
// Cache errors degrade to the backing catalog, never to the caller.
type CatalogCache struct {
	cache  *Cache
	next   allocation.Catalog
	ttl    time.Duration
	logger observability.Logger
}

func NewCatalogCache(cache *Cache, next allocation.Catalog, ttl time.Duration, logger observability.Logger) *CatalogCache {
	return &CatalogCache{cache: cache, next: next, ttl: ttl, logger: logger}
}

func (c *CatalogCache) GetLibrary(ctx context.Context, libraryID string) (*domain.LibraryConfig, error) {
	cached, err := c.cache.GetLibraryConfig(ctx, libraryID)
	if err != nil {
		c.logger.WithError(err).Debug("library config cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	cfg, err := c.next.GetLibrary(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetLibraryConfig(ctx, cfg, c.ttl); err != nil {
		c.logger.WithError(err).Debug("library config cache write failed")
	}
	return cfg, nil
}

// UpsertLibrary writes through to the backing catalog and drops the cached
// copy so the next read sees the new config.
func (c *CatalogCache) UpsertLibrary(ctx context.Context, cfg *domain.LibraryConfig) error {
	if err := c.next.UpsertLibrary(ctx, cfg); err != nil {
		return err
	}
	if err := c.cache.InvalidateLibraryConfig(ctx, cfg.ID); err != nil {
		c.logger.WithError(err).WithField("library_id", cfg.ID).Warn("library config cache invalidation failed")
	}
	return nil
}
