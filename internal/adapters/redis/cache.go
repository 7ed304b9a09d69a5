package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// GetLibraryConfig returns the cached config for a library, or nil on a miss.
func (c *Cache) GetLibraryConfig(ctx context.Context, libraryID string) (*domain.LibraryConfig, error) {
	val, err := c.client.Get(ctx, "libcfg:"+libraryID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg domain.LibraryConfig
	if err := json.Unmarshal(val, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Cache) SetLibraryConfig(ctx context.Context, cfg *domain.LibraryConfig, ttl time.Duration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "libcfg:"+cfg.ID, data, ttl).Err()
}

func (c *Cache) InvalidateLibraryConfig(ctx context.Context, libraryID string) error {
	return c.client.Del(ctx, "libcfg:"+libraryID).Err()
}
