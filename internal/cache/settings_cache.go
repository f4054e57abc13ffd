package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deskops/itsm-service/internal/domain"
)

// ErrMiss is returned when no cached entry exists.
var ErrMiss = errors.New("cache miss")

// Generation versions a tenant's cached settings. Invalidate bumps it, so an
// entry written under an older generation is never read again.
type Generation int64

// SettingsCache stores per-tenant notification settings.
//
// Get reports the generation it looked under, also on a miss. Callers that load
// from Postgres after a miss pass that generation to Set; if a mutation
// invalidated in between, the write lands under a key no reader uses.
type SettingsCache interface {
	Get(ctx context.Context, tenantID string) (*domain.NotificationSettings, Generation, error)
	Set(ctx context.Context, settings *domain.NotificationSettings, gen Generation) error
	Invalidate(ctx context.Context, tenantID string) error
}

type redisSettingsCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisSettingsCache stores settings as JSON under prefix+tenantID+":v"+generation.
// A nil client yields a cache that always misses.
func NewRedisSettingsCache(client redis.Cmdable, prefix string, ttl time.Duration) SettingsCache {
	if client == nil {
		return noopCache{}
	}
	return &redisSettingsCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *redisSettingsCache) genKey(tenantID string) string {
	return c.prefix + tenantID + ":gen"
}

func (c *redisSettingsCache) key(tenantID string, gen Generation) string {
	return fmt.Sprintf("%s%s:v%d", c.prefix, tenantID, gen)
}

func (c *redisSettingsCache) generation(ctx context.Context, tenantID string) (Generation, error) {
	n, err := c.client.Get(ctx, c.genKey(tenantID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get settings generation: %w", err)
	}
	return Generation(n), nil
}

func (c *redisSettingsCache) Get(ctx context.Context, tenantID string) (*domain.NotificationSettings, Generation, error) {
	gen, err := c.generation(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	raw, err := c.client.Get(ctx, c.key(tenantID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, ErrMiss
	}
	if err != nil {
		return nil, gen, fmt.Errorf("get settings: %w", err)
	}
	var settings domain.NotificationSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, gen, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, gen, nil
}

func (c *redisSettingsCache) Set(ctx context.Context, settings *domain.NotificationSettings, gen Generation) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return c.client.Set(ctx, c.key(settings.TenantID, gen), raw, c.ttl).Err()
}

// Invalidate moves the tenant to a new generation. Entries of older generations
// expire on their TTL.
func (c *redisSettingsCache) Invalidate(ctx context.Context, tenantID string) error {
	return c.client.Incr(ctx, c.genKey(tenantID)).Err()
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.NotificationSettings, Generation, error) {
	return nil, 0, ErrMiss
}

func (noopCache) Set(context.Context, *domain.NotificationSettings, Generation) error { return nil }

func (noopCache) Invalidate(context.Context, string) error { return nil }
