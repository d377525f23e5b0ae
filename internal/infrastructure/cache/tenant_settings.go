package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sellerops/fba-fees/internal/domain"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/metrics"
)

const (
	tenantSettingsKeyPrefix = "fba:tenant-settings:"
	cacheName               = "tenant_settings"
)

// Config configures the Redis connection
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisClient creates a client for cfg. Connections are made lazily.
func NewRedisClient(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// TenantSettingsCache is a read-through cache in front of a
// domain.TenantSettingsRepository. Redis failures never fail a request;
// lookups fall through to the wrapped repository.
type TenantSettingsCache struct {
	next    domain.TenantSettingsRepository
	client  *redis.Client
	ttl     time.Duration
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewTenantSettingsCache wraps next. m may be nil.
func NewTenantSettingsCache(next domain.TenantSettingsRepository, client *redis.Client, ttl time.Duration, logger *logging.Logger, m *metrics.Metrics) *TenantSettingsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TenantSettingsCache{
		next:    next,
		client:  client,
		ttl:     ttl,
		logger:  logger.WithComponent("tenant-settings-cache"),
		metrics: m,
	}
}

// FindByTenantID serves settings from Redis, loading and caching them on a miss
func (c *TenantSettingsCache) FindByTenantID(ctx context.Context, tenantID string) (*domain.TenantSettings, error) {
	key := tenantSettingsKey(tenantID)

	val, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var settings domain.TenantSettings
		if jsonErr := json.Unmarshal(val, &settings); jsonErr == nil {
			c.record(true)
			return &settings, nil
		}
		c.logger.Warn("Discarding unreadable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.WithError(err).Warn("Cache read failed", "key", key)
	}
	c.record(false)

	settings, err := c.next.FindByTenantID(ctx, tenantID)
	if err != nil || settings == nil {
		return settings, err
	}

	if data, err := json.Marshal(settings); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WithError(err).Warn("Cache write failed", "key", key)
		}
	}
	return settings, nil
}

// Save writes through to the repository and evicts the cached copy
func (c *TenantSettingsCache) Save(ctx context.Context, settings *domain.TenantSettings) error {
	if err := c.next.Save(ctx, settings); err != nil {
		return err
	}
	if err := c.client.Del(ctx, tenantSettingsKey(settings.TenantID)).Err(); err != nil {
		c.logger.WithError(err).Warn("Cache eviction failed", "tenantId", settings.TenantID)
	}
	return nil
}

// HealthCheck pings Redis
func (c *TenantSettingsCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (c *TenantSettingsCache) record(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(cacheName, hit)
	}
}

func tenantSettingsKey(tenantID string) string {
	return tenantSettingsKeyPrefix + tenantID
}
