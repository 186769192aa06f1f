package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Config holds configuration for the Redis snapshot cache.
type Config struct {
	// Enabled switches snapshot caching on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Addr is the Redis address.
	Addr string `mapstructure:"addr" default:"localhost:6379"`
	// Password is the Redis password.
	Password string `mapstructure:"password" default:""`
	// DB is the Redis database index.
	DB int `mapstructure:"db" default:"0"`
	// TTLSeconds is how long a cached snapshot stays valid.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"60"`
}

const snapshotKey = "waterlevel:snapshot"

// Cache keeps the latest-per-station snapshot in Redis so the map endpoint
// does not hit the store on every request. Cache failures degrade to a
// store read; they are never surfaced to clients.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a snapshot cache from the configuration.
func New(cfg Config, logger *zap.Logger) *Cache {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// GetSnapshot returns the cached snapshot, or false on miss or error.
func (c *Cache) GetSnapshot(ctx context.Context) ([]models.StationStatus, bool) {
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("snapshot cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var snapshot []models.StationStatus
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.logger.Debug("snapshot cache decode failed", zap.Error(err))
		return nil, false
	}
	return snapshot, true
}

// SetSnapshot stores the snapshot with the configured TTL.
func (c *Cache) SetSnapshot(ctx context.Context, snapshot []models.StationStatus) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		c.logger.Debug("snapshot cache set failed", zap.Error(err))
	}
}

// Invalidate drops the cached snapshot; called after each reconciliation
// so readers never see pre-sync data for a full TTL.
func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, snapshotKey).Err(); err != nil {
		c.logger.Debug("snapshot cache invalidate failed", zap.Error(err))
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
