package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings for the snapshot cache.
type Config struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	KeyPrefix   string
	SnapshotTTL time.Duration
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:        "localhost:6379",
		Password:    "",
		DB:          0,
		PoolSize:    10,
		KeyPrefix:   "matchbook",
		SnapshotTTL: 2 * time.Second,
	}
}

// SnapshotCache keeps serialized book snapshots in Redis with a short
// TTL so the HTTP surface can serve polling dashboards without taking
// the book lock on every request. Snapshots are stored as raw JSON and
// served back verbatim.
type SnapshotCache struct {
	client *redis.Client
	cfg    *Config
}

// NewSnapshotCache connects to Redis and verifies the connection.
func NewSnapshotCache(ctx context.Context, cfg *Config) (*SnapshotCache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &SnapshotCache{client: client, cfg: cfg}, nil
}

// snapshotKey builds the cache key for a symbol's book snapshot.
func (c *SnapshotCache) snapshotKey(symbol string) string {
	return c.cfg.KeyPrefix + ":snapshot:" + symbol
}

// tradeChannel builds the pub/sub channel name for a symbol's trades.
func (c *SnapshotCache) tradeChannel(symbol string) string {
	return c.cfg.KeyPrefix + ":trades:" + symbol
}

// GetSnapshot returns the cached snapshot JSON for a symbol. A cache
// miss returns (nil, false, nil).
func (c *SnapshotCache) GetSnapshot(ctx context.Context, symbol string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.snapshotKey(symbol)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot for %s: %w", symbol, err)
	}
	return data, true, nil
}

// SetSnapshot stores serialized snapshot JSON under the symbol's key.
func (c *SnapshotCache) SetSnapshot(ctx context.Context, symbol string, data []byte) error {
	if err := c.client.Set(ctx, c.snapshotKey(symbol), data, c.cfg.SnapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot for %s: %w", symbol, err)
	}
	return nil
}

// Invalidate drops the cached snapshot for a symbol. Invalidation is
// best effort, a failed delete just means a slightly stale snapshot
// until the TTL expires.
func (c *SnapshotCache) Invalidate(ctx context.Context, symbol string) error {
	return c.client.Del(ctx, c.snapshotKey(symbol)).Err()
}

// PublishTrades fans serialized trade JSON out to subscribers of the
// symbol's trade channel.
func (c *SnapshotCache) PublishTrades(ctx context.Context, symbol string, data []byte) error {
	if err := c.client.Publish(ctx, c.tradeChannel(symbol), data).Err(); err != nil {
		return fmt.Errorf("failed to publish trades for %s: %w", symbol, err)
	}
	return nil
}

// SubscribeTrades returns a subscription for the symbol's trade
// channel. The caller owns the subscription and must close it.
func (c *SnapshotCache) SubscribeTrades(ctx context.Context, symbol string) *redis.PubSub {
	return c.client.Subscribe(ctx, c.tradeChannel(symbol))
}

// Close releases the Redis connection pool.
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}
