package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gatherly/backend/internal/domain/events"
	"github.com/gatherly/backend/pkg/config"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const dashboardChannelPrefix = "dashboard_updates"

// Config holds the Redis connection settings
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the default Redis configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         6379,
		KeyPrefix:    "gatherly",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewConfigFromEnv builds the Redis config from the application config
func NewConfigFromEnv(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg.Redis.Host != "" {
		c.Host = cfg.Redis.Host
	}
	if cfg.Redis.Port != 0 {
		c.Port = cfg.Redis.Port
	}
	c.Password = cfg.Redis.Password
	c.DB = cfg.Redis.DB
	return c
}

// RedisClient wraps the go-redis client with key prefixing and basic metrics
type RedisClient struct {
	client    *redis.Client
	keyPrefix string

	hits   int64
	misses int64
	errors int64
}

// NewRedisClient creates and verifies a new Redis client
func NewRedisClient(cfg *Config) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (r *RedisClient) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", r.keyPrefix, key)
}

// Get retrieves a value by key
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.prefixKey(key)).Result()
	if err == redis.Nil {
		atomic.AddInt64(&r.misses, 1)
		return "", err
	}
	if err != nil {
		atomic.AddInt64(&r.errors, 1)
		return "", err
	}
	atomic.AddInt64(&r.hits, 1)
	return value, nil
}

// Set stores a value with a TTL
func (r *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefixKey(key), value, ttl).Err(); err != nil {
		atomic.AddInt64(&r.errors, 1)
		return err
	}
	return nil
}

// Delete removes one or more keys
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.prefixKey(key)
	}
	return r.client.Del(ctx, prefixed...).Err()
}

// HealthCheck verifies the connection is alive
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetMetrics returns cache hit/miss counters
func (r *RedisClient) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"hits":   atomic.LoadInt64(&r.hits),
		"misses": atomic.LoadInt64(&r.misses),
		"errors": atomic.LoadInt64(&r.errors),
	}
}

// Close closes the underlying connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// PublishDashboardEvent publishes a dashboard event on the user's channel
func (r *RedisClient) PublishDashboardEvent(ctx context.Context, event *events.DashboardEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard event: %w", err)
	}
	channel := fmt.Sprintf("%s:%s", dashboardChannelPrefix, event.UserID)
	return r.client.Publish(ctx, channel, payload).Err()
}

// SubscribeToDashboardEvents listens on all dashboard channels and invokes
// the callback for each decoded event until the context is cancelled
func (r *RedisClient) SubscribeToDashboardEvents(ctx context.Context, callback func(*events.DashboardEvent) error) error {
	pubsub := r.client.PSubscribe(ctx, dashboardChannelPrefix+":*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event events.DashboardEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				atomic.AddInt64(&r.errors, 1)
				continue
			}
			if err := callback(&event); err != nil {
				atomic.AddInt64(&r.errors, 1)
			}
		}
	}
}

// InvalidateDashboardCache drops the cached dashboard view for a user
func (r *RedisClient) InvalidateDashboardCache(ctx context.Context, userID uuid.UUID) error {
	return r.Delete(ctx, fmt.Sprintf("dashboard:%s", userID))
}
