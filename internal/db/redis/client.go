// Package redis provides Redis database connectivity and operations.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/utils"
)

// KeyPrefix namespaces every key written by the gateway
const KeyPrefix = "gateway"

// Client wraps the Redis client with app-specific functionality
type Client struct {
	client *redis.Client
	logger *utils.Logger
}

// NewClient creates a new Redis client and checks the connection
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *utils.Logger) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("redis: no address configured")
	}

	opts := &redis.Options{
		Addr:         cfg.Addresses[0], // Use the first address in the list
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	c := Wrap(redis.NewClient(opts), logger)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(pingCtx).Err(); err != nil {
		c.logger.Error("Failed to connect to Redis", err, "addr", opts.Addr)
		_ = c.client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	c.logger.Info("Connected to Redis", "addr", opts.Addr, "db", opts.DB)
	return c, nil
}

// Wrap adopts an existing go-redis client
func Wrap(client *redis.Client, logger *utils.Logger) *Client {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Client{
		client: client,
		logger: logger.Named("redis"),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", err)
		return err
	}
	c.logger.Info("Closed Redis connection")
	return nil
}

// Ping pings the Redis server
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Error("Failed to ping Redis", err)
		return err
	}
	return nil
}

// TxPipeline creates a Redis transaction pipeline
func (c *Client) TxPipeline() redis.Pipeliner {
	return c.client.TxPipeline()
}

// Logger returns the logger used by the client
func (c *Client) Logger() *utils.Logger {
	return c.logger
}

// FormatKey creates a namespaced Redis key
func FormatKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", KeyPrefix, namespace, key)
}
