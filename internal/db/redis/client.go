// Package redis provides Redis connectivity for shared rate limiting.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"norelock.dev/mediagrab/backend/internal/config"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// KeyNamespace prefixes every key written by the service
const KeyNamespace = "mediagrab"

// Client wraps the Redis client with app-specific functionality
type Client struct {
	client *redis.Client
	logger *utils.Logger
}

// NewClient creates a new Redis client and checks the connection
func NewClient(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*Client, error) {
	opts := &redis.Options{
		Addr:         cfg.Redis.Address,
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.Database,
		MaxRetries:   cfg.Redis.MaxRetries,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, "addr", opts.Addr)
		_ = client.Close()
		return nil, err
	}

	logger.Info("Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return NewClientFrom(client, logger), nil
}

// NewClientFrom wraps an existing go-redis client
func NewClientFrom(client *redis.Client, logger *utils.Logger) *Client {
	return &Client{
		client: client,
		logger: logger.Named("redis"),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	err := c.client.Close()
	if err != nil {
		c.logger.Error("Failed to close Redis connection", err)
		return err
	}
	c.logger.Info("Closed Redis connection")
	return nil
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Ping pings the Redis server
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Error("Failed to ping Redis", err)
		return err
	}
	return nil
}

// Del deletes a key from Redis
func (c *Client) Del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Failed to delete key from Redis", err, "key", key)
		return err
	}
	return nil
}

// Pipeline returns a new pipeline
func (c *Client) Pipeline() redis.Pipeliner {
	return c.client.Pipeline()
}

// TxPipeline returns a new transactional pipeline
func (c *Client) TxPipeline() redis.Pipeliner {
	return c.client.TxPipeline()
}

// Logger returns the client logger
func (c *Client) Logger() *utils.Logger {
	return c.logger
}

// FormatKey formats a key with the service namespace
func FormatKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", KeyNamespace, namespace, key)
}
