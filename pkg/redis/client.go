package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

const connectTimeout = 5 * time.Second

// Client wraps go-redis with the few operations the service needs.
type Client struct {
	rdb    *redis.Client
	logger ectologger.Logger
}

// NewClient connects to Redis and fails unless a ping succeeds within
// connectTimeout.
func NewClient(ctx context.Context, cfg Config, logger ectologger.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	c := &Client{rdb: rdb, logger: logger.WithField("redis_addr", cfg.Addr())}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.Addr())
	}

	c.logger.Info("Connected to Redis")
	return c, nil
}

func (c *Client) Close() error {
	c.logger.Debug("Closing Redis client")
	return c.rdb.Close()
}

// Redis returns the underlying client.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Mark sets key with a ttl, overwriting any previous value.
func (c *Client) Mark(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	return n > 0, err
}
