package redis

import (
	"context"
	"sync"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type client struct {
	logger logger.Interface
	config *Config

	mu  sync.RWMutex
	rdb redis.UniversalClient
}

// NewClient returns an unconnected client. Call Connect before use.
func NewClient(log logger.Interface, config *Config) Client {
	return &client{
		logger: log,
		config: config,
	}
}

// Connect validates the config, dials and pings. go-redis redials dropped
// pool connections on its own, so there is no reconnect loop here.
func (c *client) Connect(ctx context.Context) error {
	if err := c.config.Validate(); err != nil {
		return err
	}

	opts := c.config.universal()
	var rdb redis.UniversalClient
	if c.config.Mode == Cluster {
		rdb = redis.NewClusterClient(opts.Cluster())
	} else {
		rdb = redis.NewClient(opts.Simple())
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return errors.NewTracer("redis_connect_error").Wrap(
			errors.NewErrorDetails(err.Error(), string(errors.RedisConnectionError), "connect"),
		)
	}

	c.mu.Lock()
	c.rdb = rdb
	c.mu.Unlock()

	c.logger.Info("connected to redis",
		logger.Field{Key: "mode", Value: string(c.config.Mode)},
		logger.Field{Key: "addrs", Value: c.config.Addrs},
	)
	return nil
}

func (c *client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	rdb := c.rdb
	c.rdb = nil
	c.mu.Unlock()

	if rdb == nil {
		return errors.NewErrorDetails("redis client is not connected", string(errors.RedisDisconnectionError), "disconnect")
	}
	return rdb.Close()
}

// Ping backs the redis health checker.
func (c *client) Ping(ctx context.Context) error {
	rdb, err := c.conn(errors.RedisPingError, "ping")
	if err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fail(errors.RedisPingError, "ping", err)
	}
	return nil
}

func (c *client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rdb, err := c.conn(errors.RedisHGetAllError, key)
	if err != nil {
		return nil, err
	}
	values, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fail(errors.RedisHGetAllError, key, err)
	}
	return values, nil
}

func (c *client) HSet(ctx context.Context, key string, values map[string]any) (int64, error) {
	rdb, err := c.conn(errors.RedisHSetError, key)
	if err != nil {
		return 0, err
	}
	n, err := rdb.HSet(ctx, key, values).Result()
	if err != nil {
		return 0, fail(errors.RedisHSetError, key, err)
	}
	return n, nil
}

func (c *client) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	rdb, err := c.conn(errors.RedisHDelError, key)
	if err != nil {
		return 0, err
	}
	n, err := rdb.HDel(ctx, key, fields...).Result()
	if err != nil {
		return 0, fail(errors.RedisHDelError, key, err)
	}
	return n, nil
}

func (c *client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	rdb, err := c.conn(errors.RedisExpireError, key)
	if err != nil {
		return false, err
	}
	ok, err := rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fail(errors.RedisExpireError, key, err)
	}
	return ok, nil
}

func (c *client) conn(code errors.ErrorCode, field string) (redis.UniversalClient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rdb == nil {
		return nil, errors.NewErrorDetails("redis client is not connected", string(code), field)
	}
	return c.rdb, nil
}

// fail keeps the driver message and tags it with the command's code; the key goes in Field.
func fail(code errors.ErrorCode, key string, err error) error {
	return errors.NewErrorDetails(err.Error(), string(code), key)
}
