package redis

import (
	"fmt"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Mode selects between a single node and a cluster deployment.
type Mode string

const (
	Standalone Mode = "standalone"
	Cluster    Mode = "cluster"
)

// Config holds the connection settings for the window store backend.
type Config struct {
	Mode     Mode     `env:"MODE" envDefault:"standalone"`
	Addrs    []string `env:"ADDRS" envSeparator:"," envDefault:"localhost:6379"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	DB       int      `env:"DB" envDefault:"0"`

	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	// OpTimeout bounds every read and write round trip.
	OpTimeout  time.Duration `env:"OP_TIMEOUT" envDefault:"2s"`
	PoolSize   int           `env:"POOL_SIZE" envDefault:"10"`
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"3"`

	// PrefixKey namespaces every key the service writes.
	PrefixKey string `env:"PREFIX_KEY" envDefault:"candles:"`
	// DefaultTTL expires window hashes nobody touched for a while. Zero keeps them forever.
	DefaultTTL time.Duration `env:"DEFAULT_TTL" envDefault:"24h"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode:        Standalone,
		Addrs:       []string{"localhost:6379"},
		DialTimeout: 5 * time.Second,
		OpTimeout:   2 * time.Second,
		PoolSize:    10,
		MaxRetries:  3,
		PrefixKey:   "candles:",
		DefaultTTL:  24 * time.Hour,
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewErrorDetails("redis config is nil", string(errors.RedisConfigError), "config")
	}

	base := errors.NewBaseError()
	invalid := func(field, message string) {
		base.AddErrorDetails(errors.NewErrorDetails(message, string(errors.RedisConfigError), field))
	}

	if len(c.Addrs) == 0 {
		invalid("REDIS_ADDRS", "at least one address is required")
	}
	if c.Mode != Standalone && c.Mode != Cluster {
		invalid("REDIS_MODE", fmt.Sprintf("unknown mode %q", c.Mode))
	}
	if c.Mode == Cluster && c.DB != 0 {
		invalid("REDIS_DB", "cluster mode only supports db 0")
	}
	if c.DialTimeout <= 0 {
		invalid("REDIS_DIAL_TIMEOUT", "must be positive")
	}
	if c.OpTimeout <= 0 {
		invalid("REDIS_OP_TIMEOUT", "must be positive")
	}
	if c.PoolSize <= 0 {
		invalid("REDIS_POOL_SIZE", "must be positive")
	}
	if c.MaxRetries < 0 {
		invalid("REDIS_MAX_RETRIES", "must not be negative")
	}
	if c.DefaultTTL < 0 {
		invalid("REDIS_DEFAULT_TTL", "must not be negative")
	}

	if base.HasDetails() {
		return base
	}
	return nil
}

func (c *Config) universal() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        c.Addrs,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.OpTimeout,
		WriteTimeout: c.OpTimeout,
		PoolSize:     c.PoolSize,
		MaxRetries:   c.MaxRetries,
	}
}
