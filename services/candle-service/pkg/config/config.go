package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/questdb"
	"github.com/muhammadchandra19/exchange/pkg/redis"
)

// TimeBasis selects which timestamp assigns a trade to a window.
type TimeBasis string

const (
	// EventTime windows a trade by the time the feed says it happened.
	EventTime TimeBasis = "event"
	// IngestTime windows a trade by the time it was appended to the trades log.
	IngestTime TimeBasis = "ingest"
)

// Config represents the application configuration.
type Config struct {
	App    AppConfig    `envPrefix:"APP_"`
	Feed   FeedConfig   `envPrefix:"FEED_"`
	Kafka  KafkaConfig  `envPrefix:"KAFKA_"`
	Candle CandleConfig `envPrefix:"CANDLE_"`

	RedisEnabled bool         `env:"REDIS_ENABLED" envDefault:"false"`
	Redis        redis.Config `envPrefix:"REDIS_"`

	QuestDBEnabled bool           `env:"QUESTDB_ENABLED" envDefault:"false"`
	QuestDB        questdb.Config `envPrefix:"QUESTDB_"`
}

// AppConfig represents the process level configuration.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"candle-service"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`
}

// FeedConfig represents the external trade feed configuration.
type FeedConfig struct {
	URL                 string        `env:"URL" envDefault:"wss://ws.kraken.com/v2"`
	Symbols             []string      `env:"SYMBOLS" envSeparator:"," envDefault:"BTC/USD"`
	HandshakeTimeout    time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"10s"`
	ReadLimit           int64         `env:"READ_LIMIT" envDefault:"1048576"`
	ReconnectMaxRetries int           `env:"RECONNECT_MAX_RETRIES" envDefault:"5"`
	MinReconnectBackoff time.Duration `env:"MIN_RECONNECT_BACKOFF" envDefault:"500ms"`
	MaxReconnectBackoff time.Duration `env:"MAX_RECONNECT_BACKOFF" envDefault:"30s"`
}

// KafkaConfig represents the trades and candles log configuration.
type KafkaConfig struct {
	Brokers       []string      `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	TradesTopic   string        `env:"TRADES_TOPIC" envDefault:"trades"`
	CandlesTopic  string        `env:"CANDLES_TOPIC" envDefault:"candles"`
	ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"candle-service"`
	WriteTimeout  time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	// BatchTimeout bounds how long a writer waits to fill a batch. Every publish is
	// synchronous, so it is added to the latency of each trade and candle.
	BatchTimeout time.Duration `env:"BATCH_TIMEOUT" envDefault:"10ms"`
}

// CandleConfig represents the windowing configuration.
type CandleConfig struct {
	Seconds          int           `env:"SECONDS" envDefault:"60"`
	GracePeriod      time.Duration `env:"GRACE_PERIOD" envDefault:"5s"`
	EmitIntermediate bool          `env:"EMIT_INTERMEDIATE" envDefault:"true"`
	TimeBasis        TimeBasis     `env:"TIME_BASIS" envDefault:"event"`
}

// Duration returns the window length.
func (c CandleConfig) Duration() time.Duration {
	return time.Duration(c.Seconds) * time.Second
}

// Load loads the configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	base := errors.NewBaseError()
	invalid := func(field, message string) {
		base.AddErrorDetails(errors.NewErrorDetails(message, string(errors.ConfigValidationError), field))
	}

	if c.Candle.Seconds <= 0 {
		invalid("CANDLE_SECONDS", "window duration must be positive")
	}
	if c.Candle.GracePeriod < 0 {
		invalid("CANDLE_GRACE_PERIOD", "grace period must not be negative")
	}
	if c.Candle.TimeBasis != EventTime && c.Candle.TimeBasis != IngestTime {
		invalid("CANDLE_TIME_BASIS", fmt.Sprintf("unknown time basis %q", c.Candle.TimeBasis))
	}
	if len(c.Feed.Symbols) == 0 {
		invalid("FEED_SYMBOLS", "at least one symbol is required")
	}
	if c.Feed.HandshakeTimeout <= 0 {
		invalid("FEED_HANDSHAKE_TIMEOUT", "handshake timeout must be positive")
	}
	if c.Feed.MinReconnectBackoff <= 0 || c.Feed.MaxReconnectBackoff < c.Feed.MinReconnectBackoff {
		invalid("FEED_MAX_RECONNECT_BACKOFF", "reconnect backoff bounds are inconsistent")
	}
	if len(c.Kafka.Brokers) == 0 {
		invalid("KAFKA_BROKERS", "at least one broker is required")
	}
	if c.Kafka.TradesTopic == "" {
		invalid("KAFKA_TRADES_TOPIC", "trades topic is required")
	}
	if c.Kafka.CandlesTopic == "" {
		invalid("KAFKA_CANDLES_TOPIC", "candles topic is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		invalid("KAFKA_CONSUMER_GROUP", "consumer group is required")
	}
	if c.Kafka.BatchTimeout <= 0 {
		invalid("KAFKA_BATCH_TIMEOUT", "batch timeout must be positive")
	}
	if c.RedisEnabled {
		if redisErr, ok := c.Redis.Validate().(*errors.BaseError); ok {
			base.AddErrorDetails(redisErr.GetDetails()...)
		}
	}

	if base.HasDetails() {
		return base
	}
	return nil
}
