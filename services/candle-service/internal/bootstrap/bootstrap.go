package bootstrap

import (
	"context"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/httplib/healthcheck"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	"github.com/muhammadchandra19/exchange/pkg/questdb"
	"github.com/muhammadchandra19/exchange/pkg/redis"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
)

// Bootstrap holds the shared dependencies of the candle service binaries.
type Bootstrap struct {
	Config *config.Config
	Logger *logger.Logger
	Health *healthcheck.HealthCheck

	// Redis is nil unless REDIS_ENABLED is set.
	Redis redis.Client
	// QuestDB is nil unless QUESTDB_ENABLED is set.
	QuestDB questdb.QuestDBClient
}

// Init builds the logger, the health check and the optional stores.
func Init(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	log, err := logger.NewLogger(
		logger.WithLoggingLevel(logger.ParseLevel(cfg.App.LogLevel)),
		logger.WithService(cfg.App.Name),
	)
	if err != nil {
		return nil, errors.NewTracer("failed to build logger").Wrap(err)
	}

	b := &Bootstrap{
		Config: cfg,
		Logger: log,
		Health: healthcheck.New(2 * time.Second),
	}

	if cfg.RedisEnabled {
		redisCfg := cfg.Redis
		client := redis.NewClient(log, &redisCfg)
		if err := client.Connect(ctx); err != nil {
			return nil, errors.NewTracer("failed to connect to redis").Wrap(err)
		}
		b.Redis = client
		b.Health.Register("redis", client.Ping)
	}

	if cfg.QuestDBEnabled {
		client, err := questdb.NewClient(ctx, cfg.QuestDB)
		if err != nil {
			b.Close(ctx)
			return nil, errors.NewTracer("failed to connect to questdb").Wrap(err)
		}
		b.QuestDB = client
		b.Health.Register("questdb", client.Ping)
	}

	log.InfoContext(ctx, "bootstrap ready",
		logger.Field{Key: "app", Value: cfg.App.Name},
		logger.Field{Key: "environment", Value: cfg.App.Environment},
		logger.Field{Key: "redis", Value: cfg.RedisEnabled},
		logger.Field{Key: "questdb", Value: cfg.QuestDBEnabled},
	)
	return b, nil
}

// Close releases the optional stores and flushes the logger.
func (b *Bootstrap) Close(ctx context.Context) {
	if b.Redis != nil {
		if err := b.Redis.Disconnect(ctx); err != nil {
			b.Logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "disconnect redis"})
		}
	}
	if b.QuestDB != nil {
		b.QuestDB.Close()
	}
	// syncing stdout fails on some platforms
	_ = b.Logger.Sync()
}
