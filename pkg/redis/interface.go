package redis

import (
	"context"
	"time"
)

// Client is the hash-oriented subset of Redis the window store needs.
// Each open window lives as one field of a per-symbol hash.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=redis_mock
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error

	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, values map[string]any) (int64, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
