package candlepublisherv1

import (
	"context"

	candlev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle/v1"
)

// Publisher appends candle snapshots to the candles log keyed by symbol.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=candlepublisherv1_mock
type Publisher interface {
	Publish(ctx context.Context, candle *candlev1.Candle) error
	Close() error
}
