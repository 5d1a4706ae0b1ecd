package tradepublisherv1

import (
	"context"

	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
)

// Publisher appends trades to the trades log keyed by symbol.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=tradepublisherv1_mock
type Publisher interface {
	Publish(ctx context.Context, trade tradev1.Trade) error
	Close() error
}
