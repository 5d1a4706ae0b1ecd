package windowstorev1

import (
	"context"

	candlev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle/v1"
)

// Position is the trades log position of the last message folded into a window.
type Position struct {
	Topic     string
	Partition int
	Offset    int64
}

// Window is a stored open window and the position it was saved at.
type Window struct {
	Candle   *candlev1.Candle
	Position Position
}

// Store keeps open windows outside the process so they survive a restart.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=windowstorev1_mock
type Store interface {
	Save(ctx context.Context, candle *candlev1.Candle, pos Position) error
	Delete(ctx context.Context, candles ...*candlev1.Candle) error
	Load(ctx context.Context, symbols []string) ([]Window, error)
}
