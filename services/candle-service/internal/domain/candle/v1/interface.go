package candlev1

import "context"

// Repository persists closed candles.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=candlev1_mock
type Repository interface {
	Store(ctx context.Context, candle *Candle) error
	StoreBatch(ctx context.Context, candles []*Candle) error
	GetLatest(ctx context.Context, symbol string, seconds int) (*Candle, error)
}
