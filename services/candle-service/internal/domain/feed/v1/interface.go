package feedv1

import (
	"context"

	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
)

// State is the connection state of a feed client.
type State string

const (
	// StateDisconnected means no usable connection exists.
	StateDisconnected State = "DISCONNECTED"
	// StateConnected means the connection is up and frames are being read.
	StateConnected State = "CONNECTED"
	// StateReconnecting means a dropped connection is being re-established.
	StateReconnecting State = "RECONNECTING"
)

// Client reads trades from an external market data feed.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=feedv1_mock
type Client interface {
	// Connect dials the feed. Failure is a transport error.
	Connect(ctx context.Context) error
	// Subscribe requests the trade channel for symbols and consumes the acknowledgements.
	Subscribe(ctx context.Context, symbols []string) error
	// NextFrame blocks for one frame and returns the trades it carries, possibly none.
	NextFrame(ctx context.Context) ([]tradev1.Trade, error)
	// State returns the current connection state.
	State() State
	// Close closes the connection.
	Close() error
}
