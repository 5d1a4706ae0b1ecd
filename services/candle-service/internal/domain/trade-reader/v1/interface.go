package tradereaderv1

import (
	"context"

	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
	"github.com/segmentio/kafka-go"
)

// Reader consumes the trades log as part of a consumer group.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=tradereaderv1_mock
type Reader interface {
	// FetchMessage blocks for the next message. A message that cannot be decoded is
	// returned together with a decode or schema error so it can be committed past.
	FetchMessage(ctx context.Context) (kafka.Message, tradev1.Trade, error)
	// CommitMessages commits the messages after processing.
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	// Close closes the reader.
	Close() error
}
