package tradereader

import (
	"context"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	tradereaderv1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade-reader/v1"
	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader consumes the trades topic as a member of the consumer group.
type Reader struct {
	kafkaReader messageReader
	logger      logger.Interface
}

var _ tradereaderv1.Reader = (*Reader)(nil)

// NewReader creates a consumer group reader on the trades topic. Offsets are
// committed explicitly by the caller.
func NewReader(cfg config.KafkaConfig, log logger.Interface) *Reader {
	return newReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.TradesTopic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	}), log)
}

func newReader(r messageReader, log logger.Interface) *Reader {
	return &Reader{
		kafkaReader: r,
		logger:      log,
	}
}

// FetchMessage reads the next message and decodes it as a trade.
func (r *Reader) FetchMessage(ctx context.Context) (kafka.Message, tradev1.Trade, error) {
	msg, err := r.kafkaReader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return kafka.Message{}, tradev1.Trade{}, ctx.Err()
		}
		return kafka.Message{}, tradev1.Trade{}, errors.NewTracer("failed to fetch trade message").Wrap(err)
	}

	trade, err := tradev1.FromBytes(msg.Value)
	if err != nil {
		return msg, tradev1.Trade{}, err
	}

	return msg, trade, nil
}

// CommitMessages commits the messages after processing.
func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := r.kafkaReader.CommitMessages(ctx, msgs...); err != nil {
		return errors.NewTracer("failed to commit trade messages").Wrap(err)
	}
	return nil
}

// Close closes the underlying reader and leaves the consumer group.
func (r *Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logger.Error(err, logger.Field{Key: "action", Value: "close_trade_reader"})
		return err
	}
	return nil
}
