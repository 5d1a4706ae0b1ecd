package candlepublisher

import (
	"context"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	candlepublisherv1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle-publisher/v1"
	candlev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes candle snapshots to the candles topic, keyed by symbol.
type Publisher struct {
	writer messageWriter
	logger logger.Interface
}

var _ candlepublisherv1.Publisher = (*Publisher)(nil)

// NewPublisher creates a candles publisher.
func NewPublisher(cfg config.KafkaConfig, log logger.Interface) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.CandlesTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: cfg.BatchTimeout,
	}, log)
}

func newPublisher(writer messageWriter, log logger.Interface) *Publisher {
	return &Publisher{
		writer: writer,
		logger: log,
	}
}

// Publish writes one candle snapshot.
func (p *Publisher) Publish(ctx context.Context, candle *candlev1.Candle) error {
	value, err := candlev1.ToBytes(candle)
	if err != nil {
		return errors.NewTracer("failed to encode candle").Wrap(err)
	}

	msg := kafka.Message{
		Key:   []byte(candle.Symbol),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.NewTracer("failed to publish candle").Wrap(errors.NewPublishError(err.Error(), candle.Symbol))
	}

	p.logger.DebugContext(ctx, "candle published",
		logger.Field{Key: "symbol", Value: candle.Symbol},
		logger.Field{Key: "window_start_ms", Value: candle.WindowStart.UnixMilli()},
		logger.Field{Key: "close", Value: candle.Close.String()},
		logger.Field{Key: "volume", Value: candle.Volume.String()},
	)
	return nil
}

// Close flushes pending writes and releases the writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		p.logger.Error(err, logger.Field{Key: "action", Value: "close_candle_writer"})
		return err
	}
	return nil
}
