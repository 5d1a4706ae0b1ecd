package tradepublisher

import (
	"context"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	tradepublisherv1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade-publisher/v1"
	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes trades to the trades topic, keyed by symbol.
type Publisher struct {
	writer messageWriter
	logger logger.Interface
}

var _ tradepublisherv1.Publisher = (*Publisher)(nil)

// NewPublisher creates a trades publisher. The hash balancer keeps every trade of a
// symbol on one partition.
func NewPublisher(cfg config.KafkaConfig, log logger.Interface) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TradesTopic,
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

// Publish writes one trade. A failed write is returned as a publish error and not retried.
func (p *Publisher) Publish(ctx context.Context, trade tradev1.Trade) error {
	value, err := tradev1.ToBytes(trade)
	if err != nil {
		return errors.NewTracer("failed to encode trade").Wrap(err)
	}

	// Time stays zero so the writer stamps the append time, which is what the
	// ingest time basis windows on.
	msg := kafka.Message{
		Key:   []byte(trade.Symbol),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.NewTracer("failed to publish trade").Wrap(errors.NewPublishError(err.Error(), trade.Symbol))
	}

	p.logger.DebugContext(ctx, "trade published",
		logger.Field{Key: "symbol", Value: trade.Symbol},
		logger.Field{Key: "price", Value: trade.Price.String()},
		logger.Field{Key: "quantity", Value: trade.Quantity.String()},
		logger.Field{Key: "timestamp", Value: trade.Timestamp.Format(time.RFC3339Nano)},
	)
	return nil
}

// Close flushes pending writes and releases the writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		p.logger.Error(err, logger.Field{Key: "action", Value: "close_trade_writer"})
		return err
	}
	return nil
}
