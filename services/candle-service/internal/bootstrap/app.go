package bootstrap

import (
	"context"
	"fmt"

	"github.com/muhammadchandra19/exchange/pkg/logger"
	"github.com/muhammadchandra19/exchange/services/candle-service/internal/app/engine"
	"github.com/muhammadchandra19/exchange/services/candle-service/internal/app/ingestor"
	feedv1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/feed/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/internal/infrastructure/kraken"
	candlerepo "github.com/muhammadchandra19/exchange/services/candle-service/internal/infrastructure/questdb/candle"
	"github.com/muhammadchandra19/exchange/services/candle-service/internal/usecase/aggregator"
	candlepublisher "github.com/muhammadchandra19/exchange/services/candle-service/internal/usecase/candle-publisher"
	tradepublisher "github.com/muhammadchandra19/exchange/services/candle-service/internal/usecase/trade-publisher"
	tradereader "github.com/muhammadchandra19/exchange/services/candle-service/internal/usecase/trade-reader"
	windowstore "github.com/muhammadchandra19/exchange/services/candle-service/internal/usecase/window-store"
)

// NewIngestor wires the feed client and the trade publisher, and registers the feed checker.
func (b *Bootstrap) NewIngestor() *ingestor.Ingestor {
	cfg := b.Config
	feed := kraken.NewClient(cfg.Feed, b.component("feed"))

	b.Health.Register("feed", func(context.Context) error {
		if state := feed.State(); state != feedv1.StateConnected {
			return fmt.Errorf("feed is %s", state)
		}
		return nil
	})

	return ingestor.NewIngestor(
		feed,
		tradepublisher.NewPublisher(cfg.Kafka, b.component("trade-publisher")),
		b.component("ingestor"),
		cfg.Feed.Symbols,
		cfg.Kafka.WriteTimeout,
	)
}

// NewEngine wires the trades reader, the aggregator, the candle publisher and the optional stores.
func (b *Bootstrap) NewEngine() *engine.Engine {
	cfg := b.Config

	agg := aggregator.NewAggregator(&aggregator.Options{
		Seconds:          cfg.Candle.Seconds,
		GracePeriod:      cfg.Candle.GracePeriod,
		EmitIntermediate: cfg.Candle.EmitIntermediate,
	})

	e := engine.NewEngine(
		tradereader.NewReader(cfg.Kafka, b.component("trade-reader")),
		candlepublisher.NewPublisher(cfg.Kafka, b.component("candle-publisher")),
		agg,
		b.component("engine"),
		&engine.Options{
			TimeBasis:    cfg.Candle.TimeBasis,
			WriteTimeout: cfg.Kafka.WriteTimeout,
			Symbols:      cfg.Feed.Symbols,
		},
	)

	if b.Redis != nil {
		e.WithWindowStore(windowstore.NewStore(b.Redis, cfg.Redis.PrefixKey, cfg.Candle.Seconds, cfg.Redis.DefaultTTL, b.component("window-store")))
	}
	if b.QuestDB != nil {
		e.WithRepository(candlerepo.NewRepository(b.QuestDB))
	}
	return e
}

func (b *Bootstrap) component(name string) logger.Interface {
	return b.Logger.With(logger.NewField("component", name))
}
