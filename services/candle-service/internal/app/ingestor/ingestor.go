package ingestor

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/logger"
	feedv1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/feed/v1"
	tradepublisherv1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade-publisher/v1"
)

// Ingestor relays trades from the feed to the trades log in feed order.
type Ingestor struct {
	feed         feedv1.Client
	publisher    tradepublisherv1.Publisher
	logger       logger.Interface
	symbols      []string
	writeTimeout time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	errCh  chan error

	frames    atomic.Int64
	published atomic.Int64
}

// NewIngestor creates a new Ingestor for symbols.
func NewIngestor(
	feed feedv1.Client,
	publisher tradepublisherv1.Publisher,
	log logger.Interface,
	symbols []string,
	writeTimeout time.Duration,
) *Ingestor {
	return &Ingestor{
		feed:         feed,
		publisher:    publisher,
		logger:       log,
		symbols:      symbols,
		writeTimeout: writeTimeout,
		errCh:        make(chan error, 1),
	}
}

// Start connects and subscribes to the feed, then starts the relay loop.
// A connect or subscribe failure is returned and nothing is started.
func (i *Ingestor) Start(ctx context.Context) error {
	if err := i.feed.Connect(ctx); err != nil {
		return err
	}
	if err := i.feed.Subscribe(ctx, i.symbols); err != nil {
		_ = i.feed.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	i.cancel = cancel

	i.wg.Add(1)
	go i.run(runCtx)

	i.logger.InfoContext(ctx, "ingestor started", logger.Field{Key: "symbols", Value: i.symbols})
	return nil
}

// Err delivers the error that stopped the loop, if any.
func (i *Ingestor) Err() <-chan error {
	return i.errCh
}

func (i *Ingestor) run(ctx context.Context) {
	defer i.wg.Done()

	for ctx.Err() == nil {
		if err := i.relayFrame(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			i.logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "ingestor loop"})
			i.errCh <- err
			return
		}
	}
}

func (i *Ingestor) relayFrame(ctx context.Context) error {
	trades, err := i.feed.NextFrame(ctx)
	if err != nil {
		return err
	}
	i.frames.Add(1)
	if len(trades) == 0 {
		return nil
	}

	// trades already read from the feed are published even when shutdown starts
	pubCtx := context.WithoutCancel(ctx)
	if i.writeTimeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(pubCtx, i.writeTimeout)
		defer cancel()
	}

	for _, t := range trades {
		if err := i.publisher.Publish(pubCtx, t); err != nil {
			return err
		}
		i.published.Add(1)
	}
	return nil
}

// Published returns the number of trades written to the trades log.
func (i *Ingestor) Published() int64 {
	return i.published.Load()
}

// Stop stops reading the feed, waits for the frame in flight and releases the feed and publisher.
func (i *Ingestor) Stop(ctx context.Context) error {
	if i.cancel != nil {
		i.cancel()
	}

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	i.logger.InfoContext(ctx, "ingestor stopped",
		logger.Field{Key: "frames", Value: i.frames.Load()},
		logger.Field{Key: "published", Value: i.published.Load()},
	)

	return stderrors.Join(i.feed.Close(), i.publisher.Close())
}
