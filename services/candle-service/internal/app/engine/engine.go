package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	"github.com/muhammadchandra19/exchange/pkg/util"
	candlepublisherv1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle-publisher/v1"
	candlev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle/v1"
	tradereaderv1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade-reader/v1"
	windowstorev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/window-store/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/internal/usecase/aggregator"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Stats is a point in time copy of the engine counters.
type Stats struct {
	Processed      int64
	Emitted        int64
	LateDropped    int64
	DecodeFailures int64
	Replayed       int64
}

// Engine runs the consume, aggregate, publish, commit loop of the candles process.
type Engine struct {
	reader     tradereaderv1.Reader
	publisher  candlepublisherv1.Publisher
	aggregator *aggregator.Aggregator
	store      windowstorev1.Store
	repository candlev1.Repository
	logger     logger.Interface
	options    *Options
	offsets    *offsets

	cancel context.CancelFunc
	wg     sync.WaitGroup
	errCh  chan error

	processed      atomic.Int64
	emitted        atomic.Int64
	lateDropped    atomic.Int64
	decodeFailures atomic.Int64
	replayed       atomic.Int64
}

// NewEngine creates a new Engine.
func NewEngine(
	reader tradereaderv1.Reader,
	publisher candlepublisherv1.Publisher,
	agg *aggregator.Aggregator,
	log logger.Interface,
	options *Options,
) *Engine {
	if options == nil {
		options = DefaultOptions()
	}
	return &Engine{
		reader:     reader,
		publisher:  publisher,
		aggregator: agg,
		logger:     log,
		options:    options,
		offsets:    newOffsets(),
		errCh:      make(chan error, 1),
	}
}

// WithWindowStore keeps open windows in store and restores them at start.
func (e *Engine) WithWindowStore(store windowstorev1.Store) *Engine {
	e.store = store
	return e
}

// WithRepository persists every closed window to repository.
func (e *Engine) WithRepository(repository candlev1.Repository) *Engine {
	e.repository = repository
	return e
}

// Start restores open windows when a window store is set and starts the loop.
func (e *Engine) Start(ctx context.Context) error {
	e.restore(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go e.run(runCtx)

	e.logger.InfoContext(ctx, "engine started",
		logger.Field{Key: "time_basis", Value: string(e.options.TimeBasis)},
	)
	return nil
}

func (e *Engine) restore(ctx context.Context) {
	if e.store == nil {
		return
	}

	windows, err := e.store.Load(ctx, e.options.Symbols)
	if err != nil {
		e.logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "restore windows"})
		return
	}

	candles := make([]*candlev1.Candle, 0, len(windows))
	for _, w := range windows {
		candles = append(candles, w.Candle)
		e.offsets.restored(w.Position)
	}
	restored := e.aggregator.Restore(candles)
	e.logger.InfoContext(ctx, "windows restored", logger.Field{Key: "count", Value: restored})
}

// Err delivers the error that stopped the loop, if any.
func (e *Engine) Err() <-chan error {
	return e.errCh
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	for ctx.Err() == nil {
		if err := e.processNext(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "engine loop"})
			e.errCh <- err
			return
		}
	}
}

// processNext handles one trades log message. Only a fetch or publish failure is returned.
func (e *Engine) processNext(ctx context.Context) error {
	msg, trade, err := e.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.IsDecodeError(err) && !errors.IsSchemaError(err) {
			return errors.NewTracer("failed to fetch trade").Wrap(err)
		}

		e.offsets.seen(msg)
		e.decodeFailures.Add(1)
		e.logger.WarnContext(ctx, "skipping undecodable message",
			logger.Field{Key: "offset", Value: msg.Offset},
			logger.Field{Key: "partition", Value: msg.Partition},
			logger.Field{Key: "error", Value: err.Error()},
		)
		e.commit(ctx, msg)
		return nil
	}

	e.offsets.seen(msg)
	ctx = util.WithRequestID(ctx, "")
	ctx = util.WithEventID(ctx, fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset))

	if e.offsets.replayed(msg) {
		e.replayed.Add(1)
		e.logger.DebugContext(ctx, "skipping trade already in a restored window",
			logger.Field{Key: "offset", Value: msg.Offset},
			logger.Field{Key: "partition", Value: msg.Partition},
		)
		e.commit(ctx, msg)
		return nil
	}

	if e.options.TimeBasis == config.IngestTime {
		ts := msg.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		trade = trade.WithTimestamp(ts)
	}

	res, err := e.aggregator.Add(trade)
	if err != nil {
		if !errors.IsLateDataError(err) {
			return err
		}
		e.lateDropped.Add(1)
		e.logger.WarnContext(ctx, "dropping late trade",
			logger.Field{Key: "symbol", Value: trade.Symbol},
			logger.Field{Key: "error", Value: err.Error()},
		)
		e.commit(ctx, msg)
		return nil
	}
	e.processed.Add(1)

	// the trade was pulled, so its publish and commit finish even when shutdown starts
	outCtx := context.WithoutCancel(ctx)
	if e.options.WriteTimeout > 0 {
		var cancel context.CancelFunc
		outCtx, cancel = context.WithTimeout(outCtx, e.options.WriteTimeout)
		defer cancel()
	}

	for _, c := range res.Emitted {
		if err := e.publisher.Publish(outCtx, c); err != nil {
			return err
		}
		e.emitted.Add(1)
	}

	e.persist(outCtx, msg, res)
	e.commit(outCtx, msg)
	return nil
}

func (e *Engine) persist(ctx context.Context, msg kafka.Message, res aggregator.Result) {
	if e.store == nil {
		e.offsets.hold(res.Updated, msg)
		e.offsets.release(res.Closed)
	} else {
		if err := e.store.Save(ctx, res.Updated, positionOf(msg)); err != nil {
			e.logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "save window"})
		}
		if len(res.Closed) > 0 {
			if err := e.store.Delete(ctx, res.Closed...); err != nil {
				e.logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "delete windows"})
			}
		}
	}

	if e.repository != nil && len(res.Closed) > 0 {
		if err := e.repository.StoreBatch(ctx, res.Closed); err != nil {
			e.logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "store candles"})
		}
	}
}

// commit commits msg, or the last offset before the oldest open window of its
// partition when that window is kept only in memory.
func (e *Engine) commit(ctx context.Context, msg kafka.Message) {
	to, ok := e.offsets.target(msg)
	if !ok {
		return
	}

	if err := e.reader.CommitMessages(ctx, to); err != nil {
		e.logger.ErrorContext(ctx, err,
			logger.Field{Key: "action", Value: "commit message"},
			logger.Field{Key: "offset", Value: to.Offset},
		)
		return
	}
	e.offsets.committedTo(to)
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Processed:      e.processed.Load(),
		Emitted:        e.emitted.Load(),
		LateDropped:    e.lateDropped.Load(),
		DecodeFailures: e.decodeFailures.Load(),
		Replayed:       e.replayed.Load(),
	}
}

// Stop stops pulling messages, waits for the message in flight and closes the reader and publisher.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	stats := e.Stats()
	e.logger.InfoContext(ctx, "engine stopped",
		logger.Field{Key: "processed", Value: stats.Processed},
		logger.Field{Key: "emitted", Value: stats.Emitted},
		logger.Field{Key: "late_dropped", Value: stats.LateDropped},
		logger.Field{Key: "decode_failures", Value: stats.DecodeFailures},
		logger.Field{Key: "replayed", Value: stats.Replayed},
	)

	return stderrors.Join(e.reader.Close(), e.publisher.Close())
}
