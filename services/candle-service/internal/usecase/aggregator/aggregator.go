package aggregator

import (
	"fmt"
	"sort"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	candlev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle/v1"
	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/window"
)

// Result is the outcome of folding one trade.
type Result struct {
	// Emitted holds the snapshots to publish, in order.
	Emitted []*candlev1.Candle
	// Updated is the state of the window the trade was folded into.
	Updated *candlev1.Candle
	// Closed holds the windows evicted by this trade, ordered by start.
	Closed []*candlev1.Candle
}

type symbolState struct {
	open        map[int64]*candlev1.Candle
	watermark   time.Time
	lateDropped int64
}

// Aggregator folds trades into tumbling window candles, one independent stream per symbol.
// It is not safe for concurrent use; the engine loop owns it.
type Aggregator struct {
	window           window.Tumbling
	seconds          int
	grace            time.Duration
	emitIntermediate bool

	symbols map[string]*symbolState
}

// NewAggregator creates an Aggregator with the given options.
func NewAggregator(options *Options) *Aggregator {
	if options == nil {
		options = DefaultOptions()
	}
	return &Aggregator{
		window:           window.NewTumbling(time.Duration(options.Seconds) * time.Second),
		seconds:          options.Seconds,
		grace:            options.GracePeriod,
		emitIntermediate: options.EmitIntermediate,
		symbols:          make(map[string]*symbolState),
	}
}

func (a *Aggregator) state(symbol string) *symbolState {
	st, ok := a.symbols[symbol]
	if !ok {
		st = &symbolState{open: make(map[int64]*candlev1.Candle)}
		a.symbols[symbol] = st
	}
	return st
}

// Add folds t into its window. A trade for a window the watermark has already
// closed is dropped, counted and reported as a late data error.
func (a *Aggregator) Add(t tradev1.Trade) (Result, error) {
	st := a.state(t.Symbol)
	w := a.window.Assign(t.Timestamp)

	if !st.watermark.IsZero() && w.ClosedBy(st.watermark, a.grace) {
		st.lateDropped++
		return Result{}, errors.NewLateDataError(
			fmt.Sprintf("trade at %s is behind watermark %s", t.Timestamp.Format(time.RFC3339Nano), st.watermark.Format(time.RFC3339Nano)),
			"timestamp",
			t,
		)
	}

	key := w.Start.UnixMilli()
	c, ok := st.open[key]
	if ok {
		c.Apply(t)
	} else {
		c = candlev1.NewCandle(t, w, a.seconds)
		st.open[key] = c
	}

	if t.Timestamp.After(st.watermark) {
		st.watermark = t.Timestamp
	}

	res := Result{
		Updated: snapshot(c),
		Closed:  a.evict(st),
	}
	if a.emitIntermediate {
		res.Emitted = []*candlev1.Candle{res.Updated}
	} else {
		res.Emitted = res.Closed
	}

	return res, nil
}

// evict removes and returns every window the watermark has closed.
func (a *Aggregator) evict(st *symbolState) []*candlev1.Candle {
	var closed []*candlev1.Candle
	for key, c := range st.open {
		if c.Window().ClosedBy(st.watermark, a.grace) {
			closed = append(closed, snapshot(c))
			delete(st.open, key)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].WindowStart.Before(closed[j].WindowStart)
	})
	return closed
}

// Restore seeds open windows, for instance from a window store after a restart.
// Candles of a different duration are ignored.
func (a *Aggregator) Restore(candles []*candlev1.Candle) int {
	restored := 0
	for _, c := range candles {
		if c == nil || c.Seconds != a.seconds {
			continue
		}
		st := a.state(c.Symbol)
		st.open[c.WindowStart.UnixMilli()] = snapshot(c)
		if c.LastTradeAt.After(st.watermark) {
			st.watermark = c.LastTradeAt
		}
		restored++
	}
	return restored
}

// Watermark returns the latest event time seen for symbol.
func (a *Aggregator) Watermark(symbol string) time.Time {
	if st, ok := a.symbols[symbol]; ok {
		return st.watermark
	}
	return time.Time{}
}

// LateDropped returns how many trades for symbol were dropped as late.
func (a *Aggregator) LateDropped(symbol string) int64 {
	if st, ok := a.symbols[symbol]; ok {
		return st.lateDropped
	}
	return 0
}

// OpenWindows returns how many windows of symbol are still open.
func (a *Aggregator) OpenWindows(symbol string) int {
	if st, ok := a.symbols[symbol]; ok {
		return len(st.open)
	}
	return 0
}

func snapshot(c *candlev1.Candle) *candlev1.Candle {
	cp := *c
	return &cp
}
