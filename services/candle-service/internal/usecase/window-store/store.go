package windowstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	"github.com/muhammadchandra19/exchange/pkg/redis"
	"github.com/muhammadchandra19/exchange/pkg/util"
	candlev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle/v1"
	windowstorev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/window-store/v1"
)

// Store keeps open windows in one Redis hash per (duration, symbol), one field per window start.
type Store struct {
	redisclient redis.Client
	prefix      string
	seconds     int
	ttl         time.Duration
	logger      logger.Interface
}

var _ windowstorev1.Store = (*Store)(nil)

// NewStore creates a window store for windows of the given duration.
func NewStore(redisclient redis.Client, prefix string, seconds int, ttl time.Duration, log logger.Interface) *Store {
	return &Store{
		redisclient: redisclient,
		prefix:      prefix,
		seconds:     seconds,
		ttl:         ttl,
		logger:      log,
	}
}

type state struct {
	candlev1.Payload
	TradeCount  int64  `json:"trade_count"`
	LastTradeMs int64  `json:"last_trade_ms"`
	Topic       string `json:"topic,omitempty"`
	Partition   int    `json:"partition"`
	Offset      int64  `json:"offset"`
}

func (s *Store) key(symbol string) string {
	return fmt.Sprintf("%swindows:%d:%s", s.prefix, s.seconds, symbol)
}

func field(c *candlev1.Candle) string {
	return strconv.FormatInt(c.WindowStart.UnixMilli(), 10)
}

// Save writes the current state of an open window with the position of the last
// message folded into it.
func (s *Store) Save(ctx context.Context, candle *candlev1.Candle, pos windowstorev1.Position) error {
	buf, err := json.Marshal(state{
		Payload:     candle.ToPayload(),
		TradeCount:  candle.TradeCount,
		LastTradeMs: candle.LastTradeAt.UnixMilli(),
		Topic:       pos.Topic,
		Partition:   pos.Partition,
		Offset:      pos.Offset,
	})
	if err != nil {
		return errors.NewTracer("window_marshal_error").Wrap(err)
	}

	key := s.key(candle.Symbol)
	if _, err := s.redisclient.HSet(ctx, key, map[string]any{field(candle): string(buf)}); err != nil {
		s.logger.ErrorContext(ctx, err,
			logger.Field{Key: "symbol", Value: candle.Symbol},
			logger.Field{Key: "action", Value: "save window"},
		)
		return errors.NewTracer("window_save_error").Wrap(err)
	}

	if s.ttl > 0 {
		if _, err := s.redisclient.Expire(ctx, key, s.ttl); err != nil {
			return errors.NewTracer("window_expire_error").Wrap(err)
		}
	}
	return nil
}

// Delete removes closed windows.
func (s *Store) Delete(ctx context.Context, candles ...*candlev1.Candle) error {
	fields := make(map[string][]string)
	for _, c := range candles {
		key := s.key(c.Symbol)
		fields[key] = append(fields[key], field(c))
	}

	for key, f := range fields {
		if _, err := s.redisclient.HDel(ctx, key, f...); err != nil {
			s.logger.ErrorContext(ctx, err,
				logger.Field{Key: "key", Value: key},
				logger.Field{Key: "action", Value: "delete windows"},
			)
			return errors.NewTracer("window_delete_error").Wrap(err)
		}
	}
	return nil
}

// Load returns every stored open window of the given symbols. Unreadable entries are skipped.
// Entries written without a position come back with an empty topic.
func (s *Store) Load(ctx context.Context, symbols []string) ([]windowstorev1.Window, error) {
	var out []windowstorev1.Window
	for _, symbol := range symbols {
		values, err := s.redisclient.HGetAll(ctx, s.key(symbol))
		if err != nil {
			return nil, errors.NewTracer("window_load_error").Wrap(err)
		}

		for f, raw := range values {
			w, err := decode(raw)
			if err != nil {
				s.logger.WarnContext(ctx, "skipping unreadable window",
					logger.Field{Key: "symbol", Value: symbol},
					logger.Field{Key: "field", Value: f},
					logger.Field{Key: "error", Value: err.Error()},
				)
				continue
			}
			out = append(out, w)
		}
	}

	s.logger.InfoContext(ctx, "windows loaded",
		logger.Field{Key: "count", Value: len(out)},
		logger.Field{Key: "seconds", Value: s.seconds},
	)
	return out, nil
}

func decode(raw string) (windowstorev1.Window, error) {
	c, err := candlev1.FromBytes([]byte(raw))
	if err != nil {
		return windowstorev1.Window{}, err
	}

	var st state
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return windowstorev1.Window{}, err
	}
	c.TradeCount = st.TradeCount
	c.LastTradeAt = util.FromUnixMilli(st.LastTradeMs)
	return windowstorev1.Window{
		Candle: c,
		Position: windowstorev1.Position{
			Topic:     st.Topic,
			Partition: st.Partition,
			Offset:    st.Offset,
		},
	}, nil
}
