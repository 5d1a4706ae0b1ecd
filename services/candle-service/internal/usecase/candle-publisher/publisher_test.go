package candlepublisher

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	candlev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return w.err
}

func testCandle() *candlev1.Candle {
	return &candlev1.Candle{
		Symbol:      "XBT/USD",
		Open:        decimal.NewFromInt(10),
		High:        decimal.NewFromInt(12),
		Low:         decimal.NewFromInt(9),
		Close:       decimal.NewFromInt(9),
		Volume:      decimal.NewFromInt(4),
		WindowStart: time.Unix(0, 0).UTC(),
		WindowEnd:   time.Unix(60, 0).UTC(),
		Seconds:     60,
	}
}

func TestPublisher_Publish(t *testing.T) {
	testCases := []struct {
		name     string
		writer   *fakeWriter
		assertFn func(t *testing.T, w *fakeWriter, err error)
	}{
		{
			name:   "success",
			writer: &fakeWriter{},
			assertFn: func(t *testing.T, w *fakeWriter, err error) {
				require.NoError(t, err)
				require.Len(t, w.msgs, 1)
				assert.Equal(t, "XBT/USD", string(w.msgs[0].Key))
				assert.JSONEq(t, `{"symbol":"XBT/USD","open":10,"high":12,"low":9,"close":9,"volume":4,"window_start_ms":0,"window_end_ms":60000,"candle_seconds":60}`, string(w.msgs[0].Value))
			},
		},
		{
			name:   "failure",
			writer: &fakeWriter{err: stderrors.New("not enough replicas")},
			assertFn: func(t *testing.T, w *fakeWriter, err error) {
				assert.True(t, errors.IsPublishError(err))
				assert.Empty(t, w.msgs)
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			log, err := logger.NewLogger()
			require.NoError(t, err)

			p := newPublisher(tc.writer, log)
			tc.assertFn(t, tc.writer, p.Publish(context.Background(), testCandle()))
		})
	}
}

func TestPublisher_Close(t *testing.T) {
	log, err := logger.NewLogger()
	require.NoError(t, err)

	w := &fakeWriter{err: stderrors.New("flush failed")}
	p := newPublisher(w, log)

	assert.Error(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewPublisher(t *testing.T) {
	log, err := logger.NewLogger()
	require.NoError(t, err)

	p := NewPublisher(config.KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		CandlesTopic: "candles",
		WriteTimeout: time.Second,
		BatchTimeout: 10 * time.Millisecond,
	}, log)
	t.Cleanup(func() { _ = p.Close() })

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "candles", w.Topic)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
