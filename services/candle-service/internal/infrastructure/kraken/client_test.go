package kraken

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	feedv1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/feed/v1"
	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

const (
	statusAck    = `{"channel":"status","type":"update","data":[{"system":"online"}]}`
	subscribeAck = `{"method":"subscribe","result":{"channel":"trade","symbol":"BTC/USD"},"success":true}`
	tradeFrame   = `{"channel":"trade","type":"update","data":[` +
		`{"symbol":"BTC/USD","side":"buy","price":64000.5,"qty":0.25,"ord_type":"market","trade_id":1,"timestamp":"2024-05-01T12:00:01.5Z"},` +
		`{"symbol":"BTC/USD","side":"sell","price":"oops","qty":1,"timestamp":"2024-05-01T12:00:02Z"},` +
		`{"symbol":"BTC/USD","side":"sell","price":63999,"qty":1.5,"timestamp":"2024-05-01T12:00:03Z"}]}`
)

// script drives one server side connection after the subscribe request was read.
type script func(ctx context.Context, conn *websocket.Conn, n int32)

type feedServer struct {
	*httptest.Server
	conns      atomic.Int32
	subscribes chan subscribeRequest
}

func newFeedServer(t *testing.T, run script) *feedServer {
	t.Helper()

	fs := &feedServer{subscribes: make(chan subscribeRequest, 10)}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := fs.conns.Add(1)
		if n < 0 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req subscribeRequest
		if json.Unmarshal(msg, &req) == nil {
			fs.subscribes <- req
		}

		run(ctx, conn, n)
		conn.Close(websocket.StatusNormalClosure, "")
	}))
	t.Cleanup(fs.Close)
	return fs
}

func write(ctx context.Context, conn *websocket.Conn, frames ...string) {
	for _, f := range frames {
		if err := conn.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
			return
		}
	}
}

func block(ctx context.Context, conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	log, err := logger.NewLogger()
	require.NoError(t, err)

	c := NewClient(config.FeedConfig{
		URL:                 url,
		HandshakeTimeout:    200 * time.Millisecond,
		ReadLimit:           1 << 20,
		ReconnectMaxRetries: 3,
		MinReconnectBackoff: 5 * time.Millisecond,
		MaxReconnectBackoff: 20 * time.Millisecond,
	}, log)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Connect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	err := c.Connect(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsTransportError(err))
	assert.Equal(t, feedv1.StateDisconnected, c.State())
}

func TestClient_Subscribe(t *testing.T) {
	testCases := []struct {
		name     string
		run      script
		assertFn func(t *testing.T, fs *feedServer, err error)
	}{
		{
			name: "two acknowledgements per symbol",
			run: func(ctx context.Context, conn *websocket.Conn, _ int32) {
				write(ctx, conn, statusAck, subscribeAck, statusAck, subscribeAck)
				block(ctx, conn)
			},
			assertFn: func(t *testing.T, fs *feedServer, err error) {
				require.NoError(t, err)

				req := <-fs.subscribes
				assert.Equal(t, "subscribe", req.Method)
				assert.Equal(t, "trade", req.Params.Channel)
				assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, req.Params.Symbol)
				assert.False(t, req.Params.Snapshot)
			},
		},
		{
			name: "too few acknowledgements",
			run: func(ctx context.Context, conn *websocket.Conn, _ int32) {
				write(ctx, conn, statusAck, subscribeAck, statusAck)
				block(ctx, conn)
			},
			assertFn: func(t *testing.T, _ *feedServer, err error) {
				require.Error(t, err)
				assert.Equal(t, string(errors.FeedHandshakeError), errors.CodeOf(err))
				assert.True(t, errors.IsTransportError(err))
			},
		},
		{
			name: "garbled acknowledgement",
			run: func(ctx context.Context, conn *websocket.Conn, _ int32) {
				write(ctx, conn, statusAck, "not json")
				block(ctx, conn)
			},
			assertFn: func(t *testing.T, _ *feedServer, err error) {
				require.Error(t, err)
				assert.Equal(t, string(errors.FeedHandshakeError), errors.CodeOf(err))
			},
		},
		{
			name: "rejected subscription",
			run: func(ctx context.Context, conn *websocket.Conn, _ int32) {
				write(ctx, conn, statusAck, `{"method":"subscribe","success":false,"error":"Currency pair not supported"}`)
				block(ctx, conn)
			},
			assertFn: func(t *testing.T, _ *feedServer, err error) {
				require.Error(t, err)
				assert.Equal(t, string(errors.FeedHandshakeError), errors.CodeOf(err))
				assert.Contains(t, err.Error(), "Currency pair not supported")
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			fs := newFeedServer(t, tc.run)
			c := newTestClient(t, fs.URL)
			ctx := context.Background()

			require.NoError(t, c.Connect(ctx))
			assert.Equal(t, feedv1.StateConnected, c.State())

			tc.assertFn(t, fs, c.Subscribe(ctx, []string{"BTC/USD", "ETH/USD"}))
		})
	}
}

func TestClient_NextFrame(t *testing.T) {
	testCases := []struct {
		name     string
		frame    string
		assertFn func(t *testing.T, trades []tradeView)
	}{
		{
			name:  "heartbeat",
			frame: `{"channel":"heartbeat"}`,
			assertFn: func(t *testing.T, trades []tradeView) {
				assert.Empty(t, trades)
			},
		},
		{
			name:  "invalid json",
			frame: `{"channel":"trade","data":[`,
			assertFn: func(t *testing.T, trades []tradeView) {
				assert.Empty(t, trades)
			},
		},
		{
			name:  "missing data",
			frame: `{"channel":"trade","type":"update"}`,
			assertFn: func(t *testing.T, trades []tradeView) {
				assert.Empty(t, trades)
			},
		},
		{
			name:  "null data",
			frame: `{"channel":"trade","data":null}`,
			assertFn: func(t *testing.T, trades []tradeView) {
				assert.Empty(t, trades)
			},
		},
		{
			name:  "json array",
			frame: `[]`,
			assertFn: func(t *testing.T, trades []tradeView) {
				assert.Empty(t, trades)
			},
		},
		{
			name:  "json number",
			frame: `42`,
			assertFn: func(t *testing.T, trades []tradeView) {
				assert.Empty(t, trades)
			},
		},
		{
			name:  "other channel",
			frame: statusAck,
			assertFn: func(t *testing.T, trades []tradeView) {
				assert.Empty(t, trades)
			},
		},
		{
			name:  "trades in feed order, bad entry skipped",
			frame: tradeFrame,
			assertFn: func(t *testing.T, trades []tradeView) {
				assert.Equal(t, []tradeView{
					{symbol: "BTC/USD", price: "64000.5", qty: "0.25", ts: "2024-05-01T12:00:01.5Z"},
					{symbol: "BTC/USD", price: "63999", qty: "1.5", ts: "2024-05-01T12:00:03Z"},
				}, trades)
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			fs := newFeedServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
				write(ctx, conn, statusAck, subscribeAck, tc.frame)
				block(ctx, conn)
			})
			c := newTestClient(t, fs.URL)
			ctx := context.Background()

			require.NoError(t, c.Connect(ctx))
			require.NoError(t, c.Subscribe(ctx, []string{"BTC/USD"}))

			trades, err := c.NextFrame(ctx)
			require.NoError(t, err)
			tc.assertFn(t, view(trades))
			assert.Equal(t, feedv1.StateConnected, c.State())
		})
	}
}

func TestClient_ParseFrame(t *testing.T) {
	testCases := []struct {
		name     string
		frame    string
		assertFn func(t *testing.T, trades []tradeView, err error)
	}{
		{
			name:  "truncated json is a decode error",
			frame: `{"channel":"trade","data":[`,
			assertFn: func(t *testing.T, trades []tradeView, err error) {
				assert.True(t, errors.IsDecodeError(err))
				assert.Empty(t, trades)
			},
		},
		{
			name:  "json array is a schema error",
			frame: `[]`,
			assertFn: func(t *testing.T, trades []tradeView, err error) {
				assert.True(t, errors.IsSchemaError(err))
				assert.False(t, errors.IsDecodeError(err))
			},
		},
		{
			name:  "json number is a schema error",
			frame: `42`,
			assertFn: func(t *testing.T, trades []tradeView, err error) {
				assert.True(t, errors.IsSchemaError(err))
				assert.False(t, errors.IsDecodeError(err))
			},
		},
		{
			name:  "json string is a schema error",
			frame: `"trade"`,
			assertFn: func(t *testing.T, trades []tradeView, err error) {
				assert.True(t, errors.IsSchemaError(err))
			},
		},
		{
			name:  "missing data is a schema error",
			frame: `{"channel":"trade","type":"update"}`,
			assertFn: func(t *testing.T, trades []tradeView, err error) {
				assert.True(t, errors.IsSchemaError(err))
			},
		},
		{
			name:  "other channel is ignored",
			frame: statusAck,
			assertFn: func(t *testing.T, trades []tradeView, err error) {
				assert.NoError(t, err)
				assert.Empty(t, trades)
			},
		},
		{
			name:  "trade frame",
			frame: tradeFrame,
			assertFn: func(t *testing.T, trades []tradeView, err error) {
				require.NoError(t, err)
				assert.Len(t, trades, 2)
			},
		},
	}

	c := newTestClient(t, "ws://127.0.0.1:1")
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			trades, err := c.parseFrame(context.Background(), []byte(tc.frame))
			tc.assertFn(t, view(trades), err)
		})
	}
}

func TestClient_NextFrame_Reconnects(t *testing.T) {
	fs := newFeedServer(t, func(ctx context.Context, conn *websocket.Conn, n int32) {
		write(ctx, conn, statusAck, subscribeAck)
		if n == 1 {
			return
		}
		write(ctx, conn, tradeFrame)
		block(ctx, conn)
	})
	c := newTestClient(t, fs.URL)
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Subscribe(ctx, []string{"BTC/USD"}))

	trades, err := c.NextFrame(ctx)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, feedv1.StateConnected, c.State())

	trades, err = c.NextFrame(ctx)
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	assert.Equal(t, int32(2), fs.conns.Load())
	first, second := <-fs.subscribes, <-fs.subscribes
	assert.Equal(t, first, second)
}

func TestClient_NextFrame_RetriesExhausted(t *testing.T) {
	fs := newFeedServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		write(ctx, conn, statusAck, subscribeAck)
	})
	c := newTestClient(t, fs.URL)
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Subscribe(ctx, []string{"BTC/USD"}))

	// every later dial is refused
	fs.conns.Store(-100)

	trades, err := c.NextFrame(ctx)
	require.Error(t, err)
	assert.Nil(t, trades)
	assert.True(t, errors.IsTransportError(err))
	assert.Equal(t, feedv1.StateDisconnected, c.State())
}

func TestClient_NextFrame_Cancelled(t *testing.T) {
	fs := newFeedServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		write(ctx, conn, statusAck, subscribeAck)
		block(ctx, conn)
	})
	c := newTestClient(t, fs.URL)

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Subscribe(context.Background(), []string{"BTC/USD"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.NextFrame(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Close_Idempotent(t *testing.T) {
	fs := newFeedServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		block(ctx, conn)
	})
	c := newTestClient(t, fs.URL)

	require.NoError(t, c.Connect(context.Background()))
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.Equal(t, feedv1.StateDisconnected, c.State())

	_, err := c.NextFrame(context.Background())
	assert.True(t, errors.IsTransportError(err))
}

func TestClient_Backoff(t *testing.T) {
	c := &Client{cfg: config.FeedConfig{
		MinReconnectBackoff: 100 * time.Millisecond,
		MaxReconnectBackoff: time.Second,
	}}

	for attempt, base := range []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	} {
		d := c.backoff(attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/4)
	}
}

type tradeView struct {
	symbol, price, qty, ts string
}

func view(trades []tradev1.Trade) []tradeView {
	out := make([]tradeView, 0, len(trades))
	for _, tr := range trades {
		out = append(out, tradeView{
			symbol: tr.Symbol,
			price:  tr.Price.String(),
			qty:    tr.Quantity.String(),
			ts:     tr.Timestamp.Format(time.RFC3339Nano),
		})
	}
	return out
}
