package kraken

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	"github.com/muhammadchandra19/exchange/pkg/util"
	feedv1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/feed/v1"
	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	tradeChannel = "trade"
	// acksPerSymbol is the number of frames the feed sends back per subscribed symbol.
	acksPerSymbol = 2
)

// Client reads trades from the Kraken v2 websocket API.
type Client struct {
	cfg    config.FeedConfig
	logger logger.Interface

	mu      sync.RWMutex
	conn    *websocket.Conn
	state   feedv1.State
	symbols []string
	closed  bool
}

var _ feedv1.Client = (*Client)(nil)

// NewClient creates a disconnected feed client.
func NewClient(cfg config.FeedConfig, log logger.Interface) *Client {
	return &Client{
		cfg:    cfg,
		logger: log,
		state:  feedv1.StateDisconnected,
	}
}

type subscribeRequest struct {
	Method string          `json:"method"`
	Params subscribeParams `json:"params"`
}

type subscribeParams struct {
	Channel  string   `json:"channel"`
	Symbol   []string `json:"symbol"`
	Snapshot bool     `json:"snapshot"`
}

type ack struct {
	Method  string `json:"method"`
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

type frame struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type entry struct {
	Symbol    string      `json:"symbol"`
	Price     json.Number `json:"price"`
	Qty       json.Number `json:"qty"`
	Timestamp string      `json:"timestamp"`
}

// Connect dials the feed.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(feedv1.StateDisconnected)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.state = feedv1.StateConnected
	c.closed = false
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "connected to feed", logger.Field{Key: "url", Value: c.cfg.URL})
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, errors.NewTracer("failed to connect to feed").Wrap(errors.NewTransportError(err.Error(), "url"))
	}
	if c.cfg.ReadLimit > 0 {
		conn.SetReadLimit(c.cfg.ReadLimit)
	}
	return conn, nil
}

// Subscribe requests the trade channel for symbols and consumes two acknowledgements per symbol.
func (c *Client) Subscribe(ctx context.Context, symbols []string) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if err := c.subscribe(ctx, conn, symbols); err != nil {
		return err
	}

	c.mu.Lock()
	c.symbols = append([]string(nil), symbols...)
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "subscribed to trades", logger.Field{Key: "symbols", Value: symbols})
	return nil
}

func (c *Client) subscribe(ctx context.Context, conn *websocket.Conn, symbols []string) error {
	if conn == nil {
		return errors.NewTracer("failed to subscribe").Wrap(errors.NewTransportError("feed is not connected", "conn"))
	}

	req := subscribeRequest{
		Method: "subscribe",
		Params: subscribeParams{Channel: tradeChannel, Symbol: symbols, Snapshot: false},
	}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		return errors.NewTracer("failed to send subscribe request").Wrap(errors.NewTransportError(err.Error(), "subscribe"))
	}

	hctx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	for i := 0; i < acksPerSymbol*len(symbols); i++ {
		_, data, err := conn.Read(hctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.NewTracer("missing subscribe acknowledgement").Wrap(errors.NewHandshakeError(err.Error(), "ack"))
		}
		if err := checkAck(data); err != nil {
			return errors.NewTracer("invalid subscribe acknowledgement").Wrap(err)
		}
	}
	return nil
}

func checkAck(data []byte) error {
	var a ack
	if err := json.Unmarshal(data, &a); err != nil {
		return errors.NewHandshakeError("acknowledgement is not a json object", "ack")
	}
	if a.Method == "subscribe" && a.Success != nil && !*a.Success {
		return errors.NewHandshakeError("subscribe rejected: "+a.Error, "ack")
	}
	return nil
}

// NextFrame blocks for one frame and returns its trades. Heartbeats and
// unusable frames yield no trades. A dropped connection is re-established
// and re-subscribed before returning an empty list.
func (c *Client) NextFrame(ctx context.Context) ([]tradev1.Trade, error) {
	c.mu.RLock()
	conn, closed := c.conn, c.closed
	c.mu.RUnlock()

	if closed || conn == nil {
		return nil, errors.NewTracer("failed to read frame").Wrap(errors.NewTransportError("feed is not connected", "conn"))
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WarnContext(ctx, "feed connection dropped",
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "close_status", Value: int(websocket.CloseStatus(err))},
		)
		if err := c.reconnect(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return c.classify(util.WithRequestID(ctx, ""), data), nil
}

func (c *Client) classify(ctx context.Context, data []byte) []tradev1.Trade {
	trades, err := c.parseFrame(ctx, data)
	if err != nil {
		c.logger.WarnContext(ctx, "dropping frame",
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "error_code", Value: errors.CodeOf(err)},
		)
		return nil
	}
	return trades
}

// parseFrame returns the trades of one frame. Malformed JSON is a decode error;
// JSON that is not a trade frame object is a schema error.
func (c *Client) parseFrame(ctx context.Context, data []byte) ([]tradev1.Trade, error) {
	if bytes.Contains(data, []byte("heartbeat")) {
		c.logger.DebugContext(ctx, "heartbeat")
		return nil, nil
	}

	if !json.Valid(data) {
		return nil, errors.NewDecodeError("frame is not valid json", "frame")
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.NewSchemaError("frame is not an object", "frame")
	}

	if f.Channel != "" && f.Channel != tradeChannel {
		c.logger.DebugContext(ctx, "ignoring frame", logger.Field{Key: "channel", Value: f.Channel})
		return nil, nil
	}

	var entries []json.RawMessage
	if len(f.Data) == 0 || bytes.Equal(f.Data, []byte("null")) || json.Unmarshal(f.Data, &entries) != nil {
		return nil, errors.NewSchemaError("frame has no trade data", "data")
	}

	trades := make([]tradev1.Trade, 0, len(entries))
	for i, raw := range entries {
		t, err := toTrade(raw)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping trade",
				logger.Field{Key: "index", Value: i},
				logger.Field{Key: "error", Value: err.Error()},
				logger.Field{Key: "error_code", Value: string(errors.FeedSchemaError)},
			)
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func toTrade(raw json.RawMessage) (tradev1.Trade, error) {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return tradev1.Trade{}, errors.NewSchemaError(err.Error(), "data")
	}
	return tradev1.Payload{
		Symbol:    e.Symbol,
		Price:     e.Price,
		Quantity:  e.Qty,
		Timestamp: e.Timestamp,
	}.ToTrade()
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.CloseNow()
		c.conn = nil
	}
	if c.closed {
		c.state = feedv1.StateDisconnected
		c.mu.Unlock()
		return errors.NewTracer("failed to reconnect").Wrap(errors.NewTransportError("feed client is closed", "conn"))
	}
	c.state = feedv1.StateReconnecting
	symbols := c.symbols
	c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < c.cfg.ReconnectMaxRetries; attempt++ {
		wait := c.backoff(attempt)
		c.logger.InfoContext(ctx, "reconnecting to feed",
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "wait", Value: wait.String()},
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setState(feedv1.StateDisconnected)
			return ctx.Err()
		case <-timer.C:
		}

		conn, err := c.dial(ctx)
		if err != nil {
			lastErr = err
			c.logger.WarnContext(ctx, "reconnect failed", logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		if err := c.subscribe(ctx, conn, symbols); err != nil {
			lastErr = err
			c.logger.WarnContext(ctx, "resubscribe failed", logger.Field{Key: "error", Value: err.Error()})
			_ = conn.CloseNow()
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.CloseNow()
			return errors.NewTracer("failed to reconnect").Wrap(errors.NewTransportError("feed client is closed", "conn"))
		}
		c.conn = conn
		c.state = feedv1.StateConnected
		c.mu.Unlock()

		c.logger.InfoContext(ctx, "reconnected to feed", logger.Field{Key: "symbols", Value: symbols})
		return nil
	}

	c.setState(feedv1.StateDisconnected)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	msg := "reconnect retries exhausted"
	if lastErr != nil {
		msg += ": " + lastErr.Error()
	}
	return errors.NewTracer("failed to reconnect").Wrap(errors.NewTransportError(msg, "url"))
}

// backoff returns min(min*2^attempt, max) plus up to 25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.MinReconnectBackoff
	if d <= 0 {
		d = time.Millisecond
	}
	for i := 0; i < attempt && d < c.cfg.MaxReconnectBackoff; i++ {
		d *= 2
	}
	if c.cfg.MaxReconnectBackoff > 0 && d > c.cfg.MaxReconnectBackoff {
		d = c.cfg.MaxReconnectBackoff
	}
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}

func (c *Client) setState(state feedv1.State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// State returns the connection state.
func (c *Client) State() feedv1.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Close closes the connection. Calling it more than once is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.state = feedv1.StateDisconnected
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(websocket.StatusNormalClosure, "shutdown"); err != nil {
		c.logger.Debug("feed close", logger.Field{Key: "error", Value: err.Error()})
	}
	return nil
}
