package candlev1

import (
	"encoding/json"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/window"
	"github.com/shopspring/decimal"
)

// Candle is the OHLCV aggregate of the trades of one symbol in one window.
type Candle struct {
	Symbol string
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal

	WindowStart time.Time
	WindowEnd   time.Time
	Seconds     int

	TradeCount  int64
	LastTradeAt time.Time
}

// NewCandle opens a candle for w from its first trade.
func NewCandle(t tradev1.Trade, w window.Window, seconds int) *Candle {
	return &Candle{
		Symbol:      t.Symbol,
		Open:        t.Price,
		High:        t.Price,
		Low:         t.Price,
		Close:       t.Price,
		Volume:      t.Quantity,
		WindowStart: w.Start,
		WindowEnd:   w.End,
		Seconds:     seconds,
		TradeCount:  1,
		LastTradeAt: t.Timestamp,
	}
}

// Apply folds t into the candle. Open is fixed, close follows arrival order.
func (c *Candle) Apply(t tradev1.Trade) {
	if t.Price.GreaterThan(c.High) {
		c.High = t.Price
	}
	if t.Price.LessThan(c.Low) {
		c.Low = t.Price
	}
	c.Close = t.Price
	c.Volume = c.Volume.Add(t.Quantity)
	c.TradeCount++
	if t.Timestamp.After(c.LastTradeAt) {
		c.LastTradeAt = t.Timestamp
	}
}

// Window returns the candle's window.
func (c *Candle) Window() window.Window {
	return window.Window{Start: c.WindowStart, End: c.WindowEnd}
}

// Payload is the candles log message value.
type Payload struct {
	Symbol        string      `json:"symbol"`
	Open          json.Number `json:"open"`
	High          json.Number `json:"high"`
	Low           json.Number `json:"low"`
	Close         json.Number `json:"close"`
	Volume        json.Number `json:"volume"`
	WindowStartMs int64       `json:"window_start_ms"`
	WindowEndMs   int64       `json:"window_end_ms"`
	CandleSeconds int         `json:"candle_seconds"`
}

// ToPayload converts c to its wire form.
func (c *Candle) ToPayload() Payload {
	return Payload{
		Symbol:        c.Symbol,
		Open:          json.Number(c.Open.String()),
		High:          json.Number(c.High.String()),
		Low:           json.Number(c.Low.String()),
		Close:         json.Number(c.Close.String()),
		Volume:        json.Number(c.Volume.String()),
		WindowStartMs: c.WindowStart.UnixMilli(),
		WindowEndMs:   c.WindowEnd.UnixMilli(),
		CandleSeconds: c.Seconds,
	}
}

// ToBytes encodes c as a candles log message value.
func ToBytes(c *Candle) ([]byte, error) {
	return json.Marshal(c.ToPayload())
}

// FromBytes decodes a candles log message value.
func FromBytes(b []byte) (*Candle, error) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, errors.NewTracer("failed to decode candle").Wrap(errors.NewDecodeError(err.Error(), "value"))
	}

	var parseErr error
	parse := func(name string, n json.Number) decimal.Decimal {
		d, err := decimal.NewFromString(n.String())
		if err != nil && parseErr == nil {
			parseErr = errors.NewSchemaError("candle "+name+" is not a number", name)
		}
		return d
	}

	c := &Candle{
		Symbol:      p.Symbol,
		Open:        parse("open", p.Open),
		High:        parse("high", p.High),
		Low:         parse("low", p.Low),
		Close:       parse("close", p.Close),
		Volume:      parse("volume", p.Volume),
		WindowStart: time.UnixMilli(p.WindowStartMs).UTC(),
		WindowEnd:   time.UnixMilli(p.WindowEndMs).UTC(),
		Seconds:     p.CandleSeconds,
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return c, nil
}
