package tradev1

import (
	"encoding/json"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/shopspring/decimal"
)

// Trade is a single executed trade as reported by the feed.
type Trade struct {
	Symbol    string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
}

// NewTrade validates and builds a Trade. The timestamp is normalised to UTC.
func NewTrade(symbol string, price, quantity decimal.Decimal, timestamp time.Time) (Trade, error) {
	t := Trade{
		Symbol:    symbol,
		Price:     price,
		Quantity:  quantity,
		Timestamp: timestamp.UTC(),
	}
	if err := t.Validate(); err != nil {
		return Trade{}, err
	}
	return t, nil
}

// Validate reports a schema error for an incomplete or non-positive trade.
func (t Trade) Validate() error {
	switch {
	case t.Symbol == "":
		return errors.NewSchemaError("trade has no symbol", "symbol")
	case !t.Price.IsPositive():
		return errors.NewSchemaError("trade price must be positive", "price")
	case !t.Quantity.IsPositive():
		return errors.NewSchemaError("trade quantity must be positive", "quantity")
	case t.Timestamp.IsZero():
		return errors.NewSchemaError("trade has no timestamp", "timestamp")
	}
	return nil
}

// WithTimestamp returns a copy of t stamped with ts.
func (t Trade) WithTimestamp(ts time.Time) Trade {
	t.Timestamp = ts.UTC()
	return t
}

// Payload is the trades log message value.
type Payload struct {
	Symbol    string      `json:"symbol"`
	Price     json.Number `json:"price"`
	Quantity  json.Number `json:"quantity"`
	Timestamp string      `json:"timestamp"`
}

// ToPayload converts t to its wire form.
func (t Trade) ToPayload() Payload {
	return Payload{
		Symbol:    t.Symbol,
		Price:     json.Number(t.Price.String()),
		Quantity:  json.Number(t.Quantity.String()),
		Timestamp: t.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// ToBytes encodes t as a trades log message value.
func ToBytes(t Trade) ([]byte, error) {
	return json.Marshal(t.ToPayload())
}

// FromBytes decodes a trades log message value. Malformed JSON yields a decode
// error, missing or invalid fields a schema error.
func FromBytes(b []byte) (Trade, error) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Trade{}, errors.NewTracer("failed to decode trade").Wrap(errors.NewDecodeError(err.Error(), "value"))
	}
	return p.ToTrade()
}

// ToTrade validates the payload and converts it to a Trade.
func (p Payload) ToTrade() (Trade, error) {
	if p.Price == "" || p.Quantity == "" || p.Timestamp == "" {
		return Trade{}, errors.NewSchemaError("trade payload is missing fields", "value")
	}

	price, err := decimal.NewFromString(p.Price.String())
	if err != nil {
		return Trade{}, errors.NewSchemaError("trade price is not a number", "price")
	}
	quantity, err := decimal.NewFromString(p.Quantity.String())
	if err != nil {
		return Trade{}, errors.NewSchemaError("trade quantity is not a number", "quantity")
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return Trade{}, errors.NewSchemaError("trade timestamp is not RFC3339", "timestamp")
	}

	return NewTrade(p.Symbol, price, quantity, ts)
}
