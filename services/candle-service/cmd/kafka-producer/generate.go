package main

import (
	"encoding/json"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
	"github.com/shopspring/decimal"
)

// walk is a random walk price generator for one symbol.
type walk struct {
	price  float64
	spread float64
}

// generateTrades creates count trades cycling through symbols. Prices follow a
// random walk around basePrice and timestamps advance by step from start.
func generateTrades(r *rand.Rand, symbols []string, count int, basePrice, spread float64, start time.Time, step time.Duration) []tradev1.Trade {
	walks := make(map[string]*walk, len(symbols))
	for _, s := range symbols {
		walks[s] = &walk{price: basePrice, spread: spread}
	}

	trades := make([]tradev1.Trade, 0, count)
	for i := 0; i < count; i++ {
		symbol := symbols[i%len(symbols)]
		w := walks[symbol]

		w.price += (r.Float64() - 0.5) * w.spread
		if w.price <= w.spread {
			w.price = basePrice
		}

		price := decimal.NewFromFloat(w.price).Round(1)
		// size between 0.001 and 10
		size := decimal.NewFromFloat(0.001 + r.Float64()*9.999).Round(3)

		t, err := tradev1.NewTrade(symbol, price, size, start.Add(time.Duration(i)*step))
		if err != nil {
			continue
		}
		trades = append(trades, t)
	}
	return trades
}

// loadTrades reads a JSON array of trades log payloads.
func loadTrades(path string) ([]tradev1.Trade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewTracer("failed to read trades file").Wrap(err)
	}

	var payloads []tradev1.Payload
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, errors.NewTracer("failed to parse trades file").Wrap(errors.NewDecodeError(err.Error(), path))
	}

	trades := make([]tradev1.Trade, 0, len(payloads))
	for i, p := range payloads {
		t, err := p.ToTrade()
		if err != nil {
			return nil, errors.NewTracer("invalid trade at index " + strconv.Itoa(i)).Wrap(err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}
