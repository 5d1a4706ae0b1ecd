package candle

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/questdb"
	candlev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle/v1"
	"github.com/shopspring/decimal"
)

const (
	columns = "window_start, window_end, symbol, candle_seconds, open, high, low, close, volume, trade_count, last_trade_at"

	insertQuery = "INSERT INTO candles (" + columns + ") VALUES "

	latestQuery = "SELECT " + columns + ` FROM candles
WHERE symbol = $1 AND candle_seconds = $2
ORDER BY window_start DESC
LIMIT 1`
)

const columnCount = 11

// Repository stores closed candles in QuestDB.
type Repository struct {
	client questdb.QuestDBClient
}

var _ candlev1.Repository = (*Repository)(nil)

// NewRepository creates a new candle repository.
func NewRepository(client questdb.QuestDBClient) *Repository {
	return &Repository{
		client: client,
	}
}

// Store stores one candle.
func (r *Repository) Store(ctx context.Context, candle *candlev1.Candle) error {
	return r.StoreBatch(ctx, []*candlev1.Candle{candle})
}

// StoreBatch stores candles with a single multi-row insert.
func (r *Repository) StoreBatch(ctx context.Context, candles []*candlev1.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	query, args := buildInsert(candles)
	if err := r.client.Exec(ctx, query, args...); err != nil {
		return errors.NewTracer("failed to store candles").Wrap(
			errors.NewErrorDetails(err.Error(), string(errors.GeneralRepositoryError), "candles"),
		)
	}
	return nil
}

func buildInsert(candles []*candlev1.Candle) (string, []any) {
	var sb strings.Builder
	sb.WriteString(insertQuery)

	args := make([]any, 0, len(candles)*columnCount)
	for i, c := range candles {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < columnCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*columnCount+j+1)
		}
		sb.WriteString(")")

		args = append(args,
			c.WindowStart,
			c.WindowEnd,
			c.Symbol,
			c.Seconds,
			c.Open.InexactFloat64(),
			c.High.InexactFloat64(),
			c.Low.InexactFloat64(),
			c.Close.InexactFloat64(),
			c.Volume.InexactFloat64(),
			c.TradeCount,
			c.LastTradeAt,
		)
	}
	return sb.String(), args
}

// GetLatest returns the most recent stored candle of symbol for the given duration, or nil.
func (r *Repository) GetLatest(ctx context.Context, symbol string, seconds int) (*candlev1.Candle, error) {
	var (
		c                                  candlev1.Candle
		openP, highP, lowP, closeP, volume float64
		windowStart, windowEnd, last       time.Time
	)

	err := r.client.QueryRow(ctx, latestQuery, symbol, seconds).Scan(
		&windowStart, &windowEnd, &c.Symbol, &c.Seconds,
		&openP, &highP, &lowP, &closeP, &volume,
		&c.TradeCount, &last,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.NewTracer("failed to get latest candle").Wrap(
			errors.NewErrorDetails(err.Error(), string(errors.GeneralRepositoryError), "candles"),
		)
	}

	c.WindowStart = windowStart.UTC()
	c.WindowEnd = windowEnd.UTC()
	c.LastTradeAt = last.UTC()
	c.Open = decimal.NewFromFloat(openP)
	c.High = decimal.NewFromFloat(highP)
	c.Low = decimal.NewFromFloat(lowP)
	c.Close = decimal.NewFromFloat(closeP)
	c.Volume = decimal.NewFromFloat(volume)
	return &c, nil
}
