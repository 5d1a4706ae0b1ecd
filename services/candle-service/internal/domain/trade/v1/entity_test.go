package tradev1

import (
	"testing"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrade(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))

	testCases := []struct {
		name     string
		symbol   string
		price    string
		qty      string
		ts       time.Time
		assertFn func(t *testing.T, tr Trade, err error)
	}{
		{
			name:   "valid trade is normalised to utc",
			symbol: "XBT/USD",
			price:  "42000.5",
			qty:    "0.25",
			ts:     ts,
			assertFn: func(t *testing.T, tr Trade, err error) {
				require.NoError(t, err)
				assert.Equal(t, time.UTC, tr.Timestamp.Location())
				assert.True(t, tr.Timestamp.Equal(ts))
			},
		},
		{
			name:   "zero quantity",
			symbol: "XBT/USD",
			price:  "1",
			qty:    "0",
			ts:     ts,
			assertFn: func(t *testing.T, tr Trade, err error) {
				assert.True(t, errors.IsSchemaError(err))
			},
		},
		{
			name:   "negative price",
			symbol: "XBT/USD",
			price:  "-1",
			qty:    "1",
			ts:     ts,
			assertFn: func(t *testing.T, tr Trade, err error) {
				assert.True(t, errors.IsSchemaError(err))
			},
		},
		{
			name:  "missing symbol",
			price: "1",
			qty:   "1",
			ts:    ts,
			assertFn: func(t *testing.T, tr Trade, err error) {
				assert.True(t, errors.IsSchemaError(err))
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tr, err := NewTrade(tc.symbol, decimal.RequireFromString(tc.price), decimal.RequireFromString(tc.qty), tc.ts)
			tc.assertFn(t, tr, err)
		})
	}
}

func TestToBytes(t *testing.T) {
	tr, err := NewTrade("XBT/USD", decimal.RequireFromString("10.50"), decimal.RequireFromString("1"), time.Unix(30, 5000).UTC())
	require.NoError(t, err)

	b, err := ToBytes(tr)
	require.NoError(t, err)

	assert.JSONEq(t, `{"symbol":"XBT/USD","price":10.5,"quantity":1,"timestamp":"1970-01-01T00:00:30.000005Z"}`, string(b))
}

func TestFromBytes(t *testing.T) {
	testCases := []struct {
		name     string
		value    string
		assertFn func(t *testing.T, tr Trade, err error)
	}{
		{
			name:  "numbers",
			value: `{"symbol":"XBT/USD","price":10.5,"quantity":2,"timestamp":"1970-01-01T00:00:30Z"}`,
			assertFn: func(t *testing.T, tr Trade, err error) {
				require.NoError(t, err)
				assert.Equal(t, "XBT/USD", tr.Symbol)
				assert.True(t, tr.Price.Equal(decimal.RequireFromString("10.5")))
				assert.True(t, tr.Quantity.Equal(decimal.NewFromInt(2)))
				assert.Equal(t, int64(30), tr.Timestamp.Unix())
			},
		},
		{
			name:  "quoted numbers",
			value: `{"symbol":"XBT/USD","price":"10.5","quantity":"2","timestamp":"1970-01-01T00:00:30Z"}`,
			assertFn: func(t *testing.T, tr Trade, err error) {
				require.NoError(t, err)
				assert.True(t, tr.Price.Equal(decimal.RequireFromString("10.5")))
			},
		},
		{
			name:  "malformed json",
			value: `{"symbol":`,
			assertFn: func(t *testing.T, tr Trade, err error) {
				assert.True(t, errors.IsDecodeError(err))
			},
		},
		{
			name:  "missing price",
			value: `{"symbol":"XBT/USD","quantity":2,"timestamp":"1970-01-01T00:00:30Z"}`,
			assertFn: func(t *testing.T, tr Trade, err error) {
				assert.True(t, errors.IsSchemaError(err))
			},
		},
		{
			name:  "bad timestamp",
			value: `{"symbol":"XBT/USD","price":1,"quantity":2,"timestamp":"yesterday"}`,
			assertFn: func(t *testing.T, tr Trade, err error) {
				assert.True(t, errors.IsSchemaError(err))
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tr, err := FromBytes([]byte(tc.value))
			tc.assertFn(t, tr, err)
		})
	}
}

func TestRoundTripPreservesDecimals(t *testing.T) {
	tr, err := NewTrade("ETH/USD", decimal.RequireFromString("3150.123456789"), decimal.RequireFromString("0.00000001"), time.Unix(1700000000, 123456789))
	require.NoError(t, err)

	b, err := ToBytes(tr)
	require.NoError(t, err)
	got, err := FromBytes(b)
	require.NoError(t, err)

	assert.True(t, tr.Price.Equal(got.Price))
	assert.True(t, tr.Quantity.Equal(got.Quantity))
	assert.True(t, tr.Timestamp.Equal(got.Timestamp))
}
