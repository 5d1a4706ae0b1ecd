//go:build integration

package candle

import (
	"context"
	"testing"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/logger"
	"github.com/muhammadchandra19/exchange/pkg/migration"
	"github.com/muhammadchandra19/exchange/pkg/questdb"
	candlev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/candle/v1"
	"github.com/muhammadchandra19/exchange/services/candle-service/internal/infrastructure/questdb/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandleRepository_Integration(t *testing.T) {
	tc := questdb.NewTestHelper(t)
	ctx := context.Background()

	log, err := logger.NewLogger()
	require.NoError(t, err)
	runner := migration.NewRunner(tc.Client, log, migrations.FS)
	require.NoError(t, runner.EnsureMigrationTable(ctx))
	require.NoError(t, runner.MigrateUp(ctx, 0))

	repo := NewRepository(tc.Client)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := sampleCandle("XBT/USD", start)
	second := sampleCandle("XBT/USD", start.Add(time.Minute))
	require.NoError(t, repo.StoreBatch(ctx, []*candlev1.Candle{first, second}))

	// WAL tables become readable asynchronously
	var latest *candlev1.Candle
	require.Eventually(t, func() bool {
		latest, err = repo.GetLatest(ctx, "XBT/USD", 60)
		return err == nil && latest != nil && latest.WindowStart.Equal(second.WindowStart)
	}, 30*time.Second, 200*time.Millisecond)

	assert.True(t, latest.High.Equal(second.High))
	assert.True(t, latest.Volume.Equal(second.Volume))
	assert.Equal(t, second.TradeCount, latest.TradeCount)

	missing, err := repo.GetLatest(ctx, "ETH/USD", 60)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
