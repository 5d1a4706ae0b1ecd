package ingestor

import (
	"context"
	"testing"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	feedv1_mock "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/feed/v1/mock"
	tradepublisherv1_mock "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade-publisher/v1/mock"
	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var symbols = []string{"BTC/USD"}

type testFixture struct {
	ingestor  *Ingestor
	feed      *feedv1_mock.MockClient
	publisher *tradepublisherv1_mock.MockPublisher
}

func setupTestFixture(t *testing.T) testFixture {
	ctrl := gomock.NewController(t)

	log, err := logger.NewLogger()
	require.NoError(t, err)

	feed := feedv1_mock.NewMockClient(ctrl)
	publisher := tradepublisherv1_mock.NewMockPublisher(ctrl)

	return testFixture{
		ingestor:  NewIngestor(feed, publisher, log, symbols, time.Second),
		feed:      feed,
		publisher: publisher,
	}
}

func newTrade(t *testing.T, price string) tradev1.Trade {
	tr, err := tradev1.NewTrade("BTC/USD", decimal.RequireFromString(price), decimal.RequireFromString("1"), time.Unix(1, 0))
	require.NoError(t, err)
	return tr
}

func blockUntilDone(waiting chan struct{}) func(ctx context.Context) ([]tradev1.Trade, error) {
	return func(ctx context.Context) ([]tradev1.Trade, error) {
		close(waiting)
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func TestIngestor_Start(t *testing.T) {
	testCases := []struct {
		name     string
		mockFn   func(f testFixture)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "connect failure",
			mockFn: func(f testFixture) {
				f.feed.EXPECT().Connect(gomock.Any()).Return(errors.NewTransportError("refused", "url"))
			},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsTransportError(err))
			},
		},
		{
			name: "subscribe failure closes the feed",
			mockFn: func(f testFixture) {
				f.feed.EXPECT().Connect(gomock.Any()).Return(nil)
				f.feed.EXPECT().Subscribe(gomock.Any(), symbols).Return(errors.NewHandshakeError("missing ack", "ack"))
				f.feed.EXPECT().Close().Return(nil)
			},
			assertFn: func(t *testing.T, err error) {
				assert.Equal(t, string(errors.FeedHandshakeError), errors.CodeOf(err))
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			tc.mockFn(f)
			tc.assertFn(t, f.ingestor.Start(context.Background()))
		})
	}
}

func TestIngestor_RelaysInFeedOrder(t *testing.T) {
	f := setupTestFixture(t)
	waiting := make(chan struct{})

	first, second, third := newTrade(t, "10"), newTrade(t, "11"), newTrade(t, "12")

	f.feed.EXPECT().Connect(gomock.Any()).Return(nil)
	f.feed.EXPECT().Subscribe(gomock.Any(), symbols).Return(nil)
	gomock.InOrder(
		f.feed.EXPECT().NextFrame(gomock.Any()).Return([]tradev1.Trade{first, second}, nil),
		f.publisher.EXPECT().Publish(gomock.Any(), first).Return(nil),
		f.publisher.EXPECT().Publish(gomock.Any(), second).Return(nil),
		f.feed.EXPECT().NextFrame(gomock.Any()).Return(nil, nil),
		f.feed.EXPECT().NextFrame(gomock.Any()).Return([]tradev1.Trade{third}, nil),
		f.publisher.EXPECT().Publish(gomock.Any(), third).Return(nil),
		f.feed.EXPECT().NextFrame(gomock.Any()).DoAndReturn(blockUntilDone(waiting)),
	)
	f.feed.EXPECT().Close().Return(nil)
	f.publisher.EXPECT().Close().Return(nil)

	require.NoError(t, f.ingestor.Start(context.Background()))
	<-waiting

	require.NoError(t, f.ingestor.Stop(context.Background()))
	assert.Equal(t, int64(3), f.ingestor.Published())
}

func TestIngestor_FatalErrors(t *testing.T) {
	testCases := []struct {
		name     string
		mockFn   func(t *testing.T, f testFixture)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "reconnects exhausted",
			mockFn: func(t *testing.T, f testFixture) {
				f.feed.EXPECT().NextFrame(gomock.Any()).Return(nil, errors.NewTransportError("reconnect retries exhausted", "url"))
			},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsTransportError(err))
			},
		},
		{
			name: "publish failure",
			mockFn: func(t *testing.T, f testFixture) {
				f.feed.EXPECT().NextFrame(gomock.Any()).Return([]tradev1.Trade{newTrade(t, "10")}, nil)
				f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.NewPublishError("broker down", "trades"))
			},
			assertFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsPublishError(err))
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.feed.EXPECT().Connect(gomock.Any()).Return(nil)
			f.feed.EXPECT().Subscribe(gomock.Any(), symbols).Return(nil)
			f.feed.EXPECT().Close().Return(nil)
			f.publisher.EXPECT().Close().Return(nil)
			tc.mockFn(t, f)

			require.NoError(t, f.ingestor.Start(context.Background()))

			select {
			case err := <-f.ingestor.Err():
				tc.assertFn(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("loop error not reported")
			}
			assert.NoError(t, f.ingestor.Stop(context.Background()))
		})
	}
}
