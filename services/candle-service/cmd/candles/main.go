package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/logger"
	"github.com/muhammadchandra19/exchange/services/candle-service/internal/bootstrap"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	b, err := bootstrap.Init(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}

	if err := run(ctx, b); err != nil {
		b.Logger.Error(err, logger.Field{Key: "action", Value: "candle engine"})
		b.Close(context.Background())
		os.Exit(1)
	}
	b.Close(context.Background())
}

// run aggregates the trades log into candles until a signal or a fatal error.
func run(ctx context.Context, b *bootstrap.Bootstrap) error {
	e := b.NewEngine()
	if err := e.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.ServeHealth(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-e.Err():
			return err
		}
	})
	err := g.Wait()

	b.Logger.Info("shutting down candle engine")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if stopErr := e.Stop(shutdownCtx); stopErr != nil {
		b.Logger.Error(stopErr, logger.Field{Key: "action", Value: "stop engine"})
	}
	return err
}
