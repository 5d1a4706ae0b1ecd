package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/logger"
)

// ServeHealth serves GET /health on APP_HEALTH_PORT until ctx is done.
func (b *Bootstrap) ServeHealth(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", b.Config.App.HealthPort),
		Handler:           b.Health.Handler(http.NotFoundHandler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	b.Logger.InfoContext(ctx, "health endpoint listening", logger.Field{Key: "addr", Value: srv.Addr})
	if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
