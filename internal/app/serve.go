package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/seoflow/internal/http"
)

// NewHTTPServer builds the HTTP API server over the App's components.
func (a *App) NewHTTPServer() (*httpserver.Server, error) {
	return httpserver.NewServer(a.Orchestrator, a.Store, a.Logger.Named("http"),
		&httpserver.Config{Host: a.Config.Server.Host, Port: a.Config.Server.Port},
		httpserver.WithScrubber(a.Scrubber),
		httpserver.WithModelInfo(a.Model),
		httpserver.WithGatherer(prometheus.DefaultGatherer),
		httpserver.WithHTTPMetrics(httpserver.NewHTTPMetrics(a.Logger)),
	)
}

// ServeHTTP serves the HTTP API until ctx is cancelled, then shuts the
// server down within the configured shutdown timeout.
func (a *App) ServeHTTP(ctx context.Context) error {
	srv, err := a.NewHTTPServer()
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error(shutdownCtx, "http server shutdown failed", zap.Error(err))
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
