package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/ghreport/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/ghreport/internal/adapter/driving/web"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Generate reports on an interval and serve them over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

func serve(ctx context.Context, opts *options) error {
	cfg, logger := opts.cfg, opts.logger

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.close()

	apiHandler := httphandler.NewHandler(a.service, a.runs, a.db, logger)
	webHandler, err := webhandler.NewHandler(a.service, logger)
	if err != nil {
		return err
	}

	// Deferred after close so the poll loop has stopped before the database
	// is closed.
	stopPolling := startBackground(ctx, a.service.Start)
	defer stopPolling()

	mux := http.NewServeMux()
	httphandler.RegisterRoutes(mux, apiHandler)
	webhandler.RegisterRoutes(mux, webHandler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.WithMiddleware(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Manual refreshes run a full report inside the request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("ghreport started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
		"lookback", cfg.Lookback,
		"report_dir", cfg.ReportDir,
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// startBackground runs fn in a goroutine with a context derived from ctx. The
// returned stop function cancels that context and blocks until fn returns.
func startBackground(ctx context.Context, fn func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
