package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"research-job-service/internal/config"
	"research-job-service/internal/service"
	httptransport "research-job-service/internal/transport/http"
	"research-job-service/internal/worker"
)

var (
	serveAddr       string
	shutdownTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API. With DISPATCH_MODE=inprocess jobs run in this process;
with DISPATCH_MODE=queue they are pushed to Redis for "researchd worker".`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "how long to wait for requests and running jobs on shutdown")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var (
		dispatcher service.Dispatcher
		drain      func(context.Context) error
	)
	switch a.cfg.Dispatch.Mode {
	case config.DispatchQueue:
		dispatcher = worker.NewQueueDispatcher(a.queue())
	default:
		proc, err := a.processor(ctx)
		if err != nil {
			return err
		}
		gd := worker.NewGoroutineDispatcher(proc, a.log)
		dispatcher, drain = gd, gd.Shutdown
	}

	svc := service.NewJobService(a.store, dispatcher, service.Options{MaxTopics: a.cfg.Research.MaxTopics}, a.log)
	h := httptransport.NewHandler(svc, a.log)

	addr := a.cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           httptransport.Routes(h, httptransport.RouteOptions{JWTSecret: a.cfg.JWTSecret}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Str("dispatch", a.cfg.Dispatch.Mode).Msg("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	a.log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		a.log.Error().Err(err).Msg("http shutdown")
	}
	if drain != nil {
		if err := drain(sctx); err != nil {
			a.log.Warn().Err(err).Msg("running jobs were cancelled")
		}
	}
	a.log.Info().Msg("server stopped")
	return nil
}
