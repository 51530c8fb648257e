package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/primedata-ai/aird/engine/pipeline"
	"github.com/primedata-ai/aird/pkg/mid"
	"github.com/primedata-ai/aird/pkg/natsutil"
)

func newServeCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as a long-lived pipeline worker consuming orchestrator run requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			if cfg.NATSURL == "" {
				return fmt.Errorf("serve requires AIRD_NATS_URL")
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	return cmd
}

func serve(parent context.Context, cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	nc := rt.nats

	runsStarted := rt.metrics.Counter("aird_runs_started_total", "Pipeline runs accepted from the orchestrator")
	runsFailed := rt.metrics.Counter("aird_runs_failed_total", "Pipeline runs that ended in an error")
	runDuration := rt.metrics.Histogram("aird_run_duration_seconds", "Wall-clock duration of a pipeline run", nil)

	sub, err := natsutil.Subscribe(nc, pipeline.RunRequestSubject, func(msgCtx context.Context, req pipeline.RunRequest) {
		runsStarted.Inc()
		started := time.Now()
		run, err := rt.runner.Run(msgCtx, req.ProductID, req.DAGID)
		runDuration.Since(started)
		if err != nil {
			runsFailed.Inc()
			logger.Error("run request failed", "product", req.ProductID, "dag_id", req.DAGID, "err", err)
			return
		}
		logger.Info("run request finished", "run", run.ID, "product", run.ProductID, "status", run.Status)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", pipeline.RunRequestSubject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:      mid.Chain(mux, mid.Recover(logger), mid.Logger(logger), mid.OTel("aird")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
