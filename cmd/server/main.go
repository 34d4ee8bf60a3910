package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunosilvadev/rinha-2025/internal/breaker"
	"github.com/brunosilvadev/rinha-2025/internal/config"
	"github.com/brunosilvadev/rinha-2025/internal/handler"
	"github.com/brunosilvadev/rinha-2025/internal/health"
	"github.com/brunosilvadev/rinha-2025/internal/metrics"
	"github.com/brunosilvadev/rinha-2025/internal/model"
	"github.com/brunosilvadev/rinha-2025/internal/orchestrator"
	"github.com/brunosilvadev/rinha-2025/internal/processor"
	"github.com/brunosilvadev/rinha-2025/internal/store"
	"github.com/brunosilvadev/rinha-2025/internal/summary"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	st, err := store.NewRedis(cfg.StoreURL)
	if err != nil {
		slog.Error("store_config_invalid", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := st.Ping(pingCtx); err != nil {
		// Degraded mode: routing hints are lost, dispatching continues.
		slog.Warn("store_unreachable_at_startup", "error", err)
	}
	cancelPing()

	primary := processor.NewClient(model.ProcessorPrimary, cfg.PrimaryURL, cfg.PaymentTimeout, cfg.ProbeTimeout)
	fallback := processor.NewClient(model.ProcessorFallback, cfg.FallbackURL, cfg.PaymentTimeout, cfg.ProbeTimeout)

	cache := health.NewCache(st, map[model.Processor]health.Prober{
		model.ProcessorPrimary:  primary,
		model.ProcessorFallback: fallback,
	}, cfg.HealthCacheTTL)

	brk := breaker.New(st, cfg.FailureThreshold, cfg.SuccessThreshold, cfg.Cooldown)
	sums := summary.New(st)

	mets := metrics.New()
	if err := mets.Register(); err != nil {
		slog.Warn("metrics_registration_failed", "error", err)
	}

	orch := orchestrator.New(
		orchestrator.NewDecider(brk, cache, cfg.LatencyCutoff),
		brk,
		map[model.Processor]processor.Upstream{
			model.ProcessorPrimary:  primary,
			model.ProcessorFallback: fallback,
		},
		sums,
		mets,
		cfg.MaxRetries,
		cfg.Backoffs,
	)

	mux := http.NewServeMux()
	handler.New(orch, sums).RegisterRoutes(mux)
	mux.Handle("GET /metrics", mets.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server_starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server_failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server_shutdown_failed", "error", err)
	}

	// Drain write-behind work before the store client closes.
	cache.Close()
	sums.Close()

	slog.Info("server_stopped")
}
