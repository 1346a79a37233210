package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/healthchain/rxintake/internal/adapters/http"
	"github.com/healthchain/rxintake/internal/bootstrap"
	"github.com/healthchain/rxintake/internal/config"
	"github.com/healthchain/rxintake/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(
		app.LoginUC,
		app.IngestUC,
		app.RiskUC,
		app.DashboardUC,
		app.Ledger,
		app.Sessions,
		cfg.MultichainStream,
	).
		WithMetrics(app.Metrics).
		WithLoginRateLimit(cfg.LoginRatePerMinute, cfg.LoginRateBurst).
		Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
