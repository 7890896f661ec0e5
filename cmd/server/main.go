package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	webAdapter "order-desk/internal/adapters/web"
	"order-desk/internal/app"
	"order-desk/internal/config"
	"order-desk/internal/db"
	"order-desk/internal/events"
	"order-desk/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	publisher, err := events.New(cfg.Events.RabbitMQURL, cfg.Events.Exchange, zl.Named("events"))
	if err != nil {
		zl.Fatal("events", zap.Error(err))
	}
	defer publisher.Close()

	svc, err := app.Wire(pool, cfg, publisher, zl)
	if err != nil {
		zl.Fatal("wire services", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           webAdapter.NewHandler(svc, cfg.Server.AllowedOrigins, zl.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zl.Error("server shutdown", zap.Error(err))
		}
	}()

	zl.Info("server starting", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("server", zap.Error(err))
	}
	zl.Info("server stopped")
}
