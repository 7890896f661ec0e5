// migrate applies the embedded SQL migrations in filename order. Each file runs
// once; an edited file that was already applied is reported as a checksum
// mismatch instead of being re-run.
//
// Usage: go run ./cmd/migrate
package main

import (
	"context"
	"log"
	"time"

	"order-desk/internal/config"
	"order-desk/internal/db"
	"order-desk/internal/logger"
	"order-desk/migrations"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Log.Level, "console")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		zl.Fatal("[CONNECT] failed", zap.Error(err))
	}
	defer pool.Close()

	applied, err := migrations.Apply(ctx, pool, zl)
	if err != nil {
		zl.Fatal("[MIGRATE] failed", zap.Error(err))
	}
	zl.Info("[DONE] all migrations processed", zap.Strings("applied", applied))
}
