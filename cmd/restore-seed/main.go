// restore-seed re-inserts the default lookup entries (tax rate, currency and
// company letterhead) when they have been deleted. Existing values are kept.
//
// Usage: go run ./cmd/restore-seed
package main

import (
	"context"
	"log"

	"order-desk/internal/config"
	"order-desk/internal/core"
	"order-desk/internal/db"
	"order-desk/internal/logger"

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

	taxRate, err := cfg.TaxRate()
	if err != nil {
		zl.Fatal("config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		zl.Fatal("Failed to connect", zap.Error(err))
	}
	defer pool.Close()

	n, err := core.NewLookupService(pool, taxRate, zl).SeedDefaults(ctx)
	if err != nil {
		zl.Fatal("Failed to restore lookup defaults", zap.Error(err))
	}
	zl.Info("seed data restored", zap.Int("inserted", n))
}
