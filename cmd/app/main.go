// app runs one-shot order-desk commands against the configured database, or
// an interactive shell when no command is given.
//
// Usage: go run ./cmd/app [command] [args]
package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"order-desk/internal/adapters/cli"
	"order-desk/internal/adapters/repl"
	"order-desk/internal/app"
	"order-desk/internal/config"
	"order-desk/internal/db"
	"order-desk/internal/events"
	"order-desk/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// Tables go to stdout, so keep logs quiet unless asked otherwise.
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}
	zl, err := logger.New(cfg.Log.Level, "console")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	publisher, err := events.New(cfg.Events.RabbitMQURL, cfg.Events.Exchange, zl.Named("events"))
	if err != nil {
		log.Fatalf("events: %v", err)
	}
	defer publisher.Close()

	svc, err := app.Wire(pool, cfg, publisher, zl)
	if err != nil {
		log.Fatalf("wire services: %v", err)
	}

	if len(os.Args) < 2 {
		repl.Run(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout)
		return
	}
	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		pool.Close()
		log.Fatalf("%v", err)
	}
}
