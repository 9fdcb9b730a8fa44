package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/example/promo-cart/internal/config"
	"github.com/example/promo-cart/internal/infrastructure/store"
	"github.com/example/promo-cart/internal/logger"
	"go.uber.org/zap"
)

func main() {
	down := flag.Bool("down", false, "roll back every journal migration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	direction := "up"
	apply := store.Migrate
	if *down {
		direction = "down"
		apply = store.MigrateDown
	}
	if err := apply(ctx, cfg.Journal.DatabaseURL); err != nil {
		log.Fatal("migration failed", zap.String("direction", direction), zap.Error(err))
	}
	log.Info("migrations applied", zap.String("direction", direction))
}
