package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/promo-cart/internal/config"
	"github.com/example/promo-cart/internal/infrastructure/kafka"
	"github.com/example/promo-cart/internal/logger"
	"github.com/example/promo-cart/internal/notification"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
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

	if !cfg.Kafka.Enabled() {
		log.Fatal("KAFKA_BROKERS is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var feed notification.Feed = notification.NewMemoryFeed(cfg.AlertFeed.Size)
	if cfg.AlertFeed.Backend == config.AlertFeedRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		feed = notification.NewRedisFeed(client, cfg.AlertFeed.Key, cfg.AlertFeed.Size)
	}
	handler := notification.NewHandler(feed, log)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, log)
	defer consumer.Close()

	log.Info("notifier started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.GroupID),
		zap.String("feed", cfg.AlertFeed.Backend),
	)
	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		log.Error("consumer stopped", zap.Error(err))
	}
	log.Info("notifier stopped")
}
