package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/promo-cart/internal/config"
	"github.com/example/promo-cart/internal/infrastructure/kinesis"
	"github.com/example/promo-cart/internal/logger"
	"github.com/example/promo-cart/internal/notification"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	log          *zap.Logger
	notifHandler *notification.Handler
)

func init() {
	cfg := config.LoadEnv()
	var err error
	log, err = logger.New(cfg.Logger)
	if err != nil {
		log = zap.NewNop()
	}
	log = log.Named("lambda-notifier")

	var feed notification.Feed = notification.NewMemoryFeed(cfg.AlertFeed.Size)
	if cfg.AlertFeed.Backend == config.AlertFeedRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		feed = notification.NewRedisFeed(client, cfg.AlertFeed.Key, cfg.AlertFeed.Size)
	}
	notifHandler = notification.NewHandler(feed, log)

	log.Info("initialized",
		zap.String("feed", cfg.AlertFeed.Backend),
		zap.String("function", os.Getenv("AWS_LAMBDA_FUNCTION_NAME")),
	)
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	return kinesis.ProcessBatch(ctx, batch, notifHandler.HandleJournalEvent, log), nil
}

func main() {
	lambda.Start(handler)
}
