package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/promo-cart/internal/api"
	"github.com/example/promo-cart/internal/command"
	"github.com/example/promo-cart/internal/config"
	"github.com/example/promo-cart/internal/domain/catalog"
	"github.com/example/promo-cart/internal/infrastructure/kafka"
	"github.com/example/promo-cart/internal/infrastructure/store"
	"github.com/example/promo-cart/internal/logger"
	"github.com/example/promo-cart/internal/loyalty"
	"github.com/example/promo-cart/internal/notification"
	"github.com/example/promo-cart/internal/pricing"
	"github.com/example/promo-cart/internal/promotion"
	"github.com/example/promo-cart/internal/query"
	"github.com/example/promo-cart/internal/session"
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

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher store.Publisher
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer
		log.Info("publishing journal to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	journal, closeJournal, err := openJournal(ctx, cfg, publisher, log)
	if err != nil {
		return err
	}
	defer closeJournal()

	feed, closeFeed, err := openFeed(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFeed()

	sess := session.New(catalog.Seed())
	cmdHandler := command.NewHandler(sess, journal, log)
	queryHandler := query.NewHandler(sess, pricing.NewEngine(pricing.DefaultRules()), loyalty.NewEngine(loyalty.DefaultRules()))
	notifications := notification.NewHandler(feed, log)

	opts := promotion.DefaultOptions()
	opts.Logger = log
	opts.LightningInterval = cfg.Promotion.LightningInterval
	opts.LightningMaxDelay = cfg.Promotion.LightningMaxDelay
	opts.SuggestionInterval = cfg.Promotion.SuggestionInterval
	opts.SuggestionMaxDelay = cfg.Promotion.SuggestionMaxDelay
	opts.OnNotice = notifications.PromotionHook(ctx, cmdHandler.RecordPromotion, cfg.AlertsViaJournal())
	scheduler := promotion.New(sess, opts)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := api.NewRouter(api.NewHandlers(cmdHandler, queryHandler, notifications), cfg.Server.AllowedOrigins, log)
	server := api.NewServer(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", cfg.Server.Addr), zap.String("session_id", sess.ID))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	scheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openJournal(ctx context.Context, cfg *config.Config, publisher store.Publisher, log *zap.Logger) (store.EventStoreInterface, func(), error) {
	switch cfg.Journal.Backend {
	case config.JournalPostgres:
		if cfg.Journal.AutoMigrate {
			if err := store.Migrate(ctx, cfg.Journal.DatabaseURL); err != nil {
				return nil, nil, fmt.Errorf("migrate journal: %w", err)
			}
		}
		db, err := store.ConnectPostgres(ctx, cfg.Journal.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Info("journal backend", zap.String("backend", config.JournalPostgres))
		return store.NewPostgresEventStore(db, publisher), func() { _ = db.Close() }, nil

	case config.JournalDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		log.Info("journal backend", zap.String("backend", config.JournalDynamoDB), zap.String("table", cfg.Journal.DynamoDBTable))
		return store.NewDynamoEventStore(dynamodb.NewFromConfig(awsCfg), cfg.Journal.DynamoDBTable), func() {}, nil

	default:
		log.Info("journal backend", zap.String("backend", config.JournalMemory))
		return store.NewEventStore(publisher), func() {}, nil
	}
}

func openFeed(ctx context.Context, cfg *config.Config) (notification.Feed, func(), error) {
	if cfg.AlertFeed.Backend != config.AlertFeedRedis {
		return notification.NewMemoryFeed(cfg.AlertFeed.Size), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return notification.NewRedisFeed(client, cfg.AlertFeed.Key, cfg.AlertFeed.Size), func() { _ = client.Close() }, nil
}
