package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"news_maker/internal/config"
	"news_maker/internal/events"
	"news_maker/internal/fulltext"
	"news_maker/internal/media"
	"news_maker/internal/queue"
	"news_maker/internal/service"
	"news_maker/internal/source/newsapi"
	"news_maker/internal/storage/postgres"
	"news_maker/internal/translate"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	rabbitMQ, err := queue.NewRabbitMQ(queue.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	contentStore := postgres.NewContentStore(db)
	categoryStore := postgres.NewCategoryStore(db)
	fileStore := postgres.NewFileStore(db)
	translationStore := postgres.NewTranslationStore(db)
	txManager := postgres.NewTransactionManager(db)

	storage, err := newFileStorage(ctx, cfg.Files)
	if err != nil {
		logger.Error("failed to init file storage", "error", err)
		os.Exit(1)
	}
	downloader := media.NewDownloader(storage, fileStore, cfg.Files.Timeout, logger)

	dispatcher := events.NewDispatcher(logger)

	if cfg.Translation.Enabled {
		translator, closeTranslator, err := newTranslator(cfg, logger)
		if err != nil {
			logger.Error("failed to init translator", "error", err)
			os.Exit(1)
		}
		defer closeTranslator()

		listener := service.NewTranslationListener(translationStore, translator, cfg.Translation, logger)
		dispatcher.Subscribe("translation", listener.Handle)
	}

	materializer := service.NewMaterializer(
		contentStore,
		categoryStore,
		txManager,
		downloader,
		newFullTextExtractor(cfg.FullText, logger),
		dispatcher,
		logger,
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting news worker",
		"queue", cfg.RabbitMQ.QueueName,
		"fulltext", cfg.FullText.Enabled,
		"translation", cfg.Translation.Enabled,
	)

	err = rabbitMQ.Consume(ctx, func(ctx context.Context, payload []byte) error {
		item, err := newsapi.DecodeItem(payload)
		if err != nil {
			return err
		}
		return materializer.Process(ctx, item)
	})
	if err != nil && err != context.Canceled {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}

func newFileStorage(ctx context.Context, cfg config.FilesConfig) (media.Storage, error) {
	switch cfg.Driver {
	case config.FilesDriverLocal:
		return media.NewLocalStorage(cfg.PublicDir), nil
	case config.FilesDriverS3:
		return media.NewS3Storage(ctx, media.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown files driver %q", cfg.Driver)
	}
}

// newFullTextExtractor returns nil when extraction is off so the
// materializer falls back to the payload text.
func newFullTextExtractor(cfg config.FullTextConfig, logger *slog.Logger) service.FullTextExtractor {
	if !cfg.Enabled {
		return nil
	}

	var cleaner fulltext.Cleaner
	switch cfg.Mode {
	case config.FullTextModeStrip:
		cleaner = fulltext.NewStripCleaner()
	case config.FullTextModeAI:
		cleaner = fulltext.NewAICleaner(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
	default:
		cleaner = fulltext.NewReadabilityCleaner()
	}

	return fulltext.New(cleaner, cfg.Timeout, logger)
}

func newTranslator(cfg *config.Config, logger *slog.Logger) (service.Translator, func(), error) {
	provider := translate.NewProvider(
		cfg.Translation.Provider.BaseURL,
		cfg.Translation.Provider.APIKey,
		cfg.Translation.Timeout,
	)

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	cached := translate.NewCachedTranslator(provider, client, cfg.Translation.CacheTTL, logger)
	return cached, func() { _ = client.Close() }, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
