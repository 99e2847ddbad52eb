package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/nsqio/go-nsq"

	"github.com/jungyuya/new-blog-sub000/internal/adapter/gemini"
	"github.com/jungyuya/new-blog-sub000/internal/app"
	"github.com/jungyuya/new-blog-sub000/internal/config"
	"github.com/jungyuya/new-blog-sub000/internal/logger"
	"github.com/jungyuya/new-blog-sub000/internal/settings"
)

func main() {
	rebuild := flag.Bool("rebuild", false, "drop the vector index, re-index every eligible post, then exit")
	flag.Parse()

	// Structured logger with correlation IDs pulled from context.
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	// Settings are read per request so admin changes to the quota and model
	// names apply without a restart.
	settingsService := settings.NewService(settings.NewPostgresRepo(deps.DB))

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, app.ModelResolver(settingsService, cfg))
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer geminiClient.Close()

	application := app.New(cfg, deps.DB, deps.VectorStore, deps.Redis, settingsService, geminiClient, deps.NSQProducer)

	if *rebuild {
		slog.Info("starting full index rebuild")
		if err := application.Indexer.Rebuild(ctx); err != nil {
			slog.Error("index rebuild failed", "error", err)
			os.Exit(1)
		}
		slog.Info("index rebuild complete")
		return
	}

	// Change-feed consumer
	if cfg.EnableChangeConsumer {
		consumer, err := nsq.NewConsumer(config.TopicBlogChangeFeed, config.ChannelIndexer, nsq.NewConfig())
		if err != nil {
			slog.Error("failed to create NSQ consumer", "error", err)
			os.Exit(1)
		}
		consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
			return application.ChangeConsumer.HandleMessage(m)
		}))
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
			os.Exit(1)
		}
		slog.Info("change-feed consumer connected",
			"topic", config.TopicBlogChangeFeed, "channel", config.ChannelIndexer)
	}

	if !cfg.EnableAPI {
		slog.Info("api disabled, running consumer only")
		select {}
	}

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	slog.Info("server starting", "addr", addr)
	if err := http.ListenAndServe(addr, application.Handler); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
