// Package app wires the service together: explicit dependency objects
// constructed once at startup, no ambient globals.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/fasihullahsaeed729-wq/study-bot/internal/chat"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/completion"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/config"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/httpapi"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/memory"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/observability"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Chat    *chat.Service
	Store   memory.Store
	Metrics *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("memory store init failed: %w", err)
	}
	if cfg.DatabaseURL == "" {
		log.Printf("memory store: in-memory (DATABASE_URL not set)")
	} else {
		log.Printf("memory store: postgres")
	}

	completions, err := completion.New(completion.Config{
		Provider: cfg.CompletionProvider,
		APIKey:   cfg.GroqAPIKey,
		BaseURL:  cfg.GroqBaseURL,
		Model:    cfg.GroqModel,
		Timeout:  cfg.CompletionTimeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("completion client init failed: %w", err)
	}
	log.Printf("completion provider: %s", cfg.CompletionProvider)

	chatService := chat.NewService(store, completions, metrics, cfg.HistoryLimit)
	api := httpapi.New(cfg, chatService, metrics)

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Chat:    chatService,
		Store:   store,
		Metrics: metrics,
		Cleanup: store.Close,
	}, nil
}
