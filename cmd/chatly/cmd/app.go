package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/Yassen717/Chatly/internal/ai"
	"github.com/Yassen717/Chatly/internal/auth"
	"github.com/Yassen717/Chatly/internal/chat"
	"github.com/Yassen717/Chatly/internal/config"
	"github.com/Yassen717/Chatly/internal/storage"
)

// appContext bundles the wired application services for a command's
// lifetime.
type appContext struct {
	cfg          *config.Config
	store        *chat.Store
	orchestrator *ai.Orchestrator
	auth         *auth.Service
	blobs        storage.BlobStore
	persister    *storage.Persister
	logger       *log.Logger
}

// buildApp loads configuration, opens persistence, restores state, and
// wires the orchestrator.
func buildApp(debug bool) (*appContext, error) {
	cfg, err := config.Load(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	blobs, err := storage.NewLibSQLStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	store := chat.NewStore()
	authSvc := auth.NewService(auth.NewLocalProvider(), logger)

	persister := storage.NewPersister(blobs, store, authSvc, logger)
	if err := persister.Load(context.Background()); err != nil {
		logger.Warn("failed to restore persisted state", "error", err)
	}
	persister.Start()

	provider, err := ai.NewProvider(cfg)
	if err != nil {
		blobs.Close()
		return nil, err
	}
	logger.Info("AI provider ready", "model", provider.Model())

	systemPrompt := cfg.Chat.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}
	orchestrator := ai.NewOrchestrator(store, provider, ai.OrchestratorOptions{
		SystemPrompt: systemPrompt,
		ModelConfig: chat.ModelConfig{
			Temperature: cfg.AI.Temperature,
			TopK:        cfg.AI.TopK,
			TopP:        cfg.AI.TopP,
			MaxTokens:   cfg.AI.MaxTokens,
		},
		ContextLimit: cfg.Chat.ContextLimit,
		Streaming:    cfg.AI.Streaming,
		Logger:       logger,
	})

	return &appContext{
		cfg:          cfg,
		store:        store,
		orchestrator: orchestrator,
		auth:         authSvc,
		blobs:        blobs,
		persister:    persister,
		logger:       logger,
	}, nil
}

// shutdown flushes state and releases resources.
func (a *appContext) shutdown() {
	a.persister.Stop()
	a.persister.Flush()
	if err := a.blobs.Close(); err != nil {
		a.logger.Warn("failed to close blob store", "error", err)
	}
}
