package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/V-AS/CoinForLooP/internal/ai"
	"github.com/V-AS/CoinForLooP/internal/config"
	"github.com/V-AS/CoinForLooP/internal/database"
	"github.com/V-AS/CoinForLooP/internal/dispatch"
	"github.com/V-AS/CoinForLooP/internal/inference"
	"github.com/V-AS/CoinForLooP/internal/processor"
	"github.com/V-AS/CoinForLooP/internal/repository"
)

// app holds everything a command needs. db and auditLog stay nil when audit is off.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
	db         *pgxpool.Pool
	auditLog   *repository.InferenceLogRepository
}

func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	chat, err := newChatClient(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	opts := []processor.Option{processor.WithLogger(logger)}
	if cfg.Audit.Enabled {
		db, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("open audit database: %w", err)
		}

		auditLog := repository.NewInferenceLogRepository(db)
		if err := auditLog.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}

		a.db = db
		a.auditLog = auditLog
		opts = append(opts, processor.WithRecorder(auditLog))
	}

	generator := inference.New(chat, inferenceConfig(cfg), inference.WithLogger(logger))
	a.dispatcher = dispatch.New(
		processor.NewGoalPlanningProcessor(generator, opts...),
		processor.NewSummaryProcessor(generator, opts...),
		logger,
	)

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func inferenceConfig(cfg config.Config) inference.Config {
	return inference.Config{
		Provider:        cfg.AI.Provider,
		Model:           cfg.AI.Model,
		SystemPrompt:    cfg.AI.SystemPrompt,
		Temperature:     cfg.AI.Temperature,
		MaxOutputTokens: cfg.AI.MaxOutputTokens,
		Policy: inference.Policy{
			InitialDelay: cfg.Retry.InitialDelay,
			Multiplier:   cfg.Retry.Multiplier,
			MaxAttempts:  cfg.Retry.MaxAttempts,
			MaxDelay:     cfg.Retry.MaxDelay,
			CallTimeout:  cfg.AI.Timeout,
		},
	}
}

func newChatClient(ctx context.Context, cfg config.AIConfig) (ai.Client, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := ai.NewGeminiClient(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return client, nil
	case config.ProviderOpenAI, config.ProviderGroq:
		return ai.NewOpenAIClient(cfg.Provider, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}
