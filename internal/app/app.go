// Package app wires the application together: database pool, Gemini
// client, knowledge repository, chat pipeline, conversation service and
// scraper. Both the serve and ingest commands build on it.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitaai/vita/db"
	"github.com/vitaai/vita/internal/chat"
	"github.com/vitaai/vita/internal/config"
	"github.com/vitaai/vita/internal/conversation"
	"github.com/vitaai/vita/internal/googleai"
	"github.com/vitaai/vita/internal/knowledge"
	"github.com/vitaai/vita/internal/log"
	"github.com/vitaai/vita/internal/scrape"
)

// App holds the assembled application components.
type App struct {
	Config *config.Config
	Pool   *pgxpool.Pool

	Knowledge     *knowledge.Repository
	Pipeline      *chat.Pipeline
	Conversations *conversation.Service
	Scraper       *scrape.Scraper

	logger log.Logger
}

// Setup applies migrations, connects to PostgreSQL and constructs every
// service. Callers own the returned App and must Close it.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	app, err := assemble(ctx, cfg, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return app, nil
}

func assemble(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger log.Logger) (*App, error) {
	aiClient, err := googleai.New(ctx, googleai.Config{
		APIKey:          cfg.GeminiAPIKey(),
		GenerationModel: cfg.GenerationModel,
		EmbedderModel:   cfg.EmbedderModel,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating google ai client: %w", err)
	}

	// Conversation titles may use a cheaper model than answers.
	titleClient := aiClient
	if cfg.TitleModel != cfg.GenerationModel {
		titleClient, err = googleai.New(ctx, googleai.Config{
			APIKey:          cfg.GeminiAPIKey(),
			GenerationModel: cfg.TitleModel,
			EmbedderModel:   cfg.EmbedderModel,
			Logger:          logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating title model client: %w", err)
		}
	}

	knowledgeStore, err := knowledge.NewPGStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}
	repo, err := knowledge.NewRepository(knowledgeStore, aiClient, logger)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge repository: %w", err)
	}

	pipeline, err := chat.New(chat.Config{
		Retriever:   repo,
		Generator:   aiClient,
		Logger:      logger,
		Limit:       cfg.RAGLimit,
		Threshold:   cfg.RAGThreshold,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat pipeline: %w", err)
	}

	convStore, err := conversation.NewPGStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating conversation store: %w", err)
	}
	conversations, err := conversation.New(conversation.Config{
		Store:     convStore,
		Answerer:  pipeline,
		Generator: titleClient,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating conversation service: %w", err)
	}

	return &App{
		Config:        cfg,
		Pool:          pool,
		Knowledge:     repo,
		Pipeline:      pipeline,
		Conversations: conversations,
		Scraper:       scrape.New(nil, logger),
		logger:        logger,
	}, nil
}

// Close releases everything Setup acquired.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
		a.logger.Info("database pool closed")
	}
}
