package app

import (
	"context"

	"ai-chat/internal/config"
	"ai-chat/internal/repository/db"
	"ai-chat/internal/service/agent"
	"ai-chat/internal/service/llm"
	"ai-chat/pkg/validation"
)

// MessageIndexer accepts stored messages for background embedding.
type MessageIndexer interface {
	Enqueue(msg db.Message) bool
}

// Config holds all application dependencies and configuration
type Config struct {
	// Database interface for data persistence
	DB db.Database
	// Centralized application configuration
	AppConfig *config.AppConfig
	// Schema validation for rows crossing the persistence boundary
	Validator *validation.SchemaValidator

	ChatProvider llm.ChatProvider
	// Embedder is nil when embeddings are disabled
	Embedder llm.Embedder
	// Agent is nil when no agent settings are loaded
	Agent agent.Agent
	// Indexer is nil when embeddings are disabled
	Indexer MessageIndexer
}

// NewConfig creates a new application configuration, building the providers described
// by appConfig.
func NewConfig(ctx context.Context, database db.Database, appConfig *config.AppConfig) *Config {
	cfg := &Config{
		DB:           database,
		AppConfig:    appConfig,
		Validator:    validation.NewSchemaValidator(),
		ChatProvider: llm.NewOpenRouterProvider(&appConfig.LLM),
	}

	if appConfig.Embedding.Enabled {
		cfg.Embedder = llm.NewOpenAIEmbedder(&appConfig.LLM, &appConfig.Embedding)
	}
	if appConfig.Agent != nil {
		cfg.Agent = agent.NewOrchestrator(ctx, &appConfig.LLM, appConfig.Agent)
	}

	return cfg
}

// ModelsConfig returns the model catalog.
func (c *Config) ModelsConfig() *config.ModelsConfig {
	return c.AppConfig.Models
}
