package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"ai-chat/internal/apperr"
	"ai-chat/internal/logger"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// AppConfig holds all application configuration
type AppConfig struct {
	Server    ServerConfig
	Database  DatabaseConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Log       LogConfig
	Agent     *AgentSettings
	Models    *ModelsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port              string
	AllowedOrigins    []string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MigrationsPath  string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// EmbeddingConfig holds the embedding model and the indexer sizing.
type EmbeddingConfig struct {
	Enabled    bool
	Model      string
	Dimensions int
	Workers    int
	QueueSize  int
	Timeout    time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads and validates application configuration from environment. A .env
// file in the working directory is read first when present.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Log.WithError(err).Warn("Failed to load .env file")
	}

	config := &AppConfig{}

	config.Log = LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
	logger.Configure(config.Log.Level, config.Log.Format)

	// Load Server config
	config.Server = ServerConfig{
		Port:              getEnvOrDefault("SERVER_PORT", "8080"),
		AllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ReadHeaderTimeout: getEnvAsDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownTimeout:   getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	// Load Database config
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, &apperr.ConfigurationError{Key: "DATABASE_URL"}
	}
	config.Database = DatabaseConfig{
		URL:             databaseURL,
		MigrationsPath:  os.Getenv("MIGRATIONS_PATH"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
	}

	// Load Models config
	models, err := NewModelsConfig(os.Getenv("MODELS_CONFIG_PATH"))
	if err != nil {
		return nil, &apperr.ConfigurationError{Key: "MODELS_CONFIG_PATH", Reason: err.Error()}
	}
	config.Models = models

	// Load LLM config
	apiKey := getEnvOrDefault("LLM_API_KEY", os.Getenv("OPENROUTER_API_KEY"))
	if apiKey == "" {
		logger.Log.Warn("LLM_API_KEY environment variable not set")
	}
	config.LLM = LLMConfig{
		Provider: getEnvOrDefault("LLM_PROVIDER", "openrouter"),
		APIKey:   apiKey,
		BaseURL:  getEnvOrDefault("LLM_BASE_URL", defaultBaseURL),
		Model:    models.Resolve(os.Getenv("LLM_MODEL")),
	}

	// Load Embedding config
	config.Embedding = EmbeddingConfig{
		Enabled:    getEnvAsBool("EMBEDDING_ENABLED", apiKey != ""),
		Model:      getEnvOrDefault("EMBEDDING_MODEL", "openai/text-embedding-3-small"),
		Dimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 1536),
		Workers:    getEnvAsInt("INDEXER_WORKERS", 2),
		QueueSize:  getEnvAsInt("INDEXER_QUEUE_SIZE", 100),
		Timeout:    getEnvAsDuration("INDEXER_JOB_TIMEOUT", 30*time.Second),
	}
	if config.Embedding.Dimensions <= 0 {
		return nil, &apperr.ConfigurationError{Key: "EMBEDDING_DIMENSIONS", Reason: "must be greater than 0"}
	}

	// Load Agent settings
	agent, err := LoadAgentSettings(os.Getenv("AGENT_CONFIG_PATH"))
	if err != nil {
		return nil, err
	}
	agent.Model = models.Resolve(agent.Model)
	config.Agent = agent

	return config, nil
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid boolean value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
