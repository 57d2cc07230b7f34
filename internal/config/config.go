// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.vita/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: generation model, embedder model, temperature, title generation
//   - RAG: retrieval limit and similarity threshold defaults
//   - Storage: PostgreSQL connection (see storage.go)
//   - Server: listen address for the HTTP surface
//
// Error handling uses sentinel errors so callers can match with errors.Is().
// Sensitive values (passwords, API keys) are never logged.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidRAGLimit indicates the retrieval limit is out of range.
	ErrInvalidRAGLimit = errors.New("invalid rag limit")

	// ErrInvalidRAGThreshold indicates the similarity threshold is out of range.
	ErrInvalidRAGThreshold = errors.New("invalid rag threshold")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultGenerationModel is the default Gemini chat model.
	DefaultGenerationModel = "gemma-3-12b-it"

	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default, but supports
	// truncation via OutputDimensionality (Matryoshka Representation
	// Learning). The pgvector schema uses 768 dimensions.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultRAGLimit is the default number of knowledge entries retrieved
	// per question.
	DefaultRAGLimit = 3

	// DefaultRAGThreshold is the default minimum cosine similarity for a
	// knowledge entry to count as relevant.
	DefaultRAGThreshold = 0.6

	// DefaultTemperature is the default sampling temperature for answers.
	DefaultTemperature float32 = 0.5
)

// Config stores application configuration.
type Config struct {
	// AI model configuration
	GenerationModel string  `mapstructure:"generation_model"`
	EmbedderModel   string  `mapstructure:"embedder_model"`
	TitleModel      string  `mapstructure:"title_model"`
	Temperature     float32 `mapstructure:"temperature"`

	// RAG retrieval defaults
	RAGLimit     int     `mapstructure:"rag_limit"`
	RAGThreshold float64 `mapstructure:"rag_threshold"`

	// PostgreSQL configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never log
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// HTTP server
	ListenAddr string `mapstructure:"listen_addr"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// GeminiAPIKey returns the Gemini API key from the environment.
// The key is deliberately not part of the config file.
func (c *Config) GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".vita")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("generation_model", DefaultGenerationModel)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("title_model", DefaultGenerationModel)
	v.SetDefault("temperature", DefaultTemperature)

	// RAG defaults
	v.SetDefault("rag_limit", DefaultRAGLimit)
	v.SetDefault("rag_threshold", DefaultRAGThreshold)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "vita")
	v.SetDefault("postgres_password", "vita_dev_password")
	v.SetDefault("postgres_db_name", "vita")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("listen_addr", ":8080")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variable overrides explicitly.
// GEMINI_API_KEY is read directly from the environment, not via Viper;
// its presence is checked in Validate().
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("generation_model", "VITA_GENERATION_MODEL")
	mustBind("embedder_model", "VITA_EMBEDDER_MODEL")
	mustBind("title_model", "VITA_TITLE_MODEL")
	mustBind("listen_addr", "VITA_LISTEN_ADDR")
	mustBind("log_level", "VITA_LOG_LEVEL")
	mustBind("log_json", "VITA_LOG_JSON")
	mustBind("postgres_password", "VITA_POSTGRES_PASSWORD")
}
