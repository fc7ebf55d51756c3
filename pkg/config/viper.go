package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/foliodocs/folio/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the FOLIO_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (FOLIO_API_LISTEN, FOLIO_PROVIDER_BACKEND, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: FOLIO_PROVIDER_BACKEND, FOLIO_VECTOR_SQLITE_PATH, etc.
	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Provider
	v.SetDefault("provider.backend", d.Provider.Backend)
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.embedding_model", d.Provider.EmbeddingModel)
	v.SetDefault("provider.dimensions", d.Provider.Dimensions)
	v.SetDefault("provider.openai_base_url", d.Provider.OpenAIBaseURL)
	v.SetDefault("provider.ollama_base_url", d.Provider.OllamaBaseURL)
	v.SetDefault("provider.timeout_seconds", d.Provider.TimeoutSeconds)

	// Chunker
	v.SetDefault("chunker.token_budget", d.Chunker.TokenBudget)
	v.SetDefault("chunker.overlap", d.Chunker.Overlap)
	v.SetDefault("chunker.concurrency", d.Chunker.Concurrency)
	v.SetDefault("chunker.document_token_ceiling", d.Chunker.DocumentTokenCeiling)
	v.SetDefault("chunker.context_temperature", d.Chunker.ContextTemperature)

	// Vector store
	v.SetDefault("vector.provider", d.Vector.Provider)
	v.SetDefault("vector.sqlite_path", d.Vector.SQLitePath)
	v.SetDefault("vector.postgres_url", d.Vector.PostgresURL)
	v.SetDefault("vector.qdrant_addr", d.Vector.QdrantAddr)
	v.SetDefault("vector.chroma_url", d.Vector.ChromaURL)
	v.SetDefault("vector.collection", d.Vector.Collection)

	// Ingest
	v.SetDefault("ingest.workers", d.Ingest.Workers)

	// Agent
	v.SetDefault("agent.top_k", d.Agent.TopK)
	v.SetDefault("agent.temperature", d.Agent.Temperature)

	// Memory
	v.SetDefault("memory.enabled", d.Memory.Enabled)
	v.SetDefault("memory.max_sessions", d.Memory.MaxSessions)
	v.SetDefault("memory.max_messages", d.Memory.MaxMessages)

	// Events
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)
}
