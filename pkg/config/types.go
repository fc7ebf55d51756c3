package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent folio configuration stored as config.toml
// in the .folio/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Provider ProviderConfig `toml:"provider"`
	Chunker  ChunkerConfig  `toml:"chunker"`
	Vector   VectorConfig   `toml:"vector"`
	Ingest   IngestConfig   `toml:"ingest"`
	Agent    AgentConfig    `toml:"agent"`
	Memory   MemoryConfig   `toml:"memory"`
	Events   EventsConfig   `toml:"events"`
	API      APIConfig      `toml:"api"`
	Client   ClientConfig   `toml:"client"`
}

// ProviderConfig selects and configures the active language-model backend.
// Exactly one backend is active per process; switching backends invalidates
// the existing index (the embedding dimension changes) and requires an
// explicit "folio index reset".
type ProviderConfig struct {
	Backend        string `toml:"backend,omitempty"`         // "openai" | "ollama"
	Model          string `toml:"model,omitempty"`           // completion model
	EmbeddingModel string `toml:"embedding_model,omitempty"` // embedding model
	Dimensions     uint   `toml:"dimensions,omitempty"`
	OpenAIBaseURL  string `toml:"openai_base_url,omitempty"`
	OllamaBaseURL  string `toml:"ollama_base_url,omitempty"`
	APIKey         string `toml:"api_key,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`
}

// ChunkerConfig holds contextual chunker settings.
type ChunkerConfig struct {
	TokenBudget          int     `toml:"token_budget,omitempty"`
	Overlap              int     `toml:"overlap,omitempty"`
	Concurrency          int     `toml:"concurrency,omitempty"`
	DocumentTokenCeiling int     `toml:"document_token_ceiling,omitempty"`
	ContextTemperature   float64 `toml:"context_temperature,omitempty"`
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	Provider    string `toml:"provider,omitempty"` // "sqlitevec" | "pgvector" | "qdrant" | "chroma"
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresURL string `toml:"postgres_url,omitempty"`
	QdrantAddr  string `toml:"qdrant_addr,omitempty"`
	ChromaURL   string `toml:"chroma_url,omitempty"`
	Collection  string `toml:"collection,omitempty"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	Workers int `toml:"workers,omitempty"`
}

// AgentConfig holds orchestrator settings.
type AgentConfig struct {
	TopK        int     `toml:"top_k,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
}

// MemoryConfig holds conversation memory settings.
type MemoryConfig struct {
	Enabled     bool `toml:"enabled"`
	MaxSessions int  `toml:"max_sessions,omitempty"`
	MaxMessages int  `toml:"max_messages,omitempty"`
}

// EventsConfig holds ingestion event stream settings. An empty broker list
// selects the nop publisher.
type EventsConfig struct {
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// folio server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"provider.backend": {
		get: func(c *Config) string { return c.Provider.Backend },
		set: func(c *Config, v string) error { c.Provider.Backend = v; return nil },
	},
	"provider.model": {
		get: func(c *Config) string { return c.Provider.Model },
		set: func(c *Config, v string) error { c.Provider.Model = v; return nil },
	},
	"provider.embedding_model": {
		get: func(c *Config) string { return c.Provider.EmbeddingModel },
		set: func(c *Config, v string) error { c.Provider.EmbeddingModel = v; return nil },
	},
	"provider.dimensions": {
		get: func(c *Config) string {
			if c.Provider.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Provider.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for provider.dimensions: %w", err)
			}
			c.Provider.Dimensions = uint(n)
			return nil
		},
	},
	"provider.openai_base_url": {
		get: func(c *Config) string { return c.Provider.OpenAIBaseURL },
		set: func(c *Config, v string) error { c.Provider.OpenAIBaseURL = v; return nil },
	},
	"provider.ollama_base_url": {
		get: func(c *Config) string { return c.Provider.OllamaBaseURL },
		set: func(c *Config, v string) error { c.Provider.OllamaBaseURL = v; return nil },
	},
	"provider.api_key": {
		get: func(c *Config) string { return c.Provider.APIKey },
		set: func(c *Config, v string) error { c.Provider.APIKey = v; return nil },
	},
	"provider.timeout_seconds": {
		get: func(c *Config) string { return formatInt(c.Provider.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			return setInt(&c.Provider.TimeoutSeconds, "provider.timeout_seconds", v)
		},
	},
	"chunker.token_budget": {
		get: func(c *Config) string { return formatInt(c.Chunker.TokenBudget) },
		set: func(c *Config, v string) error {
			return setInt(&c.Chunker.TokenBudget, "chunker.token_budget", v)
		},
	},
	"chunker.overlap": {
		get: func(c *Config) string { return strconv.Itoa(c.Chunker.Overlap) },
		set: func(c *Config, v string) error {
			return setInt(&c.Chunker.Overlap, "chunker.overlap", v)
		},
	},
	"chunker.concurrency": {
		get: func(c *Config) string { return formatInt(c.Chunker.Concurrency) },
		set: func(c *Config, v string) error {
			return setInt(&c.Chunker.Concurrency, "chunker.concurrency", v)
		},
	},
	"chunker.document_token_ceiling": {
		get: func(c *Config) string { return formatInt(c.Chunker.DocumentTokenCeiling) },
		set: func(c *Config, v string) error {
			return setInt(&c.Chunker.DocumentTokenCeiling, "chunker.document_token_ceiling", v)
		},
	},
	"chunker.context_temperature": {
		get: func(c *Config) string { return formatFloat(c.Chunker.ContextTemperature) },
		set: func(c *Config, v string) error {
			return setFloat(&c.Chunker.ContextTemperature, "chunker.context_temperature", v)
		},
	},
	"vector.provider": {
		get: func(c *Config) string { return c.Vector.Provider },
		set: func(c *Config, v string) error { c.Vector.Provider = v; return nil },
	},
	"vector.sqlite_path": {
		get: func(c *Config) string { return c.Vector.SQLitePath },
		set: func(c *Config, v string) error { c.Vector.SQLitePath = v; return nil },
	},
	"vector.postgres_url": {
		get: func(c *Config) string { return c.Vector.PostgresURL },
		set: func(c *Config, v string) error { c.Vector.PostgresURL = v; return nil },
	},
	"vector.qdrant_addr": {
		get: func(c *Config) string { return c.Vector.QdrantAddr },
		set: func(c *Config, v string) error { c.Vector.QdrantAddr = v; return nil },
	},
	"vector.chroma_url": {
		get: func(c *Config) string { return c.Vector.ChromaURL },
		set: func(c *Config, v string) error { c.Vector.ChromaURL = v; return nil },
	},
	"vector.collection": {
		get: func(c *Config) string { return c.Vector.Collection },
		set: func(c *Config, v string) error { c.Vector.Collection = v; return nil },
	},
	"ingest.workers": {
		get: func(c *Config) string { return formatInt(c.Ingest.Workers) },
		set: func(c *Config, v string) error {
			return setInt(&c.Ingest.Workers, "ingest.workers", v)
		},
	},
	"agent.top_k": {
		get: func(c *Config) string { return formatInt(c.Agent.TopK) },
		set: func(c *Config, v string) error {
			return setInt(&c.Agent.TopK, "agent.top_k", v)
		},
	},
	"agent.temperature": {
		get: func(c *Config) string { return formatFloat(c.Agent.Temperature) },
		set: func(c *Config, v string) error {
			return setFloat(&c.Agent.Temperature, "agent.temperature", v)
		},
	},
	"memory.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Memory.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for memory.enabled: %w", err)
			}
			c.Memory.Enabled = b
			return nil
		},
	},
	"memory.max_sessions": {
		get: func(c *Config) string { return formatInt(c.Memory.MaxSessions) },
		set: func(c *Config, v string) error {
			return setInt(&c.Memory.MaxSessions, "memory.max_sessions", v)
		},
	},
	"memory.max_messages": {
		get: func(c *Config) string { return formatInt(c.Memory.MaxMessages) },
		set: func(c *Config, v string) error {
			return setInt(&c.Memory.MaxMessages, "memory.max_messages", v)
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = splitBrokers(v)
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func setInt(target *int, key, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = n
	return nil
}

func setFloat(target *float64, key, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = f
	return nil
}

// splitBrokers parses a comma-separated broker list, trimming whitespace and
// dropping empty entries.
func splitBrokers(v string) []string {
	parts := strings.Split(v, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
