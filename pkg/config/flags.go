package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --top-k
// on both "folio ask" and "folio chat").
type Flag struct {
	// Name is the long flag name (e.g. "workers").
	Name string

	// Shorthand is the one-letter short flag (e.g. "w"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "ingest.workers").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen      = "api-listen"
	FlagAPITarget      = "api-target"
	FlagBackend        = "backend"
	FlagModel          = "model"
	FlagEmbeddingModel = "embedding-model"
	FlagDimensions     = "dimensions"
	FlagVectorProvider = "vector-provider"
	FlagSQLite         = "sqlite"
	FlagPostgres       = "postgres"
	FlagQdrant         = "qdrant"
	FlagChroma         = "chroma"
	FlagCollection     = "collection"
	FlagWorkers        = "workers"
	FlagTopK           = "top-k"
	FlagBrokers        = "brokers"
	FlagTopic          = "topic"
)

// Flags is the canonical flag registry shared by all folio commands.
var Flags = FlagSet{
	FlagAPIListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "address for the HTTP API server to listen on",
	},
	FlagAPITarget: {
		Name:        "api-target",
		ViperKey:    "client.api_target",
		Description: "base URL of a running folio API server",
	},
	FlagBackend: {
		Name:        "backend",
		ViperKey:    "provider.backend",
		Description: "language model backend (openai or ollama)",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "provider.model",
		Description: "completion model name",
	},
	FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "provider.embedding_model",
		Description: "embedding model name",
	},
	FlagDimensions: {
		Name:        "dimensions",
		ViperKey:    "provider.dimensions",
		Description: "embedding vector dimensions",
	},
	FlagVectorProvider: {
		Name:        "vector-provider",
		ViperKey:    "vector.provider",
		Description: "vector index backend (sqlitevec, pgvector, qdrant, or chroma)",
	},
	FlagSQLite: {
		Name:        "sqlite",
		ViperKey:    "vector.sqlite_path",
		Description: "path to the sqlite-vec index file",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "vector.postgres_url",
		Description: "postgres connection URL for the pgvector index",
	},
	FlagQdrant: {
		Name:        "qdrant",
		ViperKey:    "vector.qdrant_addr",
		Description: "qdrant gRPC address (host:port)",
	},
	FlagChroma: {
		Name:        "chroma",
		ViperKey:    "vector.chroma_url",
		Description: "chroma server URL",
	},
	FlagCollection: {
		Name:        "collection",
		ViperKey:    "vector.collection",
		Description: "name of the vector collection or table",
	},
	FlagWorkers: {
		Name:        "workers",
		Shorthand:   "w",
		ViperKey:    "ingest.workers",
		Description: "number of concurrent ingestion workers",
	},
	FlagTopK: {
		Name:        "top-k",
		Shorthand:   "k",
		ViperKey:    "agent.top_k",
		Description: "number of chunks to retrieve per question",
	},
	FlagBrokers: {
		Name:        "brokers",
		ViperKey:    "events.brokers",
		Description: "comma-separated Kafka broker addresses for ingestion events",
	},
	FlagTopic: {
		Name:        "topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for ingestion events",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
