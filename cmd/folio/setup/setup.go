// Package setup builds the runtime collaborators folio commands share: the
// language-model provider, the vector store, the chunker, the orchestrator,
// the event publisher, and the conversation memory driver, all resolved from
// the loaded config.
package setup

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/agent"
	"github.com/foliodocs/folio/pkg/chunker"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/credentials"
	"github.com/foliodocs/folio/pkg/dotdir"
	"github.com/foliodocs/folio/pkg/eventstream"
	"github.com/foliodocs/folio/pkg/eventstream/kafka"
	"github.com/foliodocs/folio/pkg/eventstream/nop"
	"github.com/foliodocs/folio/pkg/llm"
	llmutils "github.com/foliodocs/folio/pkg/llm/utils"
	"github.com/foliodocs/folio/pkg/memory"
	"github.com/foliodocs/folio/pkg/memory/local"
	"github.com/foliodocs/folio/pkg/vector"
	vectorutils "github.com/foliodocs/folio/pkg/vector/utils"
)

const (
	// indexFile is the default sqlitevec index filename inside .folio/.
	indexFile = "folio.db"

	// sessionsFile is the conversation memory filename inside .folio/.
	sessionsFile = "sessions.json"
)

// Provider builds the configured llm.Provider. For the openai backend the
// API key is resolved from the config value first, then stored credentials,
// then the OPENAI_API_KEY environment variable.
func Provider(cfg *config.Config, configDir string) (llm.Provider, error) {
	apiKey := cfg.Provider.APIKey
	if apiKey == "" && cfg.Provider.Backend == llmutils.OpenAI {
		mgr, err := credentials.NewManager(configDir)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}

		apiKey, err = mgr.ResolveKey(llmutils.OpenAI)
		if err != nil {
			return nil, err
		}
	}

	return llmutils.NewProvider(&llmutils.NewProviderOpts{
		Backend:        cfg.Provider.Backend,
		Model:          cfg.Provider.Model,
		EmbeddingModel: cfg.Provider.EmbeddingModel,
		Dimension:      int(cfg.Provider.Dimensions),
		OpenAIBaseURL:  cfg.Provider.OpenAIBaseURL,
		OllamaBaseURL:  cfg.Provider.OllamaBaseURL,
		APIKey:         apiKey,
		Timeout:        time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
	})
}

// Store opens the configured vector store. The sqlitevec path defaults to
// folio.db inside the resolved .folio/ directory.
func Store(cfg *config.Config, configDir string, logger *zap.Logger) (vector.Store, error) {
	sqlitePath := cfg.Vector.SQLitePath
	if sqlitePath == "" && cfg.Vector.Provider == vectorutils.SQLiteVec {
		target, err := dotdir.NewManager().Target(configDir)
		if err != nil {
			return nil, err
		}
		sqlitePath = filepath.Join(target, indexFile)
	}

	return vectorutils.NewStore(&vectorutils.NewStoreOpts{
		Provider:    cfg.Vector.Provider,
		SQLitePath:  sqlitePath,
		PostgresURL: cfg.Vector.PostgresURL,
		QdrantAddr:  cfg.Vector.QdrantAddr,
		ChromaURL:   cfg.Vector.ChromaURL,
		Collection:  cfg.Vector.Collection,
		Logger:      logger,
	})
}

// Chunker builds the contextual chunker. A nil provider disables context
// generation; chunks index without situating blurbs.
func Chunker(cfg *config.Config, provider llm.Provider, logger *zap.Logger) (*chunker.Chunker, error) {
	return chunker.New(&chunker.Config{
		TokenBudget:          cfg.Chunker.TokenBudget,
		Overlap:              cfg.Chunker.Overlap,
		Concurrency:          cfg.Chunker.Concurrency,
		DocumentTokenCeiling: cfg.Chunker.DocumentTokenCeiling,
		Temperature:          cfg.Chunker.ContextTemperature,
		Provider:             provider,
		Logger:               logger,
	})
}

// Publisher builds the ingestion event publisher: Kafka when brokers are
// configured, nop otherwise.
func Publisher(cfg *config.Config, logger *zap.Logger) (eventstream.Publisher, error) {
	if len(cfg.Events.Brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	return kafka.NewPublisher(&kafka.Config{
		Brokers: cfg.Events.Brokers,
		Topic:   cfg.Events.Topic,
		Logger:  logger,
	})
}

// Orchestrator builds the retrieve-synthesize agent over the given provider
// and store.
func Orchestrator(cfg *config.Config, provider llm.Provider, store vector.Store, logger *zap.Logger) (*agent.Orchestrator, error) {
	return agent.NewOrchestrator(&agent.Config{
		Provider:    provider,
		Store:       store,
		TopK:        cfg.Agent.TopK,
		Temperature: cfg.Agent.Temperature,
		Logger:      logger,
	})
}

// Sessions opens the conversation memory driver. Returns nil when memory is
// disabled in the config.
func Sessions(cfg *config.Config, configDir string) (memory.Driver, error) {
	if !cfg.Memory.Enabled {
		return nil, nil
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, err
	}

	return local.NewDriver(local.Config{
		Path:        filepath.Join(target, sessionsFile),
		MaxSessions: cfg.Memory.MaxSessions,
		MaxMessages: cfg.Memory.MaxMessages,
	})
}
