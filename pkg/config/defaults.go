package config

const (
	defaultBackend        = "ollama"
	defaultModel          = "mistral"
	defaultEmbeddingModel = "nomic-embed-text"
	defaultDimensions     = 768
	defaultOpenAIBaseURL  = "https://api.openai.com"
	defaultOllamaBaseURL  = "http://localhost:11434"
	defaultTimeoutSeconds = 120

	defaultTokenBudget          = 400
	defaultChunkerConcurrency   = 4
	defaultDocumentTokenCeiling = 8000
	defaultContextTemperature   = 0.2

	defaultVectorProvider = "sqlitevec"
	defaultQdrantAddr     = "localhost:6334"
	defaultCollection     = "folio_chunks"

	defaultIngestWorkers = 3

	defaultTopK             = 5
	defaultAgentTemperature = 0.5

	defaultMaxSessions = 100
	defaultMaxMessages = 50

	defaultEventsTopic = "folio.ingestion"

	defaultAPIListen       = ":8080"
	defaultClientAPITarget = "http://localhost:8080"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Provider: ProviderConfig{
			Backend:        defaultBackend,
			Model:          defaultModel,
			EmbeddingModel: defaultEmbeddingModel,
			Dimensions:     defaultDimensions,
			OpenAIBaseURL:  defaultOpenAIBaseURL,
			OllamaBaseURL:  defaultOllamaBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Chunker: ChunkerConfig{
			TokenBudget:          defaultTokenBudget,
			Overlap:              0,
			Concurrency:          defaultChunkerConcurrency,
			DocumentTokenCeiling: defaultDocumentTokenCeiling,
			ContextTemperature:   defaultContextTemperature,
		},
		Vector: VectorConfig{
			Provider:   defaultVectorProvider,
			QdrantAddr: defaultQdrantAddr,
			Collection: defaultCollection,
		},
		Ingest: IngestConfig{
			Workers: defaultIngestWorkers,
		},
		Agent: AgentConfig{
			TopK:        defaultTopK,
			Temperature: defaultAgentTemperature,
		},
		Memory: MemoryConfig{
			Enabled:     true,
			MaxSessions: defaultMaxSessions,
			MaxMessages: defaultMaxMessages,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
