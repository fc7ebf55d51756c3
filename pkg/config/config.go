package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/foliodocs/folio/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the list of all supported configuration key names.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}

	// Return in a stable, logical order matching the TOML section layout.
	ordered := []string{
		"provider.backend",
		"provider.model",
		"provider.embedding_model",
		"provider.dimensions",
		"provider.openai_base_url",
		"provider.ollama_base_url",
		"provider.api_key",
		"provider.timeout_seconds",
		"chunker.token_budget",
		"chunker.overlap",
		"chunker.concurrency",
		"chunker.document_token_ceiling",
		"chunker.context_temperature",
		"vector.provider",
		"vector.sqlite_path",
		"vector.postgres_url",
		"vector.qdrant_addr",
		"vector.chroma_url",
		"vector.collection",
		"ingest.workers",
		"agent.top_k",
		"agent.temperature",
		"memory.enabled",
		"memory.max_sessions",
		"memory.max_messages",
		"events.brokers",
		"events.topic",
		"api.listen",
		"client.api_target",
	}

	// Sanity: only return keys that actually exist in the map.
	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	seen := make(map[string]bool, len(result))
	for _, k := range result {
		seen[k] = true
	}
	for _, k := range keys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .folio/
// directory. If the file does not exist, returns NewDefaultConfig() so callers
// always receive a fully-populated Config with sane defaults. Fields
// explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Provider.Backend == "" {
		cfg.Provider.Backend = defaults.Provider.Backend
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = defaults.Provider.Model
	}
	if cfg.Provider.EmbeddingModel == "" {
		cfg.Provider.EmbeddingModel = defaults.Provider.EmbeddingModel
	}
	if cfg.Provider.Dimensions == 0 {
		cfg.Provider.Dimensions = defaults.Provider.Dimensions
	}
	if cfg.Provider.OpenAIBaseURL == "" {
		cfg.Provider.OpenAIBaseURL = defaults.Provider.OpenAIBaseURL
	}
	if cfg.Provider.OllamaBaseURL == "" {
		cfg.Provider.OllamaBaseURL = defaults.Provider.OllamaBaseURL
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = defaults.Provider.TimeoutSeconds
	}

	if cfg.Chunker.TokenBudget == 0 {
		cfg.Chunker.TokenBudget = defaults.Chunker.TokenBudget
	}
	if cfg.Chunker.Concurrency == 0 {
		cfg.Chunker.Concurrency = defaults.Chunker.Concurrency
	}
	if cfg.Chunker.DocumentTokenCeiling == 0 {
		cfg.Chunker.DocumentTokenCeiling = defaults.Chunker.DocumentTokenCeiling
	}
	if cfg.Chunker.ContextTemperature == 0 {
		cfg.Chunker.ContextTemperature = defaults.Chunker.ContextTemperature
	}

	if cfg.Vector.Provider == "" {
		cfg.Vector.Provider = defaults.Vector.Provider
	}
	if cfg.Vector.QdrantAddr == "" {
		cfg.Vector.QdrantAddr = defaults.Vector.QdrantAddr
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = defaults.Vector.Collection
	}

	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = defaults.Ingest.Workers
	}

	if cfg.Agent.TopK == 0 {
		cfg.Agent.TopK = defaults.Agent.TopK
	}
	if cfg.Agent.Temperature == 0 {
		cfg.Agent.Temperature = defaults.Agent.Temperature
	}

	if cfg.Memory.MaxSessions == 0 {
		cfg.Memory.MaxSessions = defaults.Memory.MaxSessions
	}
	if cfg.Memory.MaxMessages == 0 {
		cfg.Memory.MaxMessages = defaults.Memory.MaxMessages
	}

	if cfg.Events.Topic == "" {
		cfg.Events.Topic = defaults.Events.Topic
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Client.APITarget == "" {
		cfg.Client.APITarget = defaults.Client.APITarget
	}
}

// SaveConfig persists the configuration to config.toml in the target .folio/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	switch strings.ToLower(name) {
	case "openai":
		cfg := NewDefaultConfig()
		cfg.Provider = ProviderConfig{
			Backend:        "openai",
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Dimensions:     1536,
			OpenAIBaseURL:  defaultOpenAIBaseURL,
			OllamaBaseURL:  defaultOllamaBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
		}
		return cfg, nil

	case "ollama":
		cfg := NewDefaultConfig()
		cfg.Provider = ProviderConfig{
			Backend:        "ollama",
			Model:          defaultModel,
			EmbeddingModel: defaultEmbeddingModel,
			Dimensions:     defaultDimensions,
			OpenAIBaseURL:  defaultOpenAIBaseURL,
			OllamaBaseURL:  defaultOllamaBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
		}
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, ollama)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
