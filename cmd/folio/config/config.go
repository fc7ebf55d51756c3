// Package configcmder provides the config command for managing persistent
// folio configuration stored in the .folio/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent folio configuration.

Configuration is stored as config.toml in the .folio/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  provider.backend, provider.model, provider.embedding_model,
  provider.dimensions, provider.api_key, provider.openai_base_url,
  provider.ollama_base_url, provider.timeout_seconds,
  chunker.token_budget, chunker.overlap, chunker.concurrency,
  chunker.document_token_ceiling, chunker.context_temperature,
  vector.provider, vector.sqlite_path, vector.postgres_url,
  vector.qdrant_addr, vector.chroma_url, vector.collection,
  ingest.workers, agent.top_k, agent.temperature,
  memory.enabled, memory.max_sessions, memory.max_messages,
  events.brokers, events.topic,
  api.listen, client.api_target

Use subcommands to get, set, or list configuration values:
  folio config set <key> <value>    Set a configuration value
  folio config get <key>            Get a configuration value
  folio config list                 List all configuration values

Examples:
  folio config set provider.backend openai
  folio config set provider.embedding_model nomic-embed-text
  folio config get agent.top_k
  folio config list`

const configShortDesc string = "Manage persistent folio configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
