package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file
stored in the .folio/ directory. Keys use dotted notation matching
the TOML section structure.

Valid keys:
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

Examples:
  folio config set provider.backend openai
  folio config set provider.model gpt-4o-mini
  folio config set agent.top_k 8`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(args[0], args[1], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runSet(key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if target != "" {
		fmt.Printf("\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}

	err = cfger.SetConfigValue(key, value)
	if err != nil {
		return err
	}

	fmt.Printf("  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
	)
	return nil
}
