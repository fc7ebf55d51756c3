// Package initcmder provides the init command for initializing a local
// .folio directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
)

const (
	dirName = ".folio"
)

const initLongDesc string = `Initialize a new .folio/ directory in the current working directory.

Creates a local .folio/ directory that takes precedence over the default
~/.folio/ directory for configuration, credentials, the vector index, and
saved chat sessions, then writes a config.toml.

Without --preset the config carries the defaults (local Ollama backend).
--preset accepts a provider preset name or an HTTP(S) URL pointing at a
raw config.toml to fetch, for sharing one config across a team.

This is useful for maintaining a separate folio corpus per project.

Examples:
  folio init
  folio init --preset openai
  folio init --preset ollama
  folio init --preset https://example.com/folio-config.toml`

const initShortDesc string = "Initialize a local .folio/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runInit(preset, configDir)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Provider preset name (openai, ollama) or config.toml URL")

	return cmd
}

func runInit(preset, configDir string) error {
	dir := configDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Printf("Using existing directory: %s\n", dir)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .folio directory: %w", err)
		}
		fmt.Printf("Initialized .folio directory: %s\n", dir)
	}

	cfg, err := resolvePreset(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("  %s Wrote %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render("config.toml"),
		cliui.DimStyle.Render("(backend: "+cfg.Provider.Backend+")"),
	)

	return nil
}

// resolvePreset maps a preset argument to a Config: empty means defaults, a
// known name maps to its provider preset, and an HTTP(S) URL is fetched and
// parsed as raw config.toml.
func resolvePreset(preset string) (*config.Config, error) {
	preset = strings.TrimSpace(preset)

	switch {
	case preset == "":
		return config.NewDefaultConfig(), nil

	case strings.HasPrefix(preset, "http://"), strings.HasPrefix(preset, "https://"):
		return fetchRemoteConfig(preset)

	default:
		return config.PresetConfig(preset)
	}
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
