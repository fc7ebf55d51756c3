// Package browsecmder provides the browse command: a TUI over the indexed
// corpus sources and their chunks.
package browsecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/cmd/folio/setup"
	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/logger"
)

const browseLongDesc string = `Browse the indexed corpus interactively.

Shows every indexed document with its chunk count; drilling into a
document lists its chunks with their generated contexts and text. The
browser is read-only; nothing it does modifies the index.

Examples:
  folio browse
  folio browse --source guides/setup.md`

const browseShortDesc string = "Browse indexed documents and chunks"

type browseCommander struct {
	source string
	debug  bool
}

func NewBrowseCmd() *cobra.Command {
	cmder := &browseCommander{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: browseShortDesc,
		Long:  browseLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context(), configDir)
		},
	}

	cmd.Flags().StringVarP(&cmder.source, "source", "s", "", "Open a specific source's chunks directly")

	return cmd
}

func (c *browseCommander) run(ctx context.Context, configDir string) error {
	zlog := zap.NewNop()
	if c.debug {
		zlog = logger.NewLogger(true)
	}
	defer func() { _ = zlog.Sync() }()

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := setup.Store(cfg, configDir, zlog)
	if err != nil {
		return err
	}
	defer store.Close()

	sources, err := store.Sources(ctx)
	if err != nil {
		return fmt.Errorf("reading index sources: %w", err)
	}

	if len(sources) == 0 {
		fmt.Printf("\n  %s The index is empty. Run %s first.\n\n",
			cliui.DimStyle.Render("●"),
			cliui.KeyStyle.Render("folio ingest <dir>"),
		)
		return nil
	}

	chunks, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting chunks: %w", err)
	}

	dimension, err := store.Dimension(ctx)
	if err != nil {
		return fmt.Errorf("reading index dimension: %w", err)
	}

	return runBrowseTUI(ctx, store, browseIndex{
		Sources:   sources,
		Chunks:    chunks,
		Dimension: dimension,
	}, c.source)
}
