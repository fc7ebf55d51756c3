package indexcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/cmd/folio/setup"
	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/logger"
)

const resetLongDesc string = `Delete all indexed entries and unfix the index dimension.

The index never resets itself: changing the provider or embedding model
leaves existing entries in place and ingestion refuses to mix dimensions.
This command is the explicit operator step that clears the index so the
next ingest can rebuild it from scratch.

Prompts for confirmation unless --force is given.

Examples:
  folio index reset
  folio index reset --force`

const resetShortDesc string = "Delete all indexed entries"

type resetCommander struct {
	force bool
}

func newResetCmd() *cobra.Command {
	cmder := &resetCommander{}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: resetShortDesc,
		Long:  resetLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			debug, _ := cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), configDir, debug)
		},
	}

	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Skip the confirmation prompt")

	return cmd
}

func (c *resetCommander) run(ctx context.Context, configDir string, debug bool) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	zlog := zap.NewNop()
	if debug {
		zlog = logger.NewLogger(true)
	}

	store, err := setup.Store(cfg, configDir, zlog)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}

	if count == 0 {
		fmt.Printf("\n  %s Index is already empty.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	if !c.force {
		fmt.Printf("\n  %s This deletes all %s indexed chunks. Type %s to confirm: ",
			cliui.WarnStyle.Render("!"),
			cliui.NameStyle.Render(strconv.Itoa(count)),
			cliui.KeyStyle.Render("yes"),
		)

		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "yes" {
			fmt.Printf("\n  %s Reset canceled.\n\n", cliui.DimStyle.Render("●"))
			return nil
		}
		fmt.Println()
	}

	if err := cliui.Step(os.Stdout, "Resetting index", func() error {
		return store.Reset(ctx)
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s Deleted %s chunks. Run %s to rebuild.\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strconv.Itoa(count)),
		cliui.KeyStyle.Render("folio ingest <dir>"),
	)

	return nil
}
