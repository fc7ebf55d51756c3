package indexcmder

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/cmd/folio/setup"
	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/health"
	"github.com/foliodocs/folio/pkg/logger"
)

var (
	healthyDot = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("●")
	partialDot = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("●")
	emptyDot   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("●")
	errorDot   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("●")
)

const statusLongDesc string = `Show index health and provider reachability.

Inspects the vector index (dimension, chunk and document counts, per-source
breakdown), probes the configured provider with a test embedding, and checks
that the index and provider dimensions line up.

Examples:
  folio index status`

const statusShortDesc string = "Show index health"

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			debug, _ := cmd.Flags().GetBool("debug")
			return runStatus(cmd.Context(), configDir, debug)
		},
	}

	return cmd
}

func runStatus(ctx context.Context, configDir string, debug bool) error {
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

	// A provider that cannot be built (missing API key, bad backend) still
	// yields a report; the checker treats nil as unconfigured.
	provider, err := setup.Provider(cfg, configDir)
	if err != nil {
		provider = nil
	}

	checker, err := health.NewChecker(&health.Config{
		Store:    store,
		Provider: provider,
		Logger:   zlog,
	})
	if err != nil {
		return err
	}

	printReport(checker.Check(ctx))
	return nil
}

func printReport(report *health.Report) {
	fmt.Printf("\n  %s %s\n\n", statusDot(report.Status), cliui.HeaderStyle.Render("Index "+string(report.Status)))

	if report.Index.Error != "" {
		fmt.Printf("  %s %s\n", cliui.FailMark, cliui.WarnStyle.Render(report.Index.Error))
	} else {
		fmt.Printf("  %s  %s %s\n",
			cliui.KeyStyle.Render("Index:"),
			cliui.NameStyle.Render(fmt.Sprintf("%d chunks, %d documents", report.Index.Chunks, report.Index.Documents)),
			cliui.DimStyle.Render(dimensionLabel(report.Index.Dimension)),
		)
		for _, src := range report.Index.Sources {
			fmt.Printf("    %s %s %s\n",
				cliui.DimStyle.Render("•"),
				cliui.NameStyle.Render(src.Source),
				cliui.DimStyle.Render(fmt.Sprintf("%d chunks", src.Chunks)),
			)
		}
	}

	fmt.Println()
	printProvider(report.Provider)

	if !report.DimensionsCompatible {
		fmt.Printf("\n  %s Index and provider dimensions differ.\n", cliui.FailMark)
	}

	if len(report.Recommendations) > 0 {
		fmt.Println()
		for _, rec := range report.Recommendations {
			fmt.Printf("  %s %s\n", cliui.WarnStyle.Render("!"), rec)
		}
	}

	fmt.Println()
}

func printProvider(provider health.ProviderReport) {
	if !provider.Configured {
		fmt.Printf("  %s %s\n",
			cliui.KeyStyle.Render("Provider:"),
			cliui.DimStyle.Render("not configured"),
		)
		return
	}

	mark := cliui.SuccessMark
	verdict := "reachable"
	if !provider.Reachable {
		mark = cliui.FailMark
		verdict = "unreachable"
	}

	fmt.Printf("  %s %s %s %s\n",
		cliui.KeyStyle.Render("Provider:"),
		cliui.NameStyle.Render(provider.Name),
		mark,
		cliui.DimStyle.Render(verdict+", "+dimensionLabel(provider.Dimension)),
	)

	if provider.Error != "" {
		fmt.Printf("    %s\n", cliui.WarnStyle.Render(provider.Error))
	}
}

func dimensionLabel(dim int) string {
	if dim == 0 {
		return "dimension unfixed"
	}
	return fmt.Sprintf("dimension %d", dim)
}

func statusDot(status health.Status) string {
	switch status {
	case health.StatusHealthy:
		return healthyDot
	case health.StatusPartial:
		return partialDot
	case health.StatusEmpty:
		return emptyDot
	default:
		return errorDot
	}
}
