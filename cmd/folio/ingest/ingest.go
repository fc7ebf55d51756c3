// Package ingestcmder provides the ingest command for indexing corpus files.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/cmd/folio/setup"
	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/corpus"
	"github.com/foliodocs/folio/pkg/ingest"
	"github.com/foliodocs/folio/pkg/logger"
)

const ingestLongDesc string = `Ingest a directory of text files into the vector index.

Walks the directory for .txt and .md files, splits each document into
paragraph-packed chunks, generates chunk contexts and embeddings, and
writes the entries to the configured vector store.

A changed provider or embedding model makes the existing index
incompatible. Ingestion then fails fast before writing anything; run
'folio index reset' or pass --reset to rebuild from scratch.

Examples:
  folio ingest ./docs
  folio ingest ./docs --reset
  folio ingest ./docs --watch
  folio ingest ./docs --workers 8`

const ingestShortDesc string = "Ingest text files into the vector index"

type ingestCommander struct {
	reset   bool
	watch   bool
	workers uint
}

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("workers") && cfg.Ingest.Workers > 0 {
				cmder.workers = uint(cfg.Ingest.Workers)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			debug, _ := cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), args[0], configDir, debug)
		},
	}

	cmd.Flags().BoolVar(&cmder.reset, "reset", false, "Reset the index before ingesting")
	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Watch the directory and re-ingest changed files")
	cmd.Flags().UintVarP(&cmder.workers, "workers", "w", 3, "Number of concurrent document workers")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, root, configDir string, debug bool) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Pipeline internals stay quiet unless --debug; failures surface in
	// the summary table either way.
	zlog := zap.NewNop()
	if debug {
		zlog = logger.NewLogger(true)
	}

	var docs []corpus.Document
	if err := cliui.Step(os.Stdout, fmt.Sprintf("Loading corpus from %s", root), func() error {
		var loadErr error
		docs, loadErr = corpus.LoadDir(root)
		return loadErr
	}); err != nil {
		return err
	}

	if len(docs) == 0 && !c.watch {
		fmt.Printf("\n  %s No .txt or .md files found in %s\n\n", cliui.DimStyle.Render("●"), root)
		return nil
	}

	provider, err := setup.Provider(cfg, configDir)
	if err != nil {
		return err
	}

	store, err := setup.Store(cfg, configDir, zlog)
	if err != nil {
		return err
	}
	defer store.Close()

	if c.reset {
		if err := cliui.Step(os.Stdout, "Resetting index", func() error {
			return store.Reset(ctx)
		}); err != nil {
			return err
		}
	}

	chk, err := setup.Chunker(cfg, provider, zlog)
	if err != nil {
		return err
	}

	pub, err := setup.Publisher(cfg, zlog)
	if err != nil {
		return err
	}
	defer pub.Close()

	pipeline, err := ingest.NewPipeline(&ingest.Config{
		Provider:   provider,
		Store:      store,
		Chunker:    chk,
		Publisher:  pub,
		NumWorkers: c.workers,
		Logger:     zlog,
	})
	if err != nil {
		return err
	}

	if len(docs) > 0 {
		summary, err := runBatch(ctx, pipeline, docs)
		if err != nil {
			return err
		}

		printSummary(summary)

		if summary.Failed > 0 && !c.watch {
			return fmt.Errorf("%d of %d documents failed", summary.Failed, summary.Documents)
		}
	}

	if c.watch {
		return c.runWatch(ctx, root, pipeline)
	}

	return nil
}

func runBatch(ctx context.Context, pipeline *ingest.Pipeline, docs []corpus.Document) (*ingest.Summary, error) {
	label := fmt.Sprintf("Indexing %d documents", len(docs))
	if len(docs) == 1 {
		label = fmt.Sprintf("Indexing %s", docs[0].Source)
	}

	var summary *ingest.Summary
	err := cliui.Step(os.Stdout, label, func() error {
		var runErr error
		summary, runErr = pipeline.Run(ctx, docs)
		return runErr
	})
	if err != nil {
		if errors.Is(err, ingest.ErrReindexRequired) {
			printReindexGuidance()
		}
		return nil, err
	}

	return summary, nil
}

func printReindexGuidance() {
	fmt.Printf("\n  %s The existing index does not match the configured provider.\n",
		cliui.WarnStyle.Render("!"))
	fmt.Printf("  %s Run %s or re-run with %s to rebuild it.\n\n",
		cliui.WarnStyle.Render(" "),
		cliui.KeyStyle.Render("folio index reset"),
		cliui.KeyStyle.Render("--reset"),
	)
}

func printSummary(s *ingest.Summary) {
	fmt.Printf("\n  %s %s\n\n",
		cliui.HeaderStyle.Render("Ingestion summary"),
		cliui.DimStyle.Render(fmt.Sprintf("(batch %s)", s.BatchID)),
	)

	maxLen := 0
	for i := range s.Results {
		if len(s.Results[i].Source) > maxLen {
			maxLen = len(s.Results[i].Source)
		}
	}

	for i := range s.Results {
		printResultLine(s.Results[i], maxLen)
	}

	mark := cliui.SuccessMark
	if s.Failed > 0 {
		mark = cliui.FailMark
	}

	fmt.Printf("\n  %s Indexed %s documents %s %s\n\n",
		mark,
		cliui.NameStyle.Render(fmt.Sprintf("%d/%d", s.Indexed, s.Documents)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d chunks)", s.Chunks)),
		cliui.DimStyle.Render("in "+cliui.FormatDuration(s.Elapsed)),
	)
}

func printResultLine(r ingest.DocumentResult, width int) {
	switch r.Status {
	case ingest.StatusIndexed:
		fmt.Printf("  %s %-*s  %s\n",
			cliui.SuccessMark, width, r.Source,
			cliui.DimStyle.Render(fmt.Sprintf("%d chunks", r.Chunks)),
		)
	case ingest.StatusFailed:
		fmt.Printf("  %s %-*s  %s\n",
			cliui.FailMark, width, r.Source,
			cliui.WarnStyle.Render(fmt.Sprintf("%s: %s", r.Stage, r.Kind)),
		)
	default:
		fmt.Printf("  %s %-*s  %s\n",
			cliui.DimStyle.Render("●"), width, r.Source,
			cliui.DimStyle.Render("skipped"),
		)
	}
}
