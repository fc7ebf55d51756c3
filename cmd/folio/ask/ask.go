// Package askcmder provides the ask command for one-shot questions.
package askcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/cmd/folio/setup"
	"github.com/foliodocs/folio/pkg/agent"
	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/logger"
)

const askLongDesc string = `Ask a one-shot question against the indexed corpus.

Embeds the question, retrieves the top-scoring chunks from the vector
index, and synthesizes a grounded answer with citations. An empty index
answers from general knowledge with no citations.

Examples:
  folio ask "How do I configure the chunker?"
  folio ask "What does the ingest pipeline do?" --top-k 8
  folio ask "Where are sessions stored?" --json`

const askShortDesc string = "Ask a one-shot question against the corpus"

type askCommander struct {
	topK    int
	jsonOut bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
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

			if !cmd.Flags().Changed("top-k") && cfg.Agent.TopK > 0 {
				cmder.topK = cfg.Agent.TopK
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			debug, _ := cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), args[0], configDir, debug)
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", 5, "Number of chunks to retrieve")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the answer as JSON")

	return cmd
}

func (c *askCommander) run(ctx context.Context, question, configDir string, debug bool) error {
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

	provider, err := setup.Provider(cfg, configDir)
	if err != nil {
		return err
	}

	store, err := setup.Store(cfg, configDir, zlog)
	if err != nil {
		return err
	}
	defer store.Close()

	orch, err := setup.Orchestrator(cfg, provider, store, zlog)
	if err != nil {
		return err
	}

	opts := agent.AskOptions{TopK: c.topK}

	if c.jsonOut {
		answer, err := orch.Ask(ctx, question, opts)
		if err != nil {
			return err
		}
		return printJSON(question, answer)
	}

	var answer *agent.Answer
	if err := cliui.Step(os.Stdout, "Thinking", func() error {
		var askErr error
		answer, askErr = orch.Ask(ctx, question, opts)
		return askErr
	}); err != nil {
		return err
	}

	printAnswer(answer)
	return nil
}

func printAnswer(answer *agent.Answer) {
	rendered, err := cliui.RenderMarkdown(answer.Text)
	if err != nil {
		rendered = "\n" + answer.Text + "\n\n"
	}
	fmt.Print(rendered)

	if len(answer.Citations) == 0 {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("No sources. Answered from general knowledge."))
		return
	}

	fmt.Printf("  %s\n\n", cliui.HeaderStyle.Render("Sources"))
	for _, cite := range answer.Citations {
		fmt.Printf("  %s %s %s\n",
			cliui.DimStyle.Render("•"),
			cliui.NameStyle.Render(cite.Source),
			cliui.DimStyle.Render(fmt.Sprintf("(chunk %d)", cite.ChunkOrdinal)),
		)
	}
	fmt.Println()
}

type jsonAnswer struct {
	Question  string           `json:"question"`
	Answer    string           `json:"answer"`
	Citations []agent.Citation `json:"citations"`
}

func printJSON(question string, answer *agent.Answer) error {
	out := jsonAnswer{
		Question:  question,
		Answer:    answer.Text,
		Citations: answer.Citations,
	}
	if out.Citations == nil {
		out.Citations = []agent.Citation{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding answer: %w", err)
	}

	fmt.Println(string(data))
	return nil
}
