// Package chatcmder provides the chat command for interactive multi-turn
// question answering over the indexed corpus.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/cmd/folio/setup"
	"github.com/foliodocs/folio/pkg/agent"
	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/logger"
	"github.com/foliodocs/folio/pkg/memory"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant>")
)

type chatCommander struct {
	topK    int
	session string
	debug   bool

	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive chat session over the indexed corpus.

Each question is answered the same way as 'folio ask', with the recent
conversation carried into retrieval so follow-up questions resolve
pronouns and references. Sessions persist in .folio/sessions.json when
conversation memory is enabled; pass --session to resume one.

Examples:
  folio chat
  folio chat --session 6f1f7efa-98bb-4ef0-9a18-fd4e6f73f342
  folio chat --top-k 8`

const chatShortDesc string = "Interactive chat over the indexed corpus"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
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

	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", 5, "Number of chunks to retrieve per question")
	cmd.Flags().StringVarP(&cmder.session, "session", "s", "", "Session ID to resume")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, configDir string) error {
	c.logger = zap.NewNop()
	if c.debug {
		c.logger = logger.NewLogger(true)
	}
	defer func() { _ = c.logger.Sync() }()

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	provider, err := setup.Provider(cfg, configDir)
	if err != nil {
		return err
	}

	store, err := setup.Store(cfg, configDir, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	orch, err := setup.Orchestrator(cfg, provider, store, c.logger)
	if err != nil {
		return err
	}

	driver, err := setup.Sessions(cfg, configDir)
	if err != nil {
		return err
	}
	if driver == nil && c.session != "" {
		return fmt.Errorf("cannot resume session %s: conversation memory is disabled", c.session)
	}
	if driver != nil {
		defer driver.Close()
	}

	// Local history mirror used when memory is disabled.
	var local []memory.Message

	sessionID := c.session
	fmt.Println()
	switch {
	case driver == nil:
		fmt.Printf("  %s New conversation %s\n",
			cliui.DimStyle.Render("●"),
			cliui.DimStyle.Render("(memory disabled, session will not persist)"),
		)
	case sessionID == "":
		sessionID = memory.NewSessionID()
		fmt.Printf("  %s New session %s\n",
			cliui.DimStyle.Render("●"),
			cliui.KeyStyle.Render(sessionID),
		)
		fmt.Printf("  %s\n",
			cliui.DimStyle.Render("Resume later with: folio chat --session "+sessionID),
		)
	default:
		history, err := driver.History(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("loading session %s: %w", sessionID, err)
		}
		fmt.Printf("  %s Resuming session %s %s\n",
			cliui.SuccessMark,
			cliui.KeyStyle.Render(sessionID),
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(history))),
		)
	}

	fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		userMsg := memory.Message{Role: "user", Content: input}

		var history []memory.Message
		if driver != nil {
			if err := driver.Append(ctx, sessionID, userMsg); err != nil {
				fmt.Fprintf(os.Stderr, "  %s recording question: %v\n", cliui.FailMark, err)
				continue
			}

			history, err = driver.History(ctx, sessionID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %s loading history: %v\n", cliui.FailMark, err)
				continue
			}
		} else {
			local = append(local, userMsg)
			history = local
		}

		var answer *agent.Answer
		if err := cliui.Step(os.Stdout, "Thinking", func() error {
			var askErr error
			answer, askErr = orch.Ask(ctx, input, agent.AskOptions{TopK: c.topK, History: history})
			return askErr
		}); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		printTurn(answer)

		assistantMsg := memory.Message{Role: "assistant", Content: answer.Text}
		if driver != nil {
			if err := driver.Append(ctx, sessionID, assistantMsg); err != nil {
				fmt.Fprintf(os.Stderr, "  %s recording answer: %v\n", cliui.FailMark, err)
			}
		} else {
			local = append(local, assistantMsg)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

func printTurn(answer *agent.Answer) {
	fmt.Println(assistantPrompt)

	rendered, err := cliui.RenderMarkdown(answer.Text)
	if err != nil {
		rendered = answer.Text + "\n"
	}
	fmt.Print(rendered)

	if len(answer.Citations) > 0 {
		parts := make([]string, 0, len(answer.Citations))
		for _, cite := range answer.Citations {
			parts = append(parts, fmt.Sprintf("%s (chunk %d)", cite.Source, cite.ChunkOrdinal))
		}
		fmt.Printf("  %s %s\n", cliui.DimStyle.Render("Sources:"), cliui.DimStyle.Render(strings.Join(parts, ", ")))
	}

	fmt.Println()
}
