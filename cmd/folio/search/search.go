// Package searchcmder provides the search command for raw retrieval over the
// running folio server.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apisearch "github.com/foliodocs/folio/api/search"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/logger"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	contextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	query string
	topK  int

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const searchLongDesc string = `Search indexed chunks via the folio API.

Runs raw retrieval against a running folio server: the query is embedded
and the top-scoring chunks are returned with their score, source, and
situating context. No answer is synthesized; use 'folio ask' for that.

Example:
  folio search "chunker token budget"
  folio search "kafka publisher" --top 10
  folio search "session pruning" --api-target http://localhost:8081`

const searchShortDesc string = "Search indexed chunks"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
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

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Folio API server URL")

	return cmd
}

func (c *searchCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	output, err := SearchAPI(c.apiTarget, c.query, c.topK)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Search results for:"),
		sourceStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		printResult(i+1, result)
	}

	return nil
}

func printResult(rank int, result apisearch.Result) {
	fmt.Printf("  %s  %s  %s %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		sourceStyle.Render(result.Source),
		dimStyle.Render(fmt.Sprintf("(chunk %d, %s)", result.Ordinal, shortID(result.Document))),
	)

	if result.Context != "" {
		fmt.Printf("  %s\n", contextStyle.Render(oneLine(result.Context, 100)))
	}

	fmt.Printf("  %s\n\n", textStyle.Render(oneLine(result.Text, 160)))
}

// oneLine flattens newlines and truncates to max bytes for terminal display.
func oneLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// SearchAPI calls the folio search API and returns the parsed output.
func SearchAPI(apiTarget, query string, topK int) (*apisearch.Output, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/search"
	q := searchURL.Query()
	q.Set("query", query)
	q.Set("top_k", strconv.Itoa(topK))
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to folio API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output apisearch.Output
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}
