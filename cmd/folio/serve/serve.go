// Package servecmder provides the serve command for running the folio HTTP
// and MCP server.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/api"
	"github.com/foliodocs/folio/api/mcp"
	"github.com/foliodocs/folio/cmd/folio/setup"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/logger"
)

type ServeCommander struct {
	listen  string
	logFile string
	noMCP   bool
	debug   bool

	logger  *zap.Logger
	slogger *slog.Logger
}

const serveLongDesc string = `Run the folio HTTP and MCP server.

Serves search, question answering, session management, and health over
HTTP, plus retrieve/ask tools over MCP at /mcp for agent clients.

The server needs a reachable vector index. A provider that cannot be
built (for example a missing API key) disables search and ask but the
server still starts and reports the problem via /v1/health.

Examples:
  folio serve
  folio serve --listen :9090
  folio serve --log-file folio.log
  folio serve --no-mcp`

const serveShortDesc string = "Run the folio HTTP + MCP server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
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

			if !cmd.Flags().Changed("listen") && cfg.API.Listen != "" {
				cmder.listen = cfg.API.Listen
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

			return cmder.run(configDir)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", defaults.API.Listen, "Address for the server to listen on")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the MCP endpoint")

	return cmd
}

func (c *ServeCommander) run(configDir string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	slogger, closeLog, err := c.newSlogger()
	if err != nil {
		return err
	}
	defer closeLog()
	c.slogger = slogger

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := setup.Store(cfg, configDir, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	apiConfig := api.Config{
		ListenAddr: c.listen,
	}

	// A provider that cannot be built leaves search and ask disabled;
	// /v1/health reports the unconfigured provider either way.
	provider, err := setup.Provider(cfg, configDir)
	if err != nil {
		c.slogger.Warn("provider unavailable, search and ask disabled", "error", err)
	} else {
		apiConfig.Provider = provider

		orch, err := setup.Orchestrator(cfg, provider, store, c.logger)
		if err != nil {
			return err
		}
		apiConfig.Orchestrator = orch
	}

	sessions, err := setup.Sessions(cfg, configDir)
	if err != nil {
		return err
	}
	if sessions != nil {
		defer sessions.Close()
		apiConfig.Sessions = sessions
	}

	if !c.noMCP && apiConfig.Orchestrator != nil {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Provider:     apiConfig.Provider,
			Store:        store,
			Orchestrator: apiConfig.Orchestrator,
			Logger:       c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCP = mcpServer.Handler()
	}

	server, err := api.NewServer(apiConfig, store, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.slogger.Info("folio server starting",
		"listen", c.listen,
		"vector", cfg.Vector.Provider,
		"mcp", apiConfig.MCP != nil,
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.slogger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// newSlogger builds the serve lifecycle logger: pretty output on stdout,
// fanned out to a JSON log file when --log-file is set.
func (c *ServeCommander) newSlogger() (*slog.Logger, func(), error) {
	pretty := logger.New(
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
	)

	if c.logFile == "" {
		return pretty, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", c.logFile, err)
	}

	jsonLog := logger.New(
		logger.WithJSON(true),
		logger.WithDebug(c.debug),
		logger.WithWriter(f),
	)

	return logger.Multi(pretty, jsonLog), func() { _ = f.Close() }, nil
}
