// Package mcp provides an MCP (Model Context Protocol) server exposing
// threadwatch state to agent tooling. The surface is read-only: tools
// report tracked threads, briefings, due decisions, and engaged
// participants, but mutation stays with the CLI verbs and the engine.
package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/threadwatch/internal/config"
	"github.com/nvandessel/threadwatch/internal/logging"
	"github.com/nvandessel/threadwatch/internal/scheduler"
	"github.com/nvandessel/threadwatch/internal/store"
)

// Server wraps the MCP SDK server around the thread store.
type Server struct {
	server *sdk.Server
	store  store.ThreadStore
	app    *config.Config
	policy scheduler.Policy
	logger *slog.Logger
}

// Config holds server construction parameters.
type Config struct {
	Name     string // server name (e.g. "threadwatch")
	Version  string // server version
	StateDir string // directory holding threadwatch.db
	App      *config.Config
	Logger   *slog.Logger
}

// NewServer creates an MCP server over the SQLite state in
// cfg.StateDir.
func NewServer(cfg *Config) (*Server, error) {
	app := cfg.App
	if app == nil {
		app = config.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger(app.Logging.Level, io.Discard)
	}

	threadStore, err := store.NewSQLiteThreadStore(cfg.StateDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open thread store: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	s := &Server{
		server: mcpServer,
		store:  threadStore,
		app:    app,
		policy: scheduler.NewPolicy(app.Scheduler.BackoffIntervalsMin, app.Scheduler.SilenceHours),
		logger: logger,
	}

	if err := s.registerTools(); err != nil {
		threadStore.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := s.registerResources(); err != nil {
		threadStore.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport. It blocks until the
// client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.store.Close()
	return err
}

// Close releases the server's resources.
func (s *Server) Close() error {
	return s.store.Close()
}
