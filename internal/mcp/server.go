// Package mcp exposes seoflow workflows as MCP tools over stdio.
//
// It uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp) and calls
// the orchestrator and result store directly. Error text is scrubbed for
// secrets before it is returned to clients.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/seoflow/internal/logging"
	"github.com/fyrsmithlabs/seoflow/internal/mode"
	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
	"github.com/fyrsmithlabs/seoflow/internal/registry"
	"github.com/fyrsmithlabs/seoflow/internal/secrets"
	"github.com/fyrsmithlabs/seoflow/internal/store"
)

// Runner executes workflows. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Run, error)
	Registry() *registry.Registry
	Decision() mode.Decision
}

// Server is an MCP server backed by a Runner and a result store.
type Server struct {
	mcp      *mcp.Server
	runner   Runner
	results  store.Store
	scrubber secrets.Scrubber
	metrics  *Metrics
	logger   *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "seoflow")
	Name string

	// Version is the server version (default: "dev")
	Version string

	Logger *logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "seoflow",
		Version: "dev",
		Logger:  logging.NewNop(),
	}
}

// NewServer creates an MCP server and registers its tools.
func NewServer(cfg *Config, runner Runner, results store.Store, scrubber secrets.Scrubber) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if results == nil {
		return nil, fmt.Errorf("result store is required")
	}
	if scrubber == nil {
		return nil, fmt.Errorf("scrubber is required")
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    cfg.Name,
				Version: cfg.Version,
			},
			nil,
		),
		runner:   runner,
		results:  results,
		scrubber: scrubber,
		metrics:  NewMetrics(cfg.Logger),
		logger:   cfg.Logger,
	}
	s.registerTools()

	return s, nil
}

// Run serves MCP on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect serves a single session on t. Used for in-process clients.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}
