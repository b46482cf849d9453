// Package mcpserver exposes repository indexing and search as MCP tools.
//
// The server speaks the Model Context Protocol over stdio and calls
// repository.Service directly. Tool results carry structured content rows.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server is an MCP server over a repository.Service.
type Server struct {
	mcp     *mcp.Server
	service *repository.Service
	metrics *Metrics
	logger  *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the implementation name (default: "repolens").
	Name string
	// Version is the implementation version (default: "0.1.0").
	Version string
	Logger  *logging.Logger
	// Metrics defaults to the global meter.
	Metrics *Metrics
}

// DefaultConfig returns defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "repolens",
		Version: "0.1.0",
		Logger:  logging.NewNop(),
	}
}

// NewServer creates the server and registers its tools.
func NewServer(cfg *Config, svc *repository.Service) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if svc == nil {
		return nil, fmt.Errorf("repository service is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "repolens"
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(cfg.Logger.Underlying())
	}

	s := &Server{
		mcp:     mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		service: svc,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves on the stdio transport until ctx is canceled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves on t.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	s.logger.Info(ctx, "starting MCP server")
	if err := s.mcp.Run(ctx, t); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
