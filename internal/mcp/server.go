// Package mcp exposes the planning board to agents over the Model Context
// Protocol.
//
// The server registers a small tool surface: extract_task_updates runs an
// extractor without side effects, board_status reads the board, chat_send runs
// a full chat turn, and the board-edit tools mirror the HTTP API.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/planboard/internal/chat"
	"github.com/fyrsmithlabs/planboard/internal/extraction"
	"github.com/fyrsmithlabs/planboard/internal/logging"
	"github.com/fyrsmithlabs/planboard/internal/telemetry"
)

// Config configures the MCP server.
type Config struct {
	// Name is the server name reported to clients.
	Name string

	// Version is the server version reported to clients.
	Version string

	Logger    *logging.Logger
	Telemetry *telemetry.Telemetry
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "planboard",
		Version: "0.1.0",
	}
}

// Server wraps an MCP server bound to one chat service.
type Server struct {
	mcp     *mcp.Server
	chat    *chat.Service
	labeled *extraction.LabeledExtractor
	loose   *extraction.LooseExtractor
	metrics *Metrics
	logger  *logging.Logger
}

// NewServer creates an MCP server and registers every tool.
func NewServer(cfg *Config, svc *chat.Service, lib extraction.LibrarySource) (*Server, error) {
	if svc == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Name == "" {
		cfg.Name = "planboard"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if lib == nil {
		lib = extraction.DefaultLibrary()
	}
	logger := cfg.Logger.Named("mcp")

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		chat:    svc,
		labeled: extraction.NewLabeledExtractor(lib),
		loose:   extraction.NewLooseExtractor(lib),
		metrics: NewMetrics(cfg.Telemetry.Meter(instrumentationName), logger),
		logger:  logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// MCPServer returns the underlying server so callers can attach another
// transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}
