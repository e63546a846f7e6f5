// Package mcp exposes the engine as read-only Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rsned/shardfuse-server/internal/shardfuse/engine"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

const serverName = "shardfuse-server"

// Version is reported to clients during initialization.
var Version = "0.1.0"

// Server implements an MCP server over the engine's current snapshot.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
	mcp    *gomcp.Server
}

// NewServer creates a new MCP server with every tool registered.
func NewServer(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	s := &Server{
		engine: eng,
		logger: logger,
		mcp:    gomcp.NewServer(&gomcp.Implementation{Name: serverName, Version: Version}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting", "transport", "stdio")
	return s.Serve(ctx, &gomcp.StdioTransport{})
}

// Serve serves MCP over the given transport.
func (s *Server) Serve(ctx context.Context, t gomcp.Transport) error {
	err := s.mcp.Run(ctx, t)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("serving MCP: %w", err)
	}
	return nil
}

// toolError prefixes domain errors with their code so clients can tell
// kinds apart.
func toolError(tool string, err error) error {
	var fe *shardfuse.Error
	if errors.As(err, &fe) {
		return fmt.Errorf("%s: %s: %w", tool, fe.Code, err)
	}
	return fmt.Errorf("%s: %w", tool, err)
}
