// Package server provides the MCP server that exposes a valuation session.
package server

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/ipredict/pkg/session"
	"github.com/NERVsystems/ipredict/pkg/tools"
	"github.com/NERVsystems/ipredict/pkg/tools/prompts"
	"github.com/NERVsystems/ipredict/pkg/version"
)

// ServerName is the name of the MCP server
const ServerName = "ipredict"

// Server encapsulates the MCP server with the valuation tools.
type Server struct {
	srv    *server.MCPServer
	logger *slog.Logger
}

// NewServer creates an MCP server whose tools drive sess.
func NewServer(sess *session.Session, logger *slog.Logger, opts ...tools.RegistryOption) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing valuation MCP server",
		"name", ServerName,
		"version", version.BuildVersion,
		"session", sess.ID())

	srv := server.NewMCPServer(
		ServerName,
		version.BuildVersion,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)

	registry := tools.NewRegistry(sess, logger.With("component", "tools"), opts...)
	registry.RegisterTools(srv)
	prompts.RegisterValuationPrompts(srv)

	return &Server{srv: srv, logger: logger}, nil
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer { return s.srv }

// Run starts the MCP server using stdin/stdout for communication.
func (s *Server) Run() error {
	s.logger.Info("serving MCP over stdio")
	return server.ServeStdio(s.srv)
}
