// Package mcp exposes the tracker to AI assistants over the Model Context
// Protocol.
package mcp

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sadopc/daytracker/internal/entry"
	"github.com/sadopc/daytracker/internal/store"
)

// Server wraps the MCP server with store access.
type Server struct {
	mcpServer *mcp.Server
	store     *store.Store
	entries   *entry.Service
	log       *log.Logger
	now       func() time.Time
}

// NewServer creates an MCP server over s.
func NewServer(s *store.Store, logger *log.Logger, version string) *Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "daytracker",
			Version: version,
		},
		nil,
	)

	srv := &Server{
		mcpServer: mcpServer,
		store:     s,
		entries:   entry.NewService(s, logger),
		log:       logger,
		now:       time.Now,
	}

	srv.registerTools()
	srv.registerResources()

	return srv
}

// Serve runs the server over stdio until ctx is done or the client leaves.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) today() time.Time {
	return store.Day(s.now())
}

// parseDate reads an optional YYYY-MM-DD, defaulting to today.
func (s *Server) parseDate(v string) (time.Time, error) {
	if v == "" {
		return s.today(), nil
	}
	return store.ParseDate(v)
}
