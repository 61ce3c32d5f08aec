package mcp

import (
	"context"

	"jira-charts/internal/job"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Options configures the MCP server.
type Options struct {
	Version         string
	JiraURL         string
	DefaultFilterID string
}

// Server exposes the analysis pipeline as MCP tools.
type Server struct {
	pipeline *job.Pipeline
	opts     Options
	mcp      *mcp.Server
}

// NewServer creates a new MCP server with every tool registered.
func NewServer(pipeline *job.Pipeline, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{pipeline: pipeline, opts: opts}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "jira-charts", Version: opts.Version}, nil)
	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log.Info().Msg("MCP server starting stdio loop")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t. Used for in-process clients.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}
