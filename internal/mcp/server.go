package mcp

import (
	"context"

	"github.com/adamavenir/hark/internal/app"
	"github.com/adamavenir/hark/internal/logger"
	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Server exposes the mentions feed as MCP tools over stdio.
type Server struct {
	app    *app.App
	server *mcp.Server
	log    *zap.Logger
}

// NewServer opens hark's services and registers the tools. Logs go to the
// configured log file; stdout belongs to the protocol.
func NewServer(configPath, version string) (*Server, error) {
	a, err := app.Open(app.Options{ConfigPath: configPath})
	if err != nil {
		return nil, err
	}
	if err := a.RequireToken(); err != nil {
		_ = a.Close()
		return nil, err
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "hark", Version: version}, nil)
	RegisterTools(server, &ToolContext{
		Fetcher:   a.API,
		Guilds:    a.Guilds,
		Selection: a.Selection,
		WebURL:    a.Config.WebURL,
	})

	return &Server{app: a, server: server, log: logger.Named("mcp")}, nil
}

// Run serves until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server started")
	err := s.server.Run(ctx, &mcp.StdioTransport{})
	if err != nil && ctx.Err() == nil {
		s.log.Error("mcp server stopped", zap.Error(err))
	}
	return err
}

// Close releases hark's services.
func (s *Server) Close() error {
	return s.app.Close()
}
