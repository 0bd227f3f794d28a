package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"semdex/internal/service"
)

const (
	// ServerName is the MCP server name
	ServerName = "semdex"
	// ServerVersion is the current server version
	ServerVersion = "0.1.0"
)

// Server exposes the folder-indexing service as MCP tools over stdio.
type Server struct {
	mcp     *server.MCPServer
	service *service.Service
	log     *zap.Logger
}

// NewServer wraps the service in an MCP tool surface. The service's
// lifecycle (Start/Close) stays with the caller.
func NewServer(svc *service.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		service: svc,
		log:     log,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio and blocks until the transport closes.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(registerFolderTool(), s.handleRegisterFolder)
	s.mcp.AddTool(unregisterFolderTool(), s.handleUnregisterFolder)
	s.mcp.AddTool(scheduleIndexingTool(), s.handleScheduleIndexing)
	s.mcp.AddTool(cancelIndexingTool(), s.handleCancelIndexing)
	s.mcp.AddTool(getProgressTool(), s.handleGetProgress)
	s.mcp.AddTool(listFoldersTool(), s.handleListFolders)
	s.mcp.AddTool(searchFolderTool(), s.handleSearchFolder)
}
