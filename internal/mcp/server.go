package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/scene-clarify/internal/dialogue"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes scene extraction and grounded
// question answering as tools.
type Server struct {
	svc       *dialogue.Service
	extractor dialogue.SceneExtractor
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server. extractor may be nil, in which case
// extract_scene reports that extraction is not configured.
func NewServer(svc *dialogue.Service, extractor dialogue.SceneExtractor) *Server {
	s := &Server{
		svc:       svc,
		extractor: extractor,
	}

	s.mcp = server.NewMCPServer(
		"clarify",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(extractSceneTool, s.handleExtractScene)
	s.mcp.AddTool(askAboutSceneTool, s.handleAskAboutScene)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
