package mcpserver

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/svennapp/svennProductsFE/internal/products"
	"github.com/svennapp/svennProductsFE/internal/session"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

// Server exposes the operator workspace as MCP tools over streamable HTTP.
// It expects an authenticated identity on the request context.
type Server struct {
	handler http.Handler
	tools   []server.ServerTool
}

func New(cfg *Config, manager *workspace.Manager, search products.Client, logger zerolog.Logger) *Server {
	if cfg == nil {
		cfg, _ = ParseConfig(nil)
	}

	tools := buildTools(cfg, &toolset{manager: manager, search: search, logger: logger})

	mcpSrv := server.NewMCPServer(
		cfg.Name,
		"1.0.0",
		server.WithInstructions(cfg.Instructions),
		server.WithToolCapabilities(false),
	)
	mcpSrv.AddTools(tools...)

	httpSrv := server.NewStreamableHTTPServer(mcpSrv,
		server.WithEndpointPath("/"),
		server.WithHTTPContextFunc(forwardIdentity),
	)

	logger.Info().Int("tools", len(tools)).Msg("mounted MCP endpoint")

	return &Server{handler: httpSrv, tools: tools}
}

// forwardIdentity carries the operator from the HTTP request into tool calls.
func forwardIdentity(ctx context.Context, r *http.Request) context.Context {
	if id, err := session.FromContext(r.Context()); err == nil {
		return session.WithIdentity(ctx, id)
	}
	return ctx
}

// Tools returns the registered tools.
func (s *Server) Tools() []server.ServerTool {
	return s.tools
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
