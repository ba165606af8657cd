package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/alanyang/lead-router/internal/domain/identity"
	agentsvc "github.com/alanyang/lead-router/internal/service/agent"
	bulksvc "github.com/alanyang/lead-router/internal/service/bulk"
	leadsvc "github.com/alanyang/lead-router/internal/service/lead"
)

// Server wraps the mcp-go MCPServer and its StreamableHTTPServer. Tools live
// in tools.go.
type Server struct {
	mcpSrv  *mcpserver.MCPServer
	httpSrv *mcpserver.StreamableHTTPServer
}

func New(leadSvc *leadsvc.Service, bulkSvc *bulksvc.Service, agentSvc *agentsvc.Service) *Server {
	hooks := &mcpserver.Hooks{}
	hooks.OnRegisterSession = append(hooks.OnRegisterSession, func(ctx context.Context, session mcpserver.ClientSession) {
		slog.InfoContext(ctx, "mcp: session opened", "session_id", session.SessionID())
	})
	hooks.OnUnregisterSession = append(hooks.OnUnregisterSession, func(ctx context.Context, session mcpserver.ClientSession) {
		slog.InfoContext(ctx, "mcp: session closed", "session_id", session.SessionID())
	})

	mcpSrv := mcpserver.NewMCPServer(
		"lead-router",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithHooks(hooks),
	)
	RegisterTools(mcpSrv, leadSvc, bulkSvc, agentSvc)

	return &Server{
		mcpSrv: mcpSrv,
		httpSrv: mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithHTTPContextFunc(withCaller),
		),
	}
}

// Handler serves the streamable HTTP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

// MCPServer exposes the underlying server for in-process clients and tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpSrv
}

// withCaller carries the upstream identity headers into tool handlers.
func withCaller(ctx context.Context, r *http.Request) context.Context {
	return identity.WithIdentity(ctx, identity.FromHeaders(r.Header))
}
