// Package server exposes the capability lifecycle over MCP stdio: it owns
// the mcp.Server, keeps its advertised tools in sync with the loaded groups,
// and runs every call through the session pipeline.
package server

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"voicemirror/internal/infra/dispatch"
)

const serverName = "voicemirror"

type Server struct {
	mcp      *mcp.Server
	session  *Session
	registry *registry
	logger   *zap.Logger
}

func New(session *Session, version string, logger *zap.Logger) *Server {
	s := &Server{
		session: session,
		logger:  logger.Named("server"),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})
	s.registry = newRegistry(s.mcp, session.catalog, session.state, s.toolHandler, logger)
	session.sync = s.registry.Sync
	s.registry.Sync()
	return s
}

// Run serves the stdio transport until the context is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("server starting (stdio transport)")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := json.RawMessage(req.Params.Arguments)
		res, err := s.session.CallTool(ctx, name, args)
		if err != nil {
			return nil, err
		}
		return toMCPResult(res), nil
	}
}

func toMCPResult(res *dispatch.Result) *mcp.CallToolResult {
	out := &mcp.CallToolResult{IsError: res.IsError}
	for _, item := range res.Content {
		switch item.Type {
		case "image":
			out.Content = append(out.Content, &mcp.ImageContent{
				Data:     item.Data,
				MIMEType: item.MimeType,
			})
		default:
			out.Content = append(out.Content, &mcp.TextContent{Text: item.Text})
		}
	}
	if len(out.Content) == 0 {
		out.Content = []mcp.Content{&mcp.TextContent{Text: ""}}
	}
	return out
}
