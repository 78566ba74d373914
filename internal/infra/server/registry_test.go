package server

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/lifecycle"
)

func connectClient(t *testing.T, ctx context.Context, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ct, st := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	return session
}

func TestRegistrySyncFollowsLoadedGroups(t *testing.T) {
	ctx := context.Background()
	cat := sessionCatalog(t)
	state := lifecycle.New(cat, nil)
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: "0.1.0"}, &mcp.ServerOptions{HasTools: true})

	handler := func(name string) mcp.ToolHandler {
		return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: name}}}, nil
		}
	}
	reg := newRegistry(mcpServer, cat, state, handler, zap.NewNop())
	reg.Sync()

	session := connectClient(t, ctx, mcpServer)
	defer session.Close()

	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 3) // the meta group only

	_, err = state.LoadGroup("safe")
	require.NoError(t, err)
	reg.Sync()

	res, err = session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 4)

	require.NoError(t, state.UnloadGroup("safe"))
	reg.Sync()

	res, err = session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 3)
}

func TestRegistrySyncIdempotent(t *testing.T) {
	ctx := context.Background()
	cat := sessionCatalog(t)
	state := lifecycle.New(cat, &domain.ProfileSelection{Groups: []string{"safe"}, Source: domain.ProfileSourceFlag})
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: "0.1.0"}, &mcp.ServerOptions{HasTools: true})

	handler := func(name string) mcp.ToolHandler {
		return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{}, nil
		}
	}
	reg := newRegistry(mcpServer, cat, state, handler, zap.NewNop())
	reg.Sync()
	reg.Sync()

	session := connectClient(t, ctx, mcpServer)
	defer session.Close()

	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 4)
}
