package server

import (
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"voicemirror/internal/infra/catalog"
	"voicemirror/internal/infra/lifecycle"
)

// registry keeps the MCP server's advertised tool set in sync with the
// lifecycle state. Adding or removing tools makes the SDK push a tools
// list-changed notification to the client; delivery is best-effort and a
// failure there never fails the operation that triggered the sync.
type registry struct {
	server  *mcp.Server
	catalog *catalog.Catalog
	state   *lifecycle.State
	handler func(name string) mcp.ToolHandler
	logger  *zap.Logger

	mu         sync.Mutex
	registered map[string]struct{}
}

func newRegistry(server *mcp.Server, cat *catalog.Catalog, state *lifecycle.State, handler func(name string) mcp.ToolHandler, logger *zap.Logger) *registry {
	return &registry{
		server:     server,
		catalog:    cat,
		state:      state,
		handler:    handler,
		logger:     logger.Named("registry"),
		registered: make(map[string]struct{}),
	}
}

// Sync diffs the advertised tools against the loaded groups, adding and
// removing only what changed.
func (r *registry) Sync() {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]struct{})
	for _, group := range r.state.LoadedGroups() {
		for _, def := range r.catalog.ToolsOf(group) {
			next[def.Name] = struct{}{}
			if _, ok := r.registered[def.Name]; ok {
				continue
			}
			schema := def.InputSchema
			if schema == nil {
				schema = &jsonschema.Schema{Type: "object"}
			}
			r.server.AddTool(&mcp.Tool{
				Name:        def.Name,
				Description: def.Description,
				InputSchema: schema,
			}, r.handler(def.Name))
		}
	}

	var remove []string
	for name := range r.registered {
		if _, ok := next[name]; !ok {
			remove = append(remove, name)
		}
	}
	if len(remove) > 0 {
		r.server.RemoveTools(remove...)
	}

	if len(next) != len(r.registered) || len(remove) > 0 {
		r.logger.Debug("tool set synced",
			zap.Int("tools", len(next)),
			zap.Int("removed", len(remove)))
	}
	r.registered = next
}
