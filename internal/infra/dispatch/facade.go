package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"voicemirror/internal/domain"
)

// FacadeHandlers implements the voice-mode facade tools. Each facade folds a
// family of tools into one action-dispatched entry point so a voice profile
// can expose three tools instead of forty. Facades route back through the
// dispatch table; destructive actions are deliberately not reachable this
// way and require the full group.
type FacadeHandlers struct {
	table *Table
}

func NewFacadeHandlers(table *Table) *FacadeHandlers {
	return &FacadeHandlers{table: table}
}

func (f *FacadeHandlers) Register(t *Table) {
	t.Register("memory_manage", f.memoryManage)
	t.Register("n8n_manage", f.n8nManage)
	t.Register("browser_manage", f.browserManage)
}

type facadeArgs struct {
	Action string `json:"action"`
	Query  string `json:"query"`
	Target string `json:"target"`
}

func parseFacadeArgs(op string, args json.RawMessage) (facadeArgs, error) {
	var in facadeArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return in, domain.E(domain.CodeInvalidArgument, op, "bad arguments", err)
	}
	return in, nil
}

func (f *FacadeHandlers) memoryManage(ctx context.Context, args json.RawMessage) (*Result, error) {
	in, err := parseFacadeArgs("facade.memoryManage", args)
	if err != nil {
		return nil, err
	}
	switch in.Action {
	case "search":
		return f.forward(ctx, "memory_search", map[string]any{"query": in.Query})
	case "remember":
		return f.forward(ctx, "memory_remember", map[string]any{"content": in.Query})
	case "stats":
		return f.forward(ctx, "memory_stats", map[string]any{})
	case "forget":
		return Errorf("Forgetting is destructive; load the memory group and use memory_forget."), nil
	default:
		return Errorf("Unknown memory action %q. Use search, remember, or stats.", in.Action), nil
	}
}

func (f *FacadeHandlers) n8nManage(ctx context.Context, args json.RawMessage) (*Result, error) {
	in, err := parseFacadeArgs("facade.n8nManage", args)
	if err != nil {
		return nil, err
	}
	switch in.Action {
	case "list":
		return f.forward(ctx, "n8n_list_workflows", map[string]any{})
	case "trigger":
		return f.forward(ctx, "n8n_trigger_workflow", map[string]any{"id": in.Target})
	case "status":
		return f.forward(ctx, "n8n_get_executions", map[string]any{"workflow_id": in.Target, "limit": 5})
	default:
		return Errorf("Unknown n8n action %q. Use list, trigger, or status.", in.Action), nil
	}
}

func (f *FacadeHandlers) browserManage(ctx context.Context, args json.RawMessage) (*Result, error) {
	in, err := parseFacadeArgs("facade.browserManage", args)
	if err != nil {
		return nil, err
	}
	switch in.Action {
	case "open":
		return f.forward(ctx, "browser_open", map[string]any{"url": in.Target})
	case "search":
		return f.forward(ctx, "browser_search", map[string]any{"query": in.Target})
	case "read":
		return f.forward(ctx, "browser_snapshot", map[string]any{})
	case "close":
		return f.forward(ctx, "browser_close_tab", map[string]any{"tab_id": in.Target})
	default:
		return Errorf("Unknown browser action %q. Use open, search, read, or close.", in.Action), nil
	}
}

func (f *FacadeHandlers) forward(ctx context.Context, tool string, args map[string]any) (*Result, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "facade.forward", fmt.Sprintf("encode args for %s", tool), err)
	}
	return f.table.Call(ctx, tool, raw)
}
