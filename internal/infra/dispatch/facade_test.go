package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryFacadeForwardsSearch(t *testing.T) {
	tbl := NewTable()
	var gotArgs string
	tbl.Register("memory_search", func(ctx context.Context, args json.RawMessage) (*Result, error) {
		gotArgs = string(args)
		return Text("results"), nil
	})
	NewFacadeHandlers(tbl).Register(tbl)

	res, err := tbl.Call(context.Background(), "memory_manage", json.RawMessage(`{"action":"search","query":"jazz"}`))
	require.NoError(t, err)
	require.Equal(t, "results", res.Content[0].Text)
	require.Contains(t, gotArgs, `"query":"jazz"`)
}

func TestMemoryFacadeRefusesDestructiveAction(t *testing.T) {
	tbl := NewTable()
	NewFacadeHandlers(tbl).Register(tbl)

	res, err := tbl.Call(context.Background(), "memory_manage", json.RawMessage(`{"action":"forget","query":"id-1"}`))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, res.Content[0].Text, "memory_forget")
}

func TestBrowserFacadeUnknownAction(t *testing.T) {
	tbl := NewTable()
	NewFacadeHandlers(tbl).Register(tbl)

	res, err := tbl.Call(context.Background(), "browser_manage", json.RawMessage(`{"action":"fly"}`))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestN8NFacadeForwardsTrigger(t *testing.T) {
	tbl := NewTable()
	tbl.Register("n8n_trigger_workflow", func(ctx context.Context, args json.RawMessage) (*Result, error) {
		return Text("triggered"), nil
	})
	NewFacadeHandlers(tbl).Register(tbl)

	res, err := tbl.Call(context.Background(), "n8n_manage", json.RawMessage(`{"action":"trigger","target":"wf-9"}`))
	require.NoError(t, err)
	require.Equal(t, "triggered", res.Content[0].Text)
}
