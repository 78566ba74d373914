package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voicemirror/internal/domain"
)

func TestNewRejectsDuplicateToolAcrossGroups(t *testing.T) {
	_, err := New([]domain.ToolGroup{
		{Name: "a", Tools: []domain.ToolDefinition{{Name: "shared"}}},
		{Name: "b", Tools: []domain.ToolDefinition{{Name: "shared"}}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "shared")
}

func TestNewRejectsUnknownDependency(t *testing.T) {
	_, err := New([]domain.ToolGroup{
		{Name: "a", Dependencies: []string{"missing"}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestNewRejectsDuplicateGroup(t *testing.T) {
	_, err := New([]domain.ToolGroup{{Name: "a"}, {Name: "a"}})
	require.Error(t, err)
}

func TestBuiltinReverseIndex(t *testing.T) {
	c := Builtin()

	group, ok := c.OwnerGroup("memory_search")
	require.True(t, ok)
	require.Equal(t, domain.GroupMemory, group)

	group, ok = c.OwnerGroup("load_tools")
	require.True(t, ok)
	require.Equal(t, domain.GroupMeta, group)

	_, ok = c.OwnerGroup("no_such_tool")
	require.False(t, ok)
}

func TestBuiltinLoadableExcludesAlwaysLoaded(t *testing.T) {
	c := Builtin()

	loadable := c.LoadableGroups()
	require.NotContains(t, loadable, domain.GroupCore)
	require.NotContains(t, loadable, domain.GroupMeta)
	require.Contains(t, loadable, domain.GroupBrowser)
	require.Contains(t, loadable, domain.GroupMemory)

	require.True(t, c.IsAlwaysLoaded(domain.GroupCore))
	require.False(t, c.IsAlwaysLoaded(domain.GroupBrowser))
}

func TestBuiltinBrowserDependsOnScreen(t *testing.T) {
	c := Builtin()

	g, ok := c.Group(domain.GroupBrowser)
	require.True(t, ok)
	require.Contains(t, g.Dependencies, domain.GroupScreen)
}

func TestBuiltinDestructiveTools(t *testing.T) {
	c := Builtin()

	destructive := c.DestructiveTools()
	for _, name := range []string{
		"memory_forget", "memory_flush",
		"n8n_delete_workflow", "n8n_delete_credential",
		"n8n_delete_execution", "n8n_delete_tag",
		"clear_voice_clone",
	} {
		require.Contains(t, destructive, name, "tool %s should be destructive", name)
	}
	require.NotContains(t, destructive, "memory_search")

	// Destructive flag and schema must agree: every destructive tool
	// declares the confirmed argument.
	for name := range destructive {
		def, ok := c.Tool(name)
		require.True(t, ok)
		require.NotNil(t, def.InputSchema.Properties["confirmed"], "tool %s", name)
	}
}

func TestBuiltinDeclarationOrderStable(t *testing.T) {
	c := Builtin()

	groups := c.AllGroups()
	require.Equal(t, domain.GroupCore, groups[0].Name)
	require.Equal(t, domain.GroupMeta, groups[1].Name)
}
