package catalog

import (
	"fmt"
	"sort"

	"voicemirror/internal/domain"
)

// Catalog is the read-only registry of capability groups. It is built once at
// startup; a malformed catalog (duplicate tool name, dependency on a group
// that does not exist) is a programming error and fails construction.
type Catalog struct {
	groups map[string]domain.ToolGroup
	order  []string
	owner  map[string]string
}

func New(groups []domain.ToolGroup) (*Catalog, error) {
	c := &Catalog{
		groups: make(map[string]domain.ToolGroup, len(groups)),
		order:  make([]string, 0, len(groups)),
		owner:  make(map[string]string),
	}
	for _, g := range groups {
		if g.Name == "" {
			return nil, fmt.Errorf("catalog: group with empty name")
		}
		if _, dup := c.groups[g.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate group %q", g.Name)
		}
		c.groups[g.Name] = g
		c.order = append(c.order, g.Name)
		for _, t := range g.Tools {
			if owner, dup := c.owner[t.Name]; dup {
				return nil, fmt.Errorf("catalog: tool %q declared by both %q and %q", t.Name, owner, g.Name)
			}
			c.owner[t.Name] = g.Name
		}
	}
	for _, g := range groups {
		for _, dep := range g.Dependencies {
			if _, ok := c.groups[dep]; !ok {
				return nil, fmt.Errorf("catalog: group %q depends on unknown group %q", g.Name, dep)
			}
		}
	}
	return c, nil
}

// MustNew is for the built-in catalog, where construction errors are bugs.
func MustNew(groups []domain.ToolGroup) *Catalog {
	c, err := New(groups)
	if err != nil {
		panic(err)
	}
	return c
}

// AllGroups returns every group in declaration order.
func (c *Catalog) AllGroups() []domain.ToolGroup {
	out := make([]domain.ToolGroup, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.groups[name])
	}
	return out
}

// Group returns the named group.
func (c *Catalog) Group(name string) (domain.ToolGroup, bool) {
	g, ok := c.groups[name]
	return g, ok
}

// ToolsOf returns the tool definitions of a group, or nil if unknown.
func (c *Catalog) ToolsOf(name string) []domain.ToolDefinition {
	g, ok := c.groups[name]
	if !ok {
		return nil
	}
	return g.Tools
}

// OwnerGroup resolves a tool name to its owning group via the reverse index
// built at construction time.
func (c *Catalog) OwnerGroup(toolName string) (string, bool) {
	g, ok := c.owner[toolName]
	return g, ok
}

// Tool looks up a single tool definition by name.
func (c *Catalog) Tool(toolName string) (domain.ToolDefinition, bool) {
	group, ok := c.owner[toolName]
	if !ok {
		return domain.ToolDefinition{}, false
	}
	for _, t := range c.groups[group].Tools {
		if t.Name == toolName {
			return t, true
		}
	}
	return domain.ToolDefinition{}, false
}

func (c *Catalog) IsAlwaysLoaded(name string) bool {
	g, ok := c.groups[name]
	return ok && g.AlwaysLoaded
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.groups[name]
	return ok
}

// LoadableGroups lists the groups that can be loaded and unloaded on demand;
// always-loaded groups are excluded.
func (c *Catalog) LoadableGroups() []string {
	var out []string
	for _, name := range c.order {
		if !c.groups[name].AlwaysLoaded {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// DestructiveTools returns the names of all tools flagged destructive.
func (c *Catalog) DestructiveTools() map[string]struct{} {
	out := make(map[string]struct{})
	for _, g := range c.groups {
		for _, t := range g.Tools {
			if t.Destructive {
				out[t.Name] = struct{}{}
			}
		}
	}
	return out
}
