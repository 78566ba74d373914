package domain

import (
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToolDefinition describes a single tool as advertised to the MCP client.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
	Destructive bool               `json:"destructive,omitempty"`
}

// ToolGroup is a named, atomically loadable bundle of related tools.
//
// Dependencies name other groups that must be loaded alongside this one.
// Keywords drive intent-based auto-loading: a free-text message matching any
// keyword loads the group. AlwaysLoaded groups are pinned into every session
// and can never be unloaded.
type ToolGroup struct {
	Name         string
	Description  string
	Tools        []ToolDefinition
	Dependencies []string
	Keywords     []string
	AlwaysLoaded bool
}

// GroupStatus is the introspection row returned by list_tool_groups.
type GroupStatus struct {
	Name        string
	Description string
	Loaded      bool
	AlwaysOn    bool
	ToolNames   []string
}

// ProfileSource records which link of the resolution chain produced a profile.
type ProfileSource string

const (
	ProfileSourceFlag     ProfileSource = "flag"
	ProfileSourceEnv      ProfileSource = "env"
	ProfileSourceSettings ProfileSource = "settings"
)

// ProfileSelection is a resolved tool profile: the group set to seed the
// session with, which also becomes the pinned allowed set.
type ProfileSelection struct {
	Groups []string
	Source ProfileSource
}

var ErrUnknownGroup = errors.New("unknown tool group")
var ErrAlwaysLoadedGroup = errors.New("group is always loaded and cannot be unloaded")
var ErrUnknownTool = errors.New("unknown tool")
var ErrListenerLockHeld = errors.New("another instance holds the listener lock")
var ErrBridgeUnavailable = errors.New("desktop bridge unavailable")
