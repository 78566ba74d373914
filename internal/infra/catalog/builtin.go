package catalog

import (
	"github.com/google/jsonschema-go/jsonschema"

	"voicemirror/internal/domain"
)

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func boolean(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

func integer(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func obj(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

// confirmed is the argument checked by the confirmation gate on destructive
// tools.
func confirmed() *jsonschema.Schema {
	return boolean("Must be true to execute this destructive operation. Ask the user first.")
}

// Builtin returns the full Voice Mirror tool catalog. core and meta are
// always loaded; everything else is loaded on demand, by intent keywords, or
// through a profile.
func Builtin() *Catalog {
	return MustNew([]domain.ToolGroup{
		{
			Name:         domain.GroupCore,
			Description:  "Voice I/O: send messages, read the inbox, listen for replies, report presence",
			AlwaysLoaded: true,
			Tools: []domain.ToolDefinition{
				{
					Name:        "voice_send",
					Description: "Send a message to the voice assistant's shared inbox.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"instance_id": str("Identifier of this agent instance"),
						"message":     str("Message text to deliver"),
						"thread_id":   str("Optional conversation thread"),
						"reply_to":    str("Optional id of the message being replied to"),
					}, "instance_id", "message"),
				},
				{
					Name:        "voice_inbox",
					Description: "Read unread inbox messages addressed to this instance.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"instance_id": str("Identifier of this agent instance"),
						"limit":       integer("Maximum number of messages to return"),
					}, "instance_id"),
				},
				{
					Name:        "voice_listen",
					Description: "Block until a new user message arrives or the timeout elapses. Only one listener may run at a time.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"instance_id":     str("Identifier of this agent instance"),
						"timeout_seconds": integer("Seconds to wait before giving up (default 300)"),
					}, "instance_id"),
				},
				{
					Name:        "voice_status",
					Description: "Report presence and current task, and list other active instances.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"instance_id":  str("Identifier of this agent instance"),
						"status":       str("One of active, idle, busy"),
						"current_task": str("Optional short description of the current task"),
					}, "instance_id"),
				},
			},
		},
		{
			Name:         domain.GroupMeta,
			Description:  "Manage which tool groups are loaded into the session",
			AlwaysLoaded: true,
			Tools: []domain.ToolDefinition{
				{
					Name:        "load_tools",
					Description: "Load a tool group (and its dependencies) into the visible tool set.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"group": str("Name of the tool group to load"),
					}, "group"),
				},
				{
					Name:        "unload_tools",
					Description: "Unload a tool group from the visible tool set.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"group": str("Name of the tool group to unload"),
					}, "group"),
				},
				{
					Name:        "list_tool_groups",
					Description: "List all tool groups with their load state and member tools.",
					InputSchema: obj(nil),
				},
			},
		},
		{
			Name:        domain.GroupMemory,
			Description: "Long-term memory: remember, search and forget facts across sessions",
			Keywords: []string{
				"remember", "memory", "memories", "recall", "forget", "memorize",
				"what did i say", "last time",
			},
			Tools: []domain.ToolDefinition{
				{
					Name:        "memory_search",
					Description: "Search stored memories by keyword relevance.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"query": str("Free-text search query"),
						"limit": integer("Maximum results (default 5)"),
					}, "query"),
				},
				{
					Name:        "memory_get",
					Description: "Fetch a single memory chunk by id.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"id": str("Memory chunk id"),
					}, "id"),
				},
				{
					Name:        "memory_remember",
					Description: "Store a new memory chunk.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"content": str("Text to remember"),
						"tier":    str("Retention tier: stable, notes, or scratch"),
						"tags":    {Type: "array", Items: str("tag"), Description: "Optional tags"},
					}, "content"),
				},
				{
					Name:        "memory_forget",
					Description: "Delete a memory chunk permanently.",
					Destructive: true,
					InputSchema: obj(map[string]*jsonschema.Schema{
						"id":        str("Memory chunk id to delete"),
						"confirmed": confirmed(),
					}, "id"),
				},
				{
					Name:        "memory_stats",
					Description: "Report memory store statistics per tier.",
					InputSchema: obj(nil),
				},
				{
					Name:        "memory_flush",
					Description: "Delete all expired memory chunks, or the whole store.",
					Destructive: true,
					InputSchema: obj(map[string]*jsonschema.Schema{
						"all":       boolean("Delete everything, not just expired chunks"),
						"confirmed": confirmed(),
					}),
				},
			},
		},
		{
			Name:        domain.GroupScreen,
			Description: "Capture the user's screen for visual context",
			Keywords: []string{
				"screen", "screenshot", "capture", "what do you see", "look at my",
			},
			Tools: []domain.ToolDefinition{
				{
					Name:        "capture_screen",
					Description: "Capture the current screen and return it as an image.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"display": integer("Display index (default 0)"),
					}),
				},
			},
		},
		{
			Name:         domain.GroupBrowser,
			Description:  "Drive the user's browser: tabs, navigation, snapshots and actions",
			Dependencies: []string{domain.GroupScreen},
			Keywords: []string{
				"browser", "website", "web page", "webpage", "url", "tab",
				"navigate", "google", "search the web", "open the site",
			},
			Tools: []domain.ToolDefinition{
				{Name: "browser_start", Description: "Start the managed browser.", InputSchema: obj(map[string]*jsonschema.Schema{"profile": str("Optional browser profile name")})},
				{Name: "browser_stop", Description: "Stop the managed browser.", InputSchema: obj(nil)},
				{Name: "browser_status", Description: "Report whether the managed browser is running.", InputSchema: obj(nil)},
				{Name: "browser_tabs", Description: "List open tabs.", InputSchema: obj(nil)},
				{Name: "browser_open", Description: "Open a URL in a new tab.", InputSchema: obj(map[string]*jsonschema.Schema{"url": str("URL to open")}, "url")},
				{Name: "browser_close_tab", Description: "Close a tab by id.", InputSchema: obj(map[string]*jsonschema.Schema{"tab_id": str("Tab id")}, "tab_id")},
				{Name: "browser_focus", Description: "Focus a tab by id.", InputSchema: obj(map[string]*jsonschema.Schema{"tab_id": str("Tab id")}, "tab_id")},
				{Name: "browser_navigate", Description: "Navigate the focused tab to a URL.", InputSchema: obj(map[string]*jsonschema.Schema{"url": str("URL to navigate to")}, "url")},
				{Name: "browser_screenshot", Description: "Screenshot the focused tab.", InputSchema: obj(nil)},
				{Name: "browser_snapshot", Description: "Return an accessibility snapshot of the focused tab.", InputSchema: obj(nil)},
				{Name: "browser_act", Description: "Perform an action (click, type, scroll) on a snapshot element.", InputSchema: obj(map[string]*jsonschema.Schema{
					"action": str("One of click, type, scroll, press"),
					"ref":    str("Element reference from the latest snapshot"),
					"text":   str("Text to type, when action is type"),
				}, "action")},
				{Name: "browser_console", Description: "Read console output from the focused tab.", InputSchema: obj(nil)},
				{Name: "browser_search", Description: "Run a web search and return result links.", InputSchema: obj(map[string]*jsonschema.Schema{"query": str("Search query")}, "query")},
				{Name: "browser_fetch", Description: "Fetch a URL without the browser and return its text.", InputSchema: obj(map[string]*jsonschema.Schema{"url": str("URL to fetch")}, "url")},
				{Name: "browser_cookies", Description: "List cookies for the focused tab.", InputSchema: obj(nil)},
				{Name: "browser_storage", Description: "Read localStorage of the focused tab.", InputSchema: obj(nil)},
			},
		},
		{
			Name:        domain.GroupN8N,
			Description: "Manage n8n workflows, executions, credentials and tags",
			Keywords: []string{
				"workflow", "n8n", "automation", "automate", "webhook", "trigger the",
			},
			Tools: []domain.ToolDefinition{
				{Name: "n8n_list_workflows", Description: "List workflows.", InputSchema: obj(map[string]*jsonschema.Schema{"active_only": boolean("Only list active workflows")})},
				{Name: "n8n_get_workflow", Description: "Fetch a workflow by id.", InputSchema: obj(map[string]*jsonschema.Schema{"id": str("Workflow id")}, "id")},
				{Name: "n8n_create_workflow", Description: "Create a workflow from a JSON definition.", InputSchema: obj(map[string]*jsonschema.Schema{"workflow": {Type: "object", Description: "Workflow definition"}}, "workflow")},
				{Name: "n8n_update_workflow", Description: "Update an existing workflow.", InputSchema: obj(map[string]*jsonschema.Schema{"id": str("Workflow id"), "workflow": {Type: "object", Description: "Updated definition"}}, "id", "workflow")},
				{Name: "n8n_delete_workflow", Description: "Delete a workflow.", Destructive: true, InputSchema: obj(map[string]*jsonschema.Schema{"id": str("Workflow id"), "confirmed": confirmed()}, "id")},
				{Name: "n8n_validate_workflow", Description: "Validate a workflow definition without saving it.", InputSchema: obj(map[string]*jsonschema.Schema{"workflow": {Type: "object", Description: "Workflow definition"}}, "workflow")},
				{Name: "n8n_trigger_workflow", Description: "Trigger a workflow run.", InputSchema: obj(map[string]*jsonschema.Schema{"id": str("Workflow id"), "payload": {Type: "object", Description: "Optional trigger payload"}}, "id")},
				{Name: "n8n_deploy_template", Description: "Deploy a workflow template by name.", InputSchema: obj(map[string]*jsonschema.Schema{"template": str("Template name")}, "template")},
				{Name: "n8n_get_executions", Description: "List recent executions.", InputSchema: obj(map[string]*jsonschema.Schema{"workflow_id": str("Optional workflow filter"), "limit": integer("Maximum results")})},
				{Name: "n8n_get_execution", Description: "Fetch a single execution by id.", InputSchema: obj(map[string]*jsonschema.Schema{"id": str("Execution id")}, "id")},
				{Name: "n8n_delete_execution", Description: "Delete an execution record.", Destructive: true, InputSchema: obj(map[string]*jsonschema.Schema{"id": str("Execution id"), "confirmed": confirmed()}, "id")},
				{Name: "n8n_retry_execution", Description: "Retry a failed execution.", InputSchema: obj(map[string]*jsonschema.Schema{"id": str("Execution id")}, "id")},
				{Name: "n8n_list_credentials", Description: "List credentials.", InputSchema: obj(nil)},
				{Name: "n8n_create_credential", Description: "Create a credential.", InputSchema: obj(map[string]*jsonschema.Schema{"name": str("Credential name"), "type": str("Credential type"), "data": {Type: "object", Description: "Credential payload"}}, "name", "type", "data")},
				{Name: "n8n_delete_credential", Description: "Delete a credential.", Destructive: true, InputSchema: obj(map[string]*jsonschema.Schema{"id": str("Credential id"), "confirmed": confirmed()}, "id")},
				{Name: "n8n_get_credential_schema", Description: "Fetch the schema for a credential type.", InputSchema: obj(map[string]*jsonschema.Schema{"type": str("Credential type")}, "type")},
				{Name: "n8n_search_nodes", Description: "Search available workflow node types.", InputSchema: obj(map[string]*jsonschema.Schema{"query": str("Search query")}, "query")},
				{Name: "n8n_get_node", Description: "Fetch documentation for a node type.", InputSchema: obj(map[string]*jsonschema.Schema{"type": str("Node type name")}, "type")},
				{Name: "n8n_list_tags", Description: "List workflow tags.", InputSchema: obj(nil)},
				{Name: "n8n_create_tag", Description: "Create a workflow tag.", InputSchema: obj(map[string]*jsonschema.Schema{"name": str("Tag name")}, "name")},
				{Name: "n8n_delete_tag", Description: "Delete a workflow tag.", Destructive: true, InputSchema: obj(map[string]*jsonschema.Schema{"id": str("Tag id"), "confirmed": confirmed()}, "id")},
				{Name: "n8n_list_variables", Description: "List environment variables.", InputSchema: obj(nil)},
			},
		},
		{
			Name:        domain.GroupDiagnostic,
			Description: "Voice pipeline diagnostics",
			Keywords: []string{
				"diagnose", "diagnostic", "pipeline trace", "latency", "not hearing",
				"audio problem",
			},
			Tools: []domain.ToolDefinition{
				{
					Name:        "pipeline_trace",
					Description: "Trace a message through the voice pipeline and report per-stage timings.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"message_id": str("Optional message id to trace; traces the latest if omitted"),
					}),
				},
			},
		},
		{
			Name:        domain.GroupVoiceClone,
			Description: "Voice cloning management",
			Keywords: []string{
				"clone my voice", "voice clone", "sound like me", "mimic my voice",
			},
			Tools: []domain.ToolDefinition{
				{
					Name:        "clone_voice",
					Description: "Create a voice clone from a reference recording.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"name":       str("Name for the cloned voice"),
						"audio_path": str("Path to the reference recording"),
					}, "name", "audio_path"),
				},
				{
					Name:        "clear_voice_clone",
					Description: "Delete a stored voice clone.",
					Destructive: true,
					InputSchema: obj(map[string]*jsonschema.Schema{
						"name":      str("Name of the clone to delete"),
						"confirmed": confirmed(),
					}, "name"),
				},
				{
					Name:        "list_voice_clones",
					Description: "List stored voice clones.",
					InputSchema: obj(nil),
				},
			},
		},
		{
			Name:         domain.GroupFacades,
			Description:  "Combined voice-mode facades over memory, n8n and browser",
			Dependencies: []string{domain.GroupMemory},
			Tools: []domain.ToolDefinition{
				{
					Name:        "memory_manage",
					Description: "Single-call facade over the memory tools for voice mode.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"action": str("One of search, remember, forget, stats"),
						"query":  str("Query or content, depending on action"),
					}, "action"),
				},
				{
					Name:        "n8n_manage",
					Description: "Single-call facade over the n8n tools for voice mode.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"action": str("One of list, trigger, status"),
						"target": str("Workflow id or name, depending on action"),
					}, "action"),
				},
				{
					Name:        "browser_manage",
					Description: "Single-call facade over the browser tools for voice mode.",
					InputSchema: obj(map[string]*jsonschema.Schema{
						"action": str("One of open, search, read, close"),
						"target": str("URL or query, depending on action"),
					}, "action"),
				},
			},
		},
	})
}
