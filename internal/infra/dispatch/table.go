// Package dispatch routes tool calls by name to their handlers. The table is
// populated once at startup from the catalog's groups; the lifecycle layer
// decides which entries are visible, the table only executes them.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"voicemirror/internal/domain"
)

// Handler executes one tool call. Arguments arrive as the raw JSON object
// from the client; handlers decode what they need.
type Handler func(ctx context.Context, args json.RawMessage) (*Result, error)

// ContentItem is one piece of a tool result, either text or an image.
type ContentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Result is a tool call outcome. IsError marks a tool-level failure that is
// reported to the agent as content rather than a protocol error.
type Result struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

func Text(format string, args ...any) *Result {
	return &Result{Content: []ContentItem{{Type: "text", Text: fmt.Sprintf(format, args...)}}}
}

func Errorf(format string, args ...any) *Result {
	r := Text(format, args...)
	r.IsError = true
	return r
}

func Image(data []byte, mimeType string) *Result {
	return &Result{Content: []ContentItem{{Type: "image", Data: data, MimeType: mimeType}}}
}

// Table maps tool names to handlers.
type Table struct {
	handlers map[string]Handler
}

func NewTable() *Table {
	return &Table{handlers: make(map[string]Handler)}
}

// Register adds a handler. Registering the same name twice is a programming
// error.
func (t *Table) Register(name string, h Handler) {
	if _, dup := t.handlers[name]; dup {
		panic(fmt.Sprintf("dispatch: duplicate handler for %q", name))
	}
	t.handlers[name] = h
}

func (t *Table) Has(name string) bool {
	_, ok := t.handlers[name]
	return ok
}

// Call executes the named handler.
func (t *Table) Call(ctx context.Context, name string, args json.RawMessage) (*Result, error) {
	h, ok := t.handlers[name]
	if !ok {
		return nil, domain.E(domain.CodeNotFound, "dispatch.Call", "no handler for tool: "+name, domain.ErrUnknownTool)
	}
	return h(ctx, args)
}
