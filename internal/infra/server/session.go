package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/catalog"
	"voicemirror/internal/infra/dispatch"
	"voicemirror/internal/infra/lifecycle"
	"voicemirror/internal/infra/telemetry"
)

// Session ties the lifecycle policy together for one agent connection: every
// tool call is counted, gated when destructive, dispatched, and followed by
// an idle-eviction pass and a registry sync.
type Session struct {
	catalog     *catalog.Catalog
	state       *lifecycle.State
	matcher     *lifecycle.IntentMatcher
	table       *dispatch.Table
	destructive map[string]struct{}
	metrics     domain.Metrics
	logger      *zap.Logger
	threshold   int

	// sync pushes the loaded tool set to the client; installed by the
	// server once the registry exists.
	sync func()
}

func NewSession(cat *catalog.Catalog, state *lifecycle.State, table *dispatch.Table, metrics domain.Metrics, logger *zap.Logger) *Session {
	return &Session{
		catalog:     cat,
		state:       state,
		matcher:     lifecycle.NewIntentMatcher(cat),
		table:       table,
		destructive: cat.DestructiveTools(),
		metrics:     metrics,
		logger:      logger.Named("session"),
		threshold:   domain.DefaultIdleEvictThreshold,
		sync:        func() {},
	}
}

// CallTool runs the full per-call pipeline. Unknown-tool and handler errors
// come back as error results, not protocol failures; the agent can react to
// text.
func (s *Session) CallTool(ctx context.Context, name string, args json.RawMessage) (*dispatch.Result, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	s.state.RecordCall(name)
	defer s.evictAfterCall()

	if res := s.gate(name, args); res != nil {
		return res, nil
	}

	group, _ := s.catalog.OwnerGroup(name)
	start := time.Now()
	res, err := s.table.Call(ctx, name, args)
	s.metrics.ObserveToolCall(name, group, time.Since(start), err)
	if err != nil {
		s.logger.Warn("tool call failed",
			telemetry.EventField(telemetry.EventToolError),
			telemetry.ToolField(name),
			telemetry.DurationField(time.Since(start)),
			zap.Error(err))
		return dispatch.Errorf("%s failed: %v", name, err), nil
	}
	s.logger.Debug("tool call",
		telemetry.EventField(telemetry.EventToolCall),
		telemetry.ToolField(name),
		telemetry.GroupField(group),
		telemetry.DurationField(time.Since(start)))
	return res, nil
}

// gate blocks destructive tools until the call carries confirmed: true. The
// gate is stateless; every unconfirmed call gets the same prompt.
func (s *Session) gate(name string, args json.RawMessage) *dispatch.Result {
	if _, ok := s.destructive[name]; !ok {
		return nil
	}
	var in struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := json.Unmarshal(args, &in); err == nil && in.Confirmed {
		return nil
	}
	return dispatch.Text("CONFIRMATION REQUIRED: %s is a destructive action. Ask the user to confirm, then call again with \"confirmed\": true.", name)
}

// evictAfterCall runs the idle-eviction pass that follows every tool call,
// whatever the call's outcome.
func (s *Session) evictAfterCall() {
	evicted := s.state.EvictIdle(s.threshold)
	if len(evicted) == 0 {
		return
	}
	for _, group := range evicted {
		s.metrics.ObserveGroupUnload(group, telemetry.CauseIdle)
		s.logger.Info("evicted idle tool group",
			telemetry.EventField(telemetry.EventIdleEvict),
			telemetry.GroupField(group))
	}
	s.metrics.SetLoadedGroups(len(s.state.LoadedGroups()))
	s.sync()
}

// ScanText runs intent matching over inbound free text, loading every
// matching eligible group. One registry sync covers the whole batch, so one
// message never produces a notification per group.
func (s *Session) ScanText(text string) []string {
	newly := s.matcher.AutoLoad(s.state, text)
	if len(newly) == 0 {
		return nil
	}
	for _, group := range newly {
		s.metrics.ObserveGroupLoad(group, telemetry.CauseIntent)
		s.logger.Info("intent match loaded tool group",
			telemetry.EventField(telemetry.EventIntentLoad),
			telemetry.GroupField(group))
	}
	s.metrics.SetLoadedGroups(len(s.state.LoadedGroups()))
	s.sync()
	return newly
}

// RegisterMetaTools wires the meta group's handlers into the dispatch table.
func (s *Session) RegisterMetaTools() {
	s.table.Register("load_tools", s.loadTools)
	s.table.Register("unload_tools", s.unloadTools)
	s.table.Register("list_tool_groups", s.listToolGroups)
}

func (s *Session) loadTools(ctx context.Context, args json.RawMessage) (*dispatch.Result, error) {
	var in struct {
		Group string `json:"group"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "session.loadTools", "bad arguments", err)
	}
	newly, err := s.state.LoadGroup(in.Group)
	if err != nil {
		return dispatch.Errorf("Unknown tool group %q. Available groups: %s", in.Group, strings.Join(s.catalog.LoadableGroups(), ", ")), nil
	}
	if len(newly) == 0 {
		return dispatch.Text("Tool group %q is already loaded.", in.Group), nil
	}
	for _, group := range newly {
		s.metrics.ObserveGroupLoad(group, telemetry.CauseExplicit)
		s.logger.Info("loaded tool group",
			telemetry.EventField(telemetry.EventGroupLoad),
			telemetry.GroupField(group),
			telemetry.CauseField(telemetry.CauseExplicit))
	}
	s.metrics.SetLoadedGroups(len(s.state.LoadedGroups()))
	s.sync()

	var b strings.Builder
	for _, group := range newly {
		tools := s.catalog.ToolsOf(group)
		fmt.Fprintf(&b, "Loaded tool group %q (%d tools):\n", group, len(tools))
		for _, tool := range tools {
			fmt.Fprintf(&b, "- %s\n", tool.Name)
		}
	}
	return dispatch.Text("%s", strings.TrimRight(b.String(), "\n")), nil
}

func (s *Session) unloadTools(ctx context.Context, args json.RawMessage) (*dispatch.Result, error) {
	var in struct {
		Group string `json:"group"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "session.unloadTools", "bad arguments", err)
	}
	wasLoaded := s.state.IsLoaded(in.Group)
	if err := s.state.UnloadGroup(in.Group); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlwaysLoadedGroup):
			return dispatch.Errorf("Tool group %q is always loaded and cannot be unloaded.", in.Group), nil
		default:
			return dispatch.Errorf("Unknown tool group %q.", in.Group), nil
		}
	}
	if !wasLoaded {
		return dispatch.Text("Tool group %q is not loaded.", in.Group), nil
	}
	s.metrics.ObserveGroupUnload(in.Group, telemetry.CauseExplicit)
	s.logger.Info("unloaded tool group",
		telemetry.EventField(telemetry.EventGroupUnload),
		telemetry.GroupField(in.Group),
		telemetry.CauseField(telemetry.CauseExplicit))
	s.metrics.SetLoadedGroups(len(s.state.LoadedGroups()))
	s.sync()
	return dispatch.Text("Unloaded tool group %q. %d tools removed from context.", in.Group, len(s.catalog.ToolsOf(in.Group))), nil
}

func (s *Session) listToolGroups(ctx context.Context, args json.RawMessage) (*dispatch.Result, error) {
	var b strings.Builder
	for _, st := range s.state.GroupStatuses() {
		marker := "available"
		switch {
		case st.AlwaysOn:
			marker = "always"
		case st.Loaded:
			marker = "loaded"
		}
		fmt.Fprintf(&b, "[%s] %s (%d tools) - %s\n", marker, st.Name, len(st.ToolNames), st.Description)
		fmt.Fprintf(&b, "  Tools: %s\n", strings.Join(st.ToolNames, ", "))
	}
	return dispatch.Text("%s", strings.TrimRight(b.String(), "\n")), nil
}
