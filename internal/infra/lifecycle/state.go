// Package lifecycle holds the mutable per-session capability state: which
// groups are loaded, how recently each was used, and the policy decisions
// (dependency loading, intent auto-load, idle eviction) that mutate it.
package lifecycle

import (
	"sync"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/catalog"
)

// State is the session's capability state. It lives for the lifetime of the
// process and is never persisted. All methods are safe for concurrent use;
// the transport may deliver overlapping tool calls.
type State struct {
	mu sync.Mutex

	catalog    *catalog.Catalog
	loaded     map[string]struct{}
	allowed    map[string]struct{} // nil when no profile pins the session
	lastUsed   map[string]int
	totalCalls int
}

// New seeds the state with every always-loaded group plus the profile's
// groups, if one resolved. Profile groups go through the dependency loader so
// a profile naming only "browser" still gets "screen".
func New(cat *catalog.Catalog, profile *domain.ProfileSelection) *State {
	s := &State{
		catalog:  cat,
		loaded:   make(map[string]struct{}),
		lastUsed: make(map[string]int),
	}
	for _, g := range cat.AllGroups() {
		if g.AlwaysLoaded {
			s.loaded[g.Name] = struct{}{}
			s.lastUsed[g.Name] = 0
		}
	}
	if profile != nil {
		s.allowed = make(map[string]struct{}, len(profile.Groups))
		for _, name := range profile.Groups {
			s.allowed[name] = struct{}{}
		}
		for _, name := range profile.Groups {
			s.loadLocked(name, nil)
		}
	}
	return s
}

// LoadGroup loads a group and, transitively, its declared dependencies.
// Loading an already-loaded group is a no-op. Returns the groups that
// actually transitioned to loaded, in load order.
func (s *State) LoadGroup(name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.catalog.Has(name) {
		return nil, domain.E(domain.CodeNotFound, "lifecycle.LoadGroup", "unknown tool group: "+name, domain.ErrUnknownGroup)
	}
	return s.loadLocked(name, make(map[string]struct{})), nil
}

// loadLocked walks the dependency graph depth-first. The visiting set breaks
// dependency cycles; without it a cycle not yet loaded would recurse forever.
func (s *State) loadLocked(name string, visiting map[string]struct{}) []string {
	if !s.catalog.Has(name) {
		return nil
	}
	if visiting != nil {
		if _, seen := visiting[name]; seen {
			return nil
		}
		visiting[name] = struct{}{}
	}
	if _, ok := s.loaded[name]; ok {
		return nil
	}
	s.loaded[name] = struct{}{}
	s.lastUsed[name] = s.totalCalls
	newly := []string{name}
	g, _ := s.catalog.Group(name)
	for _, dep := range g.Dependencies {
		newly = append(newly, s.loadLocked(dep, visiting)...)
	}
	return newly
}

// UnloadGroup removes a group from the loaded set. Always-loaded groups can
// never be unloaded. Unloading does not cascade to dependents: a group that
// depended on name stays loaded, since dependencies only drive loading.
func (s *State) UnloadGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.catalog.Has(name) {
		return domain.E(domain.CodeNotFound, "lifecycle.UnloadGroup", "unknown tool group: "+name, domain.ErrUnknownGroup)
	}
	if s.catalog.IsAlwaysLoaded(name) {
		return domain.E(domain.CodeFailedPrecond, "lifecycle.UnloadGroup", "group is always loaded: "+name, domain.ErrAlwaysLoadedGroup)
	}
	delete(s.loaded, name)
	return nil
}

// RecordCall bumps the session call counter and stamps the owning group of
// the called tool. Called once per tool invocation, whatever the outcome.
func (s *State) RecordCall(toolName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCalls++
	if group, ok := s.catalog.OwnerGroup(toolName); ok {
		s.lastUsed[group] = s.totalCalls
	}
}

// EvictIdle unloads every loaded group that is not always-loaded, not pinned
// by the profile, and has gone strictly more than threshold calls without
// use. Returns the evicted group names.
func (s *State) EvictIdle(threshold int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []string
	for name := range s.loaded {
		if s.catalog.IsAlwaysLoaded(name) {
			continue
		}
		if s.allowed != nil {
			if _, pinned := s.allowed[name]; pinned {
				continue
			}
		}
		if s.totalCalls-s.lastUsed[name] > threshold {
			evicted = append(evicted, name)
		}
	}
	for _, name := range evicted {
		delete(s.loaded, name)
	}
	return evicted
}

// AutoLoadEligible reports whether a group may be loaded automatically by
// intent matching: not always-loaded, not already loaded, and inside the
// pinned set when one is active.
func (s *State) AutoLoadEligible(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog.IsAlwaysLoaded(name) {
		return false
	}
	if _, ok := s.loaded[name]; ok {
		return false
	}
	if s.allowed != nil {
		if _, ok := s.allowed[name]; !ok {
			return false
		}
	}
	return true
}

func (s *State) IsLoaded(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loaded[name]
	return ok
}

// LoadedGroups returns the loaded set in catalog declaration order.
func (s *State) LoadedGroups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, g := range s.catalog.AllGroups() {
		if _, ok := s.loaded[g.Name]; ok {
			out = append(out, g.Name)
		}
	}
	return out
}

// TotalCalls returns the session call counter.
func (s *State) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCalls
}

// GroupStatuses renders every catalog group with its current load state, for
// the list_tool_groups introspection tool.
func (s *State) GroupStatuses() []domain.GroupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.GroupStatus
	for _, g := range s.catalog.AllGroups() {
		_, loaded := s.loaded[g.Name]
		status := domain.GroupStatus{
			Name:        g.Name,
			Description: g.Description,
			Loaded:      loaded,
			AlwaysOn:    g.AlwaysLoaded,
		}
		for _, t := range g.Tools {
			status.ToolNames = append(status.ToolNames, t.Name)
		}
		out = append(out, status)
	}
	return out
}
