package lifecycle

import (
	"regexp"
	"strings"

	"voicemirror/internal/infra/catalog"
)

// IntentMatcher maps free text to the capability groups it hints at. One
// case-insensitive pattern per group, compiled once from the group's keyword
// list; scanning a message never recompiles anything.
type IntentMatcher struct {
	order    []string
	patterns map[string]*regexp.Regexp
}

func NewIntentMatcher(cat *catalog.Catalog) *IntentMatcher {
	m := &IntentMatcher{patterns: make(map[string]*regexp.Regexp)}
	for _, g := range cat.AllGroups() {
		if g.AlwaysLoaded || len(g.Keywords) == 0 {
			continue
		}
		quoted := make([]string, 0, len(g.Keywords))
		for _, kw := range g.Keywords {
			quoted = append(quoted, regexp.QuoteMeta(kw))
		}
		m.order = append(m.order, g.Name)
		m.patterns[g.Name] = regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
	}
	return m
}

// Match returns the groups whose keyword pattern matches the text, in
// catalog declaration order.
func (m *IntentMatcher) Match(text string) []string {
	if text == "" {
		return nil
	}
	var hits []string
	for _, name := range m.order {
		if m.patterns[name].MatchString(text) {
			hits = append(hits, name)
		}
	}
	return hits
}

// AutoLoad scans the text and loads every matching group that the state
// allows: not always-loaded, not already loaded, inside the pinned set when
// one is active. Returns all newly loaded groups across the whole scan, so a
// caller can fire a single change notification for the batch.
func (m *IntentMatcher) AutoLoad(s *State, text string) []string {
	var newly []string
	for _, name := range m.Match(text) {
		if !s.AutoLoadEligible(name) {
			continue
		}
		loaded, err := s.LoadGroup(name)
		if err != nil {
			continue
		}
		newly = append(newly, loaded...)
	}
	return newly
}
