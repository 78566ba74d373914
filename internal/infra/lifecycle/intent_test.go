package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntentMatchCaseInsensitive(t *testing.T) {
	m := NewIntentMatcher(testCatalog(t))

	require.Equal(t, []string{"alpha"}, m.Match("the FIRST THING please"))
	require.Equal(t, []string{"beta"}, m.Match("run Beta now"))
	require.Empty(t, m.Match("nothing relevant here"))
	require.Empty(t, m.Match(""))
}

func TestIntentAutoLoadBatchesDependencies(t *testing.T) {
	cat := testCatalog(t)
	s := New(cat, nil)
	m := NewIntentMatcher(cat)

	// One message matching two distinct groups loads both, and the
	// dependency of one, in a single batch.
	newly := m.AutoLoad(s, "beta and gamma together")
	require.Equal(t, []string{"beta", "alpha", "gamma"}, newly)
}

func TestIntentAutoLoadSkipsLoadedGroups(t *testing.T) {
	cat := testCatalog(t)
	s := New(cat, nil)
	m := NewIntentMatcher(cat)

	_, err := s.LoadGroup("gamma")
	require.NoError(t, err)
	require.Empty(t, m.AutoLoad(s, "gamma again"))
}

func TestIntentMatcherIgnoresAlwaysLoaded(t *testing.T) {
	m := NewIntentMatcher(testCatalog(t))
	require.Empty(t, m.Match("core"))
}
