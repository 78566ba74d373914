package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/catalog"
)

func newResolver(t *testing.T, settings string) *Resolver {
	t.Helper()
	path := ""
	if settings != "" {
		path = filepath.Join(t.TempDir(), domain.SettingsFileName)
		require.NoError(t, os.WriteFile(path, []byte(settings), 0o600))
	}
	return NewResolver(catalog.Builtin(), path, zaptest.NewLogger(t))
}

func TestResolveFlagWins(t *testing.T) {
	t.Setenv(domain.EnvEnabledGroups, "browser")
	r := newResolver(t, "")

	sel := r.Resolve("memory, screen")
	require.NotNil(t, sel)
	require.Equal(t, domain.ProfileSourceFlag, sel.Source)
	require.Equal(t, []string{"memory", "screen"}, sel.Groups)
}

func TestResolveEnvFallback(t *testing.T) {
	t.Setenv(domain.EnvEnabledGroups, "n8n")
	r := newResolver(t, "")

	sel := r.Resolve("")
	require.NotNil(t, sel)
	require.Equal(t, domain.ProfileSourceEnv, sel.Source)
	require.Equal(t, []string{"n8n"}, sel.Groups)
}

func TestResolveSettingsFallback(t *testing.T) {
	t.Setenv(domain.EnvEnabledGroups, "")
	r := newResolver(t, `{
		"ai": {
			"toolProfile": "minimal",
			"toolProfiles": {
				"minimal": {"groups": ["core", "meta"]},
				"full": {"groups": ["memory", "browser"]}
			}
		}
	}`)

	sel := r.Resolve("")
	require.NotNil(t, sel)
	require.Equal(t, domain.ProfileSourceSettings, sel.Source)
	require.Equal(t, []string{"core", "meta"}, sel.Groups)
}

func TestResolveUnknownGroupsFiltered(t *testing.T) {
	r := newResolver(t, "")

	sel := r.Resolve("memory,bogus")
	require.NotNil(t, sel)
	require.Equal(t, []string{"memory"}, sel.Groups)
}

func TestResolveAllUnknownFallsThrough(t *testing.T) {
	t.Setenv(domain.EnvEnabledGroups, "screen")
	r := newResolver(t, "")

	sel := r.Resolve("bogus,also_bogus")
	require.NotNil(t, sel)
	require.Equal(t, domain.ProfileSourceEnv, sel.Source)
}

func TestResolveNoProfile(t *testing.T) {
	t.Setenv(domain.EnvEnabledGroups, "")
	r := newResolver(t, "")
	require.Nil(t, r.Resolve(""))
}

func TestResolveMalformedSettingsDegrades(t *testing.T) {
	t.Setenv(domain.EnvEnabledGroups, "")
	r := newResolver(t, `{not json`)
	require.Nil(t, r.Resolve(""))
}

func TestResolveMissingProfileNameDegrades(t *testing.T) {
	t.Setenv(domain.EnvEnabledGroups, "")
	r := newResolver(t, `{
		"ai": {
			"toolProfile": "gone",
			"toolProfiles": {"minimal": {"groups": ["core"]}}
		}
	}`)
	require.Nil(t, r.Resolve(""))
}
