// Package profile resolves the initial tool profile for a session from an
// ordered fallback chain: command-line flag, environment variable, then the
// desktop shell's settings file. Every failure degrades silently to the next
// link; the server always starts.
package profile

import (
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/catalog"
)

// settingsFile mirrors the relevant slice of the desktop shell's
// settings.json. Unknown keys are ignored.
type settingsFile struct {
	AI struct {
		ToolProfile  string `mapstructure:"toolProfile"`
		ToolProfiles map[string]struct {
			Groups []string `mapstructure:"groups"`
		} `mapstructure:"toolProfiles"`
	} `mapstructure:"ai"`
}

type Resolver struct {
	catalog      *catalog.Catalog
	settingsPath string
	logger       *zap.Logger
}

func NewResolver(cat *catalog.Catalog, settingsPath string, logger *zap.Logger) *Resolver {
	return &Resolver{
		catalog:      cat,
		settingsPath: settingsPath,
		logger:       logger.Named("profile"),
	}
}

// Resolve walks the chain with flagValue as the highest-priority link.
// Returns nil when no link yields a usable group list, which leaves the
// session unpinned with only the always-loaded groups.
func (r *Resolver) Resolve(flagValue string) *domain.ProfileSelection {
	if sel := r.fromList(flagValue, domain.ProfileSourceFlag); sel != nil {
		return sel
	}
	if sel := r.fromList(os.Getenv(domain.EnvEnabledGroups), domain.ProfileSourceEnv); sel != nil {
		return sel
	}
	return r.fromSettings()
}

// fromList parses a comma-separated group list, dropping names the catalog
// does not know. An empty result falls through to the next link.
func (r *Resolver) fromList(raw string, source domain.ProfileSource) *domain.ProfileSelection {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var groups []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if !r.catalog.Has(name) {
			r.logger.Warn("ignoring unknown group in profile",
				zap.String("group", name),
				zap.String("source", string(source)))
			continue
		}
		groups = append(groups, name)
	}
	if len(groups) == 0 {
		return nil
	}
	r.logger.Info("profile resolved",
		zap.String("source", string(source)),
		zap.Strings("groups", groups))
	return &domain.ProfileSelection{Groups: groups, Source: source}
}

func (r *Resolver) fromSettings() *domain.ProfileSelection {
	if r.settingsPath == "" {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(r.settingsPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		r.logger.Info("no usable settings file", zap.String("path", r.settingsPath), zap.Error(err))
		return nil
	}
	var settings settingsFile
	if err := v.Unmarshal(&settings); err != nil {
		r.logger.Info("settings file not parseable", zap.String("path", r.settingsPath), zap.Error(err))
		return nil
	}
	name := settings.AI.ToolProfile
	if name == "" {
		return nil
	}
	prof, ok := settings.AI.ToolProfiles[name]
	if !ok {
		r.logger.Info("active tool profile not defined in settings", zap.String("profile", name))
		return nil
	}
	return r.fromList(strings.Join(prof.Groups, ","), domain.ProfileSourceSettings)
}
