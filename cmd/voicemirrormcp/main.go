package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/bridge"
	"voicemirror/internal/infra/catalog"
	"voicemirror/internal/infra/dispatch"
	"voicemirror/internal/infra/lifecycle"
	"voicemirror/internal/infra/lockfile"
	"voicemirror/internal/infra/memstore"
	"voicemirror/internal/infra/profile"
	"voicemirror/internal/infra/server"
	"voicemirror/internal/infra/telemetry"
	"voicemirror/internal/infra/watcher"
)

const version = "0.1.0"

type serverOptions struct {
	groups       string
	dataDir      string
	settingsPath string
	bridgeSocket string
	metricsAddr  string
	logger       *zap.Logger
}

func main() {
	opts := serverOptions{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "voicemirrormcp",
		Short: "Voice Mirror tool server over MCP stdio",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// stdout carries the MCP transport; logs go to stderr only.
			cfg := zap.NewProductionConfig()
			cfg.OutputPaths = []string{"stderr"}
			cfg.ErrorOutputPaths = []string{"stderr"}
			log, err := cfg.Build()
			if err != nil {
				return err
			}
			opts.logger = log
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()
			return run(ctx, &opts)
		},
	}

	bindFlags(root.Flags(), &opts)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bindFlags(flags *pflag.FlagSet, opts *serverOptions) {
	flags.StringVar(&opts.groups, "groups", "", "comma-separated tool groups to pin (overrides "+domain.EnvEnabledGroups+")")
	flags.StringVar(&opts.dataDir, "data-dir", "", "data directory shared with the desktop app (defaults to "+domain.EnvDataDir+")")
	flags.StringVar(&opts.settingsPath, "settings", "", "path to the desktop settings file (defaults to <data-dir>/"+domain.SettingsFileName+")")
	flags.StringVar(&opts.bridgeSocket, "bridge", "", "desktop bridge socket path (defaults to "+domain.EnvBridgeSocket+")")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (disabled when empty)")
}

func run(ctx context.Context, opts *serverOptions) error {
	logger := opts.logger

	dataDir := opts.dataDir
	if dataDir == "" {
		dataDir = os.Getenv(domain.EnvDataDir)
	}
	if dataDir == "" {
		return errors.New("data directory is required: pass --data-dir or set " + domain.EnvDataDir)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	settingsPath := opts.settingsPath
	if settingsPath == "" {
		settingsPath = filepath.Join(dataDir, domain.SettingsFileName)
	}
	bridgeSocket := opts.bridgeSocket
	if bridgeSocket == "" {
		bridgeSocket = os.Getenv(domain.EnvBridgeSocket)
	}

	cat := catalog.Builtin()

	lockPath := filepath.Join(dataDir, domain.ListenerLockFileName)
	lockfile.ReclaimStale(lockPath, time.Now(), logger)

	sel := profile.NewResolver(cat, settingsPath, logger).Resolve(opts.groups)
	state := lifecycle.New(cat, sel)

	var metrics domain.Metrics = telemetry.NewNoopMetrics()
	if sel != nil {
		logger.Info("tool profile applied",
			telemetry.EventField(telemetry.EventProfileApplied),
			zap.String("source", string(sel.Source)),
			zap.Strings("groups", sel.Groups))
	}
	var metricsSrv *telemetry.MetricsServer
	if opts.metricsAddr != "" {
		metrics = telemetry.NewPrometheusMetrics(nil)
		metricsSrv = telemetry.StartMetricsServer(opts.metricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	inbox := dispatch.NewInboxStore(filepath.Join(dataDir, domain.InboxFileName))
	status := dispatch.NewStatusStore(filepath.Join(dataDir, domain.StatusFileName))
	lock := lockfile.NewListenerLock(lockPath)

	table := dispatch.NewTable()
	dispatch.NewVoiceHandlers(inbox, status, lock, logger).Register(table)

	// The memory store opens lazily: warmup runs detached and a failure
	// (stale instance still holding the file lock) only degrades the
	// memory tools until a later call gets through.
	mem := memstore.NewHandlers(filepath.Join(dataDir, domain.MemoryDBFileName), logger)
	defer mem.Close()
	mem.Register(table)
	go mem.Warm()

	bridgeClient := bridge.NewClient(bridgeSocket, logger)
	defer bridgeClient.Close()
	bridgeClient.RegisterGroups(table, cat,
		domain.GroupScreen,
		domain.GroupBrowser,
		domain.GroupN8N,
		domain.GroupDiagnostic,
		domain.GroupVoiceClone,
	)
	dispatch.NewFacadeHandlers(table).Register(table)

	session := server.NewSession(cat, state, table, metrics, logger)
	session.RegisterMetaTools()
	srv := server.New(session, version, logger)

	// Intent scanning runs off the inbox file so a fresh user message can
	// pull its tool groups in before the agent's next call.
	inboxPath := filepath.Join(dataDir, domain.InboxFileName)
	w := watcher.New(inbox, func(text string) { session.ScanText(text) }, logger)
	go func() {
		if err := w.Run(ctx, inboxPath); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("inbox watcher stopped", zap.Error(err))
		}
	}()

	if sel != nil {
		for _, g := range sel.Groups {
			metrics.ObserveGroupLoad(g, telemetry.CauseProfile)
		}
	}
	metrics.SetLoadedGroups(len(state.LoadedGroups()))
	logger.Info("capability state seeded",
		zap.Strings("groups", state.LoadedGroups()),
		zap.Bool("pinned", sel != nil))

	err := srv.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
