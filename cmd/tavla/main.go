package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	serveradapter "github.com/hylla/tavla/internal/adapters/server"
	"github.com/hylla/tavla/internal/adapters/storage/sqlite"
	"github.com/hylla/tavla/internal/adapters/syncer"
	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/config"
	"github.com/hylla/tavla/internal/drag"
	"github.com/hylla/tavla/internal/platform"
	"github.com/hylla/tavla/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(ctx context.Context, m tea.Model) program {
	return tea.NewProgram(m, tea.WithContext(ctx))
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(ctx, root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree without fang styling.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand builds the tavla command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	opts := rootOptions{appName: platform.DefaultAppName, devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("TAVLA_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TAVLA_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:           "tavla",
		Short:         "A terminal task board with drag and drop",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	root.PersistentFlags().StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	root.PersistentFlags().BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(&opts, stdout),
		newExportCommand(&opts, stdout, stderr),
		newImportCommand(&opts, stderr),
		newServeCommand(&opts, stderr),
	)
	return root
}

func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{AppName: opts.appName, DevMode: opts.devMode})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}

func newExportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of every project and task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), *opts, "export", stderr, func(ctx context.Context, rt *appRuntime) error {
				return runExport(ctx, rt.svc, outPath, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newImportCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON snapshot into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return fmt.Errorf("--in is required")
			}
			return withRuntime(cmd.Context(), *opts, "import", stderr, func(ctx context.Context, rt *appRuntime) error {
				return runImport(ctx, rt.svc, inPath)
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	return cmd
}

func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), *opts, "serve", stderr, func(ctx context.Context, rt *appRuntime) error {
				return runServe(ctx, rt, bind)
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (defaults to server.bind)")
	return cmd
}

// appRuntime bundles the resources one command flow runs against.
type appRuntime struct {
	appName string
	cfg     config.Config
	logger  *runtimeLogger
	repo    *sqlite.Repository
	sync    *app.SyncDispatcher
	svc     *app.Service
	closers []func() error
}

// withRuntime resolves config, opens the store and runs fn.
func withRuntime(ctx context.Context, opts rootOptions, command string, stderr io.Writer, fn func(context.Context, *appRuntime) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(opts, command, stderr)
	if err != nil {
		return err
	}
	defer rt.close(stderr, command)

	rt.logger.Info("command flow start", "command", command)
	if err := fn(ctx, rt); err != nil {
		rt.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	rt.logger.Info("command flow complete", "command", command)
	return nil
}

// openRuntime resolves paths and config and opens the store.
func openRuntime(opts rootOptions, command string, stderr io.Writer) (*appRuntime, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TAVLA_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("TAVLA_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// The board owns the terminal; runtime logs go to the dev-file sink only.
		logger.SetConsoleEnabled(false)
	}
	rt := &appRuntime{appName: opts.appName, cfg: cfg, logger: logger}

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	logger.Info("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level, "sync_mode", cfg.Sync.Mode)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	rt.repo = repo
	rt.closers = append(rt.closers, repo.Close)
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	sink, closeSink, err := newSyncer(cfg.Sync)
	if err != nil {
		rt.close(stderr, command)
		return nil, fmt.Errorf("configure sync: %w", err)
	}
	if closeSink != nil {
		rt.closers = append(rt.closers, closeSink)
	}
	rt.sync = app.NewSyncDispatcher(repo, sink,
		app.WithSyncLogger(logger.Sink()),
		app.WithSyncTimeout(cfg.Sync.Timeout.Duration),
	)
	rt.svc = app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		Policy:   drag.Policy{Threshold: cfg.Drag.Threshold},
		Notifier: rt.sync,
	})
	logger.Debug("application service initialized", "threshold", cfg.Drag.Threshold, "sync_enabled", rt.sync.Enabled())
	return rt, nil
}

// close releases runtime resources in reverse order.
func (rt *appRuntime) close(stderr io.Writer, command string) {
	rt.sync.Close()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("runtime close failed", "command", command, "err", err)
		}
	}
	if closeErr := rt.logger.Close(); closeErr != nil && rt.logger.shouldLogToSink(rt.logger.consoleSink) {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
	}
}

// newSyncer builds the external sync collaborator for mode. A nil syncer
// disables sync.
func newSyncer(cfg config.SyncConfig) (app.Syncer, func() error, error) {
	switch cfg.Mode {
	case config.SyncModeOff, "":
		return nil, nil, nil
	case config.SyncModeSimulated:
		return syncer.NewSimulated(cfg.Delay.Duration), nil, nil
	case config.SyncModeHTTP:
		h, err := syncer.NewHTTP(cfg.Endpoint, nil, cfg.Timeout.Duration)
		if err != nil {
			return nil, nil, err
		}
		return h, nil, nil
	case config.SyncModeRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return syncer.NewRedis(client, cfg.RedisKey, cfg.RedisChannel), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown sync mode %q", cfg.Mode)
	}
}

// runTUI runs the board with the sync worker alongside it.
func runTUI(ctx context.Context, opts rootOptions, stderr io.Writer) error {
	return withRuntime(ctx, opts, "tui", stderr, func(ctx context.Context, rt *appRuntime) error {
		if _, err := rt.svc.EnsureDefaultProject(ctx); err != nil {
			return fmt.Errorf("ensure default project: %w", err)
		}
		if err := rt.sync.Startup(ctx); err != nil {
			rt.logger.Warn("startup sync skipped", "err", err)
		}

		m := tui.NewModel(rt.svc, tuiOptions(rt.cfg, rt.logger)...)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return rt.sync.Run(gctx)
		})
		g.Go(func() error {
			defer rt.sync.Close()
			rt.logger.Info("starting tui program loop")
			if _, err := programFactory(gctx, m).Run(); err != nil {
				rt.logger.Error("tui program terminated with error", "err", err)
				return fmt.Errorf("run tui program: %w", err)
			}
			return nil
		})
		return g.Wait()
	})
}

// tuiOptions maps persisted config values into board options.
func tuiOptions(cfg config.Config, logger *runtimeLogger) []tui.Option {
	lift := drag.LiftSpring()
	lift.FPS = cfg.Drag.FPS
	return []tui.Option{
		tui.WithBoardConfig(tui.BoardConfig{
			ShowDescription: cfg.Board.ShowDescription,
			ColumnWidth:     cfg.Board.ColumnWidth,
		}),
		tui.WithDragConfig(drag.SamplerConfig{
			TapMaxDistance: cfg.Drag.TapMaxDistance,
			PanMinDistance: cfg.Drag.PanMinDistance,
			UnitsPerCellX:  cfg.Drag.UnitsPerCellX,
			UnitsPerCellY:  cfg.Drag.UnitsPerCellY,
			LiftScale:      cfg.Drag.LiftScale,
			Lift:           lift,
			Settle: drag.SpringConfig{
				FPS:       cfg.Drag.FPS,
				Frequency: cfg.Drag.SpringFrequency,
				Damping:   cfg.Drag.SpringDamping,
			},
		}),
		tui.WithLogger(logger.Sink()),
	}
}

// runServe runs the HTTP+MCP server and the sync worker until ctx ends.
func runServe(ctx context.Context, rt *appRuntime, bind string) error {
	if strings.TrimSpace(bind) == "" {
		bind = rt.cfg.Server.Bind
	}
	if err := rt.sync.Startup(ctx); err != nil {
		rt.logger.Warn("startup sync skipped", "err", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.sync.Run(gctx)
	})
	g.Go(func() error {
		defer rt.sync.Close()
		return serveCommandRunner(gctx, serveradapter.Config{
			HTTPBind:      bind,
			APIEndpoint:   rt.cfg.Server.APIEndpoint,
			MCPEndpoint:   rt.cfg.Server.MCPEndpoint,
			ServerName:    rt.appName,
			ServerVersion: version,
		}, serveradapter.Dependencies{
			Board:  rt.svc,
			Logger: rt.logger.Sink(),
		})
	})
	return g.Wait()
}

// runExport writes the store snapshot to outPath or stdout.
func runExport(ctx context.Context, svc *app.Service, outPath string, stdout io.Writer) error {
	snap, err := svc.ExportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runImport loads a snapshot file into the store.
func runImport(ctx context.Context, svc *app.Service, inPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return fmt.Errorf("decode snapshot json: %w", err)
	}
	if err := svc.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
