package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/duihost"
	"github.com/GoCodeAlone/duihost/devserver"
	"github.com/GoCodeAlone/duihost/feeders"
	"github.com/GoCodeAlone/duihost/internal/reload"
	"github.com/GoCodeAlone/duihost/registry"
	"github.com/GoCodeAlone/duihost/services"
	"github.com/GoCodeAlone/duihost/shell"
	"github.com/GoCodeAlone/duihost/uiruntime"
)

// RunOptions holds the flags of the run command.
type RunOptions struct {
	ConfigPath string
	AccessKey  string
	Env        string
	Flavor     string
	BaseURL    string
	DSLFile    string
	Dev        bool
	Watch      []string
	DevAddr    string
	Countdown  int
	LogLevel   string
	LogFormat  string
	LogFile    string
	Headless   bool
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	return newRunCommand(&RunOptions{})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the runtime and its presentation shell",
		Long: `Start the runtime and its presentation shell.

Settings are read from the config file, then DUIHOST_* environment variables,
then flags. With --dev, --watch paths and the dev server trigger hot reloads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := duihost.LoadConfigFrom(opts.ConfigPath,
				feeders.NewEnvFeeder(duihost.EnvPrefix),
				flagFeeder{cmd: cmd, opts: opts},
			)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts.Headless)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml, .toml or .json)")
	f.StringVar(&opts.AccessKey, "access-key", "", "runtime access key")
	f.StringVar(&opts.Env, "env", "", "runtime environment (debug|staging|production)")
	f.StringVar(&opts.Flavor, "flavor", "", "build flavor (debug|staging|release)")
	f.StringVar(&opts.BaseURL, "base-url", "", "override the runtime backend URL")
	f.StringVar(&opts.DSLFile, "dsl", "", "load the declarative config from a local file")
	f.BoolVar(&opts.Dev, "dev", false, "enable development features")
	f.StringSliceVar(&opts.Watch, "watch", nil, "paths whose changes trigger a hot reload (with --dev)")
	f.StringVar(&opts.DevAddr, "dev-addr", "", "dev server listen address, e.g. :7070 (with --dev)")
	f.IntVar(&opts.Countdown, "countdown", 0, "splash countdown ticks")
	f.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	f.StringVar(&opts.LogFormat, "log-format", "", "log format (json|text)")
	f.StringVar(&opts.LogFile, "log-file", "", "write logs to this file")
	f.BoolVar(&opts.Headless, "headless", false, "run without the terminal UI")

	return cmd
}

// flagFeeder applies explicitly set flags on top of file and environment
// configuration.
type flagFeeder struct {
	cmd  *cobra.Command
	opts *RunOptions
}

func (f flagFeeder) Feed(target interface{}) error {
	cfg, ok := target.(*duihost.Config)
	if !ok {
		return fmt.Errorf("flag feeder: unsupported target %T", target)
	}
	changed := f.cmd.Flags().Changed
	o := f.opts
	if changed("access-key") {
		cfg.AccessKey = o.AccessKey
	}
	if changed("env") {
		cfg.Environment = o.Env
	}
	if changed("flavor") {
		cfg.Flavor = o.Flavor
	}
	if changed("base-url") {
		cfg.BaseURL = o.BaseURL
	}
	if changed("dsl") {
		cfg.DSLFile = o.DSLFile
	}
	if changed("dev") {
		cfg.Dev.Enabled = o.Dev
	}
	if changed("watch") {
		cfg.Dev.WatchPaths = o.Watch
	}
	if changed("dev-addr") {
		cfg.Dev.ServerAddr = o.DevAddr
	}
	if changed("countdown") {
		cfg.Countdown = o.Countdown
	}
	if changed("log-level") {
		cfg.Log.Level = o.LogLevel
	}
	if changed("log-format") {
		cfg.Log.Format = o.LogFormat
	}
	if changed("log-file") {
		cfg.Log.File = o.LogFile
	}
	return nil
}

// host is the wired application.
type host struct {
	cfg        *duihost.Config
	logger     *slog.Logger
	controller *duihost.Controller
	router     *duihost.Router
}

func newHost(cfg *duihost.Config, logger *slog.Logger) (*host, error) {
	manager := services.NewManager()
	state := services.NewAppState()
	factory := services.NewFactory(manager, state)

	reg, err := registry.New(manager, state, factory)
	if err != nil {
		return nil, err
	}

	factoryOpts := registry.FactoryOptions{
		Icons:       services.DefaultIcons(),
		FontFactory: services.FontMap(cfg.Fonts),
	}
	if cfg.ImageDir != "" {
		factoryOpts.Images = services.ImageDir(cfg.ImageDir)
	}

	ctrl, err := duihost.NewController(newLoader(cfg), reg,
		duihost.WithLogger(logger),
		duihost.WithCountdown(cfg.Countdown),
		duihost.WithFactoryOptions(factoryOpts),
		duihost.WithObservers(duihost.NewLoggingObserver(logger)),
	)
	if err != nil {
		return nil, err
	}

	return &host{
		cfg:        cfg,
		logger:     logger,
		controller: ctrl,
		router:     duihost.NewRouter(ctrl),
	}, nil
}

func newLoader(cfg *duihost.Config) uiruntime.Loader {
	if cfg.DSLFile != "" {
		return uiruntime.NewFileLoader(cfg.DSLFile)
	}
	return uiruntime.NewHTTPLoader()
}

func run(parent context.Context, cfg *duihost.Config, headless bool) error {
	if parent == nil {
		parent = context.Background()
	}
	logger, closer, err := newLogger(cfg.Log, !headless)
	if err != nil {
		return err
	}
	defer closer.Close()

	h, err := newHost(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Dev.Enabled && !duihost.HotReloadEnabled() {
		logger.Warn("Development mode requested but hot reload is compiled out")
	}

	h.controller.Start(ctx, cfg.RuntimeOptions())

	if headless {
		return h.runHeadless(ctx)
	}
	return h.runShell(ctx)
}

func (h *host) runHeadless(ctx context.Context) error {
	stopDev, err := h.startDev(ctx, h.controller.OnReload)
	if err != nil {
		return errors.Join(err, h.controller.Teardown())
	}

	<-ctx.Done()
	stopDev()
	return h.controller.Teardown()
}

func (h *host) runShell(ctx context.Context) error {
	model := shell.New(ctx, h.controller, h.router)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	closed := make(chan struct{})
	stopDev, err := h.startDev(ctx, shell.Trigger(program, closed))
	if err != nil {
		return errors.Join(err, h.controller.Teardown())
	}
	defer stopDev()

	_, runErr := program.Run()
	close(closed)
	if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		runErr = nil
	}
	// Quitting through the shell already tore down; this covers signals.
	return errors.Join(runErr, model.TeardownErr(), h.controller.Teardown())
}

// startDev starts the file watcher and dev server when development mode is
// on. reloadFn is what both use to request a hot reload.
func (h *host) startDev(ctx context.Context, reloadFn func(context.Context) error) (func(), error) {
	var stops []func()
	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	if !h.cfg.Dev.Enabled {
		return stopAll, nil
	}

	paths := h.cfg.Dev.WatchPaths
	if len(paths) == 0 && h.cfg.DSLFile != "" {
		paths = []string{h.cfg.DSLFile}
	}
	if len(paths) > 0 {
		w, err := reload.NewWatcher(paths, reloadFn,
			reload.WithDebounce(h.cfg.Dev.Debounce),
			reload.WithLogger(h.logger),
		)
		if err != nil {
			return stopAll, err
		}
		if err := w.Start(ctx); err != nil {
			return stopAll, err
		}
		stops = append(stops, func() {
			if err := w.Stop(); err != nil {
				h.logger.Warn("Stopping file watcher", "error", err)
			}
		})
	}

	if h.cfg.Dev.ServerAddr != "" {
		srv := devserver.New(reloadVia{Lifecycle: h.controller, reload: reloadFn}, h.router, h.logger)
		if err := srv.Start(h.cfg.Dev.ServerAddr); err != nil {
			stopAll()
			return func() {}, err
		}
		stops = append(stops, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				h.logger.Warn("Stopping dev server", "error", err)
			}
		})
	}
	return stopAll, nil
}

// reloadVia routes dev server reloads through reload instead of calling the
// controller directly.
type reloadVia struct {
	devserver.Lifecycle
	reload func(context.Context) error
}

func (r reloadVia) OnReload(ctx context.Context) error {
	if !duihost.HotReloadEnabled() {
		return duihost.ErrHotReloadDisabled
	}
	return r.reload(ctx)
}
