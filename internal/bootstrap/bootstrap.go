package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	hclog "github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	hostoutadapter "trackhost/internal/modules/host/adapter/out"
	hostservice "trackhost/internal/modules/host/service"
	plugininadapter "trackhost/internal/modules/plugin/adapter/in"
	pluginoutadapter "trackhost/internal/modules/plugin/adapter/out"
	plugindomain "trackhost/internal/modules/plugin/domain"
	pluginservice "trackhost/internal/modules/plugin/service"
	pluginusecase "trackhost/internal/modules/plugin/usecase"
	"trackhost/internal/platform/clock"
	"trackhost/internal/platform/config"
	"trackhost/internal/platform/id"
	"trackhost/internal/platform/metrics"
	"trackhost/internal/platform/tx"
	uiapp "trackhost/internal/ui/app"
)

const (
	localizationCacheSize = 64
	closeTimeout          = 10 * time.Second
)

type App struct {
	PluginCLI plugininadapter.CLIHandler
	Host      *hostservice.HostService
	Metrics   *metrics.Metrics
	Config    config.Config
	Logger    hclog.Logger

	stopper  *hostoutadapter.CancelStopper
	settings *pluginoutadapter.SQLiteSettingsStore
}

func New(cfg config.Config, logger hclog.Logger) (*App, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	m := metrics.New()

	settings, err := pluginoutadapter.NewSQLiteSettingsStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	localizer, err := hostoutadapter.NewYAMLLocalizer(cfg.LocalizationRoot, cfg.Language, localizationCacheSize)
	if err != nil {
		_ = settings.Close()
		return nil, fmt.Errorf("new localizer: %w", err)
	}

	poses := &hostoutadapter.PluginPoseSource{}
	stopper := hostoutadapter.NewCancelStopper(logger.Named("host"))
	sink := hostoutadapter.NewLogSink(logger)
	host := hostservice.NewHostService(hostservice.Dependencies{
		Sounds:    sink,
		Notifier:  sink,
		Crash:     hostoutadapter.NewExecCrashReporter(cfg.CrashHandler, logger),
		Localizer: localizer,
		Poses:     poses,
		Stopper:   stopper,
		Logger:    logger,
	})

	loader := pluginoutadapter.NewIsolatedLoader(pluginoutadapter.LoaderOptions{
		DependencyManifest: cfg.DependencyManifest,
		StartTimeout:       cfg.Timeouts.Start,
		CallTimeout:        cfg.Timeouts.Call,
		Logger:             logger.Named("loader"),
		Host:               host,
	})

	registry := pluginservice.NewRegistry()
	governor := pluginservice.NewGovernor(
		pluginoutadapter.NewSettingsEnablementStore(settings),
		&tx.LockManager{},
		registry,
		plugindomain.FallbackPolicy{
			plugindomain.KindDevice:  cfg.Fallback.Device,
			plugindomain.KindService: cfg.Fallback.Service,
		},
		logger,
		m,
	)
	if err := governor.Load(context.Background()); err != nil {
		_ = settings.Close()
		return nil, fmt.Errorf("load enablement: %w", err)
	}

	clk := clock.SystemClock{}
	discoverer := pluginservice.NewDiscoverer(loader, pluginservice.DiscoveryOptions{
		FilePattern:        cfg.FilePattern,
		PluginPrefix:       cfg.PluginPrefix,
		DependencyManifest: cfg.DependencyManifest,
		HostOwnedFiles:     cfg.HostOwnedFiles,
		CheckTimeout:       cfg.Timeouts.Call,
	}, clk, logger, m)
	driver := pluginservice.NewDriver(registry, governor, pluginservice.DriverOptions{
		TickInterval: cfg.TickInterval,
	}, logger, m)

	pluginSvc := pluginservice.NewPluginService(discoverer, registry, governor, driver, id.UUID{}, clk, pluginservice.Options{
		Roots: cfg.PluginRoots,
		Facade: pluginservice.FacadeOptions{
			CallTimeout:  cfg.Timeouts.Call,
			ReplyTimeout: cfg.Timeouts.Reply,
			Logger:       logger.Named("facade"),
			Metrics:      m,
		},
	}, logger)
	pluginUC := pluginusecase.NewInteractor(pluginSvc)
	poses.Bind(pluginUC)

	return &App{
		PluginCLI: plugininadapter.NewCLIHandler(pluginUC),
		Host:      host,
		Metrics:   m,
		Config:    cfg,
		Logger:    logger,
		stopper:   stopper,
		settings:  settings,
	}, nil
}

// Run drives the plugins until ctx ends or a plugin requests exit. A non-empty
// metricsAddr also serves /metrics for the lifetime of the loop.
func (a *App) Run(ctx context.Context, metricsAddr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.stopper.Bind(cancel)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return a.PluginCLI.Run(gctx)
	})
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.Metrics.Handler())
		server := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			a.Logger.Info("serving metrics", "addr", metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), closeTimeout)
			defer done()
			return server.Shutdown(shutdownCtx)
		})
	}
	err := g.Wait()
	if reason := a.stopper.Reason(); reason != "" {
		a.Logger.Info("host stopped on plugin request", "reason", reason)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ExitReason is the message of the plugin exit request that stopped Run, if any.
func (a *App) ExitReason() string {
	return a.stopper.Reason()
}

func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	err := a.PluginCLI.Close(ctx)
	pluginoutadapter.CleanupProcesses()
	return errors.Join(err, a.settings.Close())
}

// RunTUI shows the plugin UI while the driver loop runs in the background.
func RunTUI(ctx context.Context, app *App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		err := app.Run(ctx, "")
		cancel()
		runErr <- err
	}()

	model := uiapp.NewModel(app.PluginCLI)
	defer model.Close()
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		err = nil
	}
	cancel()
	return errors.Join(err, <-runErr)
}
