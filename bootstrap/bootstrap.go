// Package bootstrap wires configuration, spec sources, the operation
// registry and the HTTP server into a runnable application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/specgate/adapters/clock"
	"github.com/artpar/specgate/adapters/fsspec"
	apihttp "github.com/artpar/specgate/adapters/http"
	"github.com/artpar/specgate/adapters/idgen"
	"github.com/artpar/specgate/adapters/metrics"
	"github.com/artpar/specgate/adapters/sqlite"
	"github.com/artpar/specgate/apispec"
	"github.com/artpar/specgate/config"
	"github.com/artpar/specgate/core/registry"
	"github.com/artpar/specgate/core/specload"
	"github.com/artpar/specgate/ports"
)

// Options configures application initialization.
type Options struct {
	// ConfigPath is read when it exists; otherwise configuration comes from
	// defaults and SPECGATE_* variables.
	ConfigPath string
	// Config, when set, is used as is and ConfigPath is only watched.
	Config *config.Config
	// Logger overrides the logger built from the logging config.
	Logger *zerolog.Logger
	// Version is reported by the version endpoint.
	Version string
}

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Metrics    *metrics.Collector
	Registry   *registry.Registry
	Loader     *specload.Loader
	DB         *sqlite.DB
	SpecStore  *sqlite.SpecStore
	HTTPServer *http.Server

	cfgMu sync.RWMutex
	cfg   *config.Config

	promRegistry *prometheus.Registry
	dispatcher   *apihttp.Dispatcher
	holder       *config.Holder
	handlers     *handlerSet
	fileSources  []*fsspec.Source
}

// New creates and initializes the application. Handlers are not registered
// until RegisterHandlers or Run is called.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.LoadWithFallback(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	logger := setupLogger(cfg.Logging)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger.Info().Msg("initializing specgate")

	a := &App{
		Logger: logger,
		cfg:    cfg,
	}

	a.promRegistry = prometheus.NewRegistry()
	a.promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewWithRegistry(a.promRegistry)
	a.Registry = registry.New(logger, registry.WithMetrics(a.Metrics))

	if err := a.initSpecSources(); err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("init spec sources: %w", err)
	}
	a.handlers = newHandlerSet(a.Registry, a.Loader, logger)

	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			holder, err := config.NewHolder(opts.ConfigPath, logger, config.WithReloadMetrics(a.Metrics))
			if err != nil {
				a.Shutdown()
				return nil, err
			}
			a.holder = holder
			holder.OnChange(a.applyConfig)
		}
	}

	a.initHTTPServer(opts.Version)
	return a, nil
}

// initSpecSources builds the loader over the spec directories, the spec
// database and the embedded specs, in that order.
func (a *App) initSpecSources() error {
	var sources []ports.SpecSource
	for _, dir := range a.cfg.Specs.Dirs {
		src := fsspec.Dir(dir)
		a.fileSources = append(a.fileSources, src)
		sources = append(sources, src)
	}

	if a.cfg.Specs.Database != "" {
		db, err := sqlite.Open(a.cfg.Specs.Database)
		if err != nil {
			return err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		a.DB = db
		a.SpecStore = sqlite.NewSpecStore(db, idgen.UUID{}, clock.Real{})
		sources = append(sources, a.SpecStore)
	}

	embedded := fsspec.New(apispec.FS, "embedded")
	a.fileSources = append(a.fileSources, embedded)
	sources = append(sources, embedded)
	a.Loader = specload.New(a.Logger, sources, specload.WithCopyDepth(a.cfg.Specs.CopyDepth))
	return nil
}

func (a *App) initHTTPServer(version string) {
	a.dispatcher = apihttp.NewDispatcher(a.Registry, a.Logger, apihttp.DispatcherConfig{
		BasePath:         a.cfg.Server.BasePath,
		ValidateCommands: a.cfg.Commands.ValidateEnabled(),
		MaxBodyBytes:     a.cfg.Server.MaxBodyBytes,
		Metrics:          a.Metrics,
	})

	routerCfg := apihttp.RouterConfig{
		MetricsPath:    a.cfg.Metrics.Path,
		RequestTimeout: a.cfg.Server.WriteTimeout,
		Version:        version,
	}
	if a.cfg.Metrics.Enabled {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{})
	}

	router := apihttp.NewRouter(a.dispatcher, apihttp.NewHealthHandler(a), a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}
}

// Config returns the current configuration. It changes when a reload
// succeeds.
func (a *App) Config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// Handler returns the HTTP handler of the application.
func (a *App) Handler() http.Handler {
	return a.HTTPServer.Handler
}

// HealthCheck reports the application unready until an operation is bound.
func (a *App) HealthCheck(ctx context.Context) error {
	if len(a.Registry.Methods()) == 0 {
		return errors.New("no operations registered")
	}
	return nil
}

// RegisterHandlers registers every configured handler. A handler that fails
// to register is logged and skipped; the failures are returned joined.
func (a *App) RegisterHandlers(ctx context.Context) error {
	return a.handlers.registerAll(ctx, a.Config().Handlers)
}

// applyConfig is called after a successful config reload.
func (a *App) applyConfig(cfg *config.Config) {
	a.cfgMu.Lock()
	a.cfg = cfg
	a.cfgMu.Unlock()

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	a.dispatcher.SetValidateCommands(cfg.Commands.ValidateEnabled())

	// Re-registration replaces the bindings of every handler still
	// configured. Routes of removed handlers stay bound until restart.
	if err := a.handlers.registerAll(context.Background(), cfg.Handlers); err != nil {
		a.Logger.Error().Err(err).Msg("re-registering handlers after reload")
	}
}

// Run registers the handlers, starts the HTTP server and blocks until
// SIGINT or SIGTERM.
func (a *App) Run() error {
	if err := a.RegisterHandlers(context.Background()); err != nil {
		a.Logger.Warn().Err(err).Msg("some handlers failed to register")
	}

	if a.holder != nil {
		a.holder.WatchSignals()
		if err := a.holder.Watch(); err != nil {
			a.Logger.Warn().Err(err).Msg("config watch disabled")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Str("base_path", a.dispatcher.BasePath()).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
