package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/specialistvlad/livebag/internal/ctxlog"
	"github.com/specialistvlad/livebag/internal/demo"
	"github.com/specialistvlad/livebag/internal/metrics"
	"github.com/specialistvlad/livebag/internal/registry"
	"github.com/specialistvlad/livebag/internal/reload"
	"github.com/specialistvlad/livebag/internal/tweak"
	"github.com/specialistvlad/livebag/internal/watch"
)

// Option configures an App.
type Option func(*App)

// WithExecContext sets the execution context the reload worker makes current
// on its thread.
func WithExecContext(exec reload.ExecContext) Option {
	return func(a *App) { a.exec = exec }
}

// WithClock sets the clock driving the tick loop.
func WithClock(clock clockwork.Clock) Option {
	return func(a *App) { a.clock = clock }
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx          context.Context
	outW         io.Writer
	logger       *slog.Logger
	config       *Config
	exec         reload.ExecContext
	clock        clockwork.Clock
	promRegistry *prometheus.Registry
	metrics      *metrics.Metrics
	registry     *registry.Registry
	scene        *demo.Scene
	worker       *reload.Worker
	watcher      *watch.Watcher
	bridge       *tweak.Bridge
	httpServer   *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, metrics and
// registry. Nothing is loaded or started until Run.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		ctx:          ctx,
		outW:         outW,
		logger:       logger,
		config:       cfg,
		exec:         reload.NopContext{},
		clock:        clockwork.NewRealClock(),
		promRegistry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.promRegistry.MustRegister(collectors.NewGoCollector())
	a.metrics = metrics.New(a.promRegistry)
	a.registry = registry.New(registry.WithLogger(logger), registry.WithMetrics(a.metrics))

	scene, err := demo.NewScene(a.registry, logger, cfg.Width, cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to build scene: %w", err)
	}
	a.scene = scene
	logger.Debug("Scene registered.", "groups", a.registry.Groups())

	a.worker = reload.New(a.registry,
		reload.WithExecContext(a.exec),
		reload.WithIdle(cfg.ReloadIdle),
		reload.WithLogger(logger),
		reload.WithMetrics(a.metrics),
	)
	a.bridge = tweak.New(a.registry,
		tweak.WithLogger(logger),
		tweak.WithReload(func() { a.worker.Request(cfg.DocumentPath) }),
	)

	if cfg.Watch {
		w, err := watch.New(watch.WithDebounce(cfg.Debounce), watch.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		a.watcher = w
	}
	return a, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Scene returns the scene driven by the registry.
func (a *App) Scene() *demo.Scene {
	return a.scene
}

// Bridge returns the tweak bridge.
func (a *App) Bridge() *tweak.Bridge {
	return a.bridge
}

// RequestReload queues a hot reload of the configured document.
func (a *App) RequestReload() {
	a.worker.Request(a.config.DocumentPath)
}
