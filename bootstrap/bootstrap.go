// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/zerotobillion/teapot-server/adapters/clock"
	"github.com/zerotobillion/teapot-server/adapters/email"
	teapothttp "github.com/zerotobillion/teapot-server/adapters/http"
	"github.com/zerotobillion/teapot-server/adapters/idgen"
	"github.com/zerotobillion/teapot-server/adapters/memory"
	"github.com/zerotobillion/teapot-server/adapters/metrics"
	"github.com/zerotobillion/teapot-server/adapters/sqlite"
	"github.com/zerotobillion/teapot-server/app"
	"github.com/zerotobillion/teapot-server/config"
	"github.com/zerotobillion/teapot-server/ports"
	"github.com/zerotobillion/teapot-server/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	// Services
	brewService *app.BrewService

	// Adapters (for cleanup)
	eventRecorder ports.EventRecorder
	holder        *config.Holder
}

// New creates and initializes the application from a loaded config.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	logger.Info().Msg("initializing teapot server")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	// Audit event storage is optional
	if cfg.Database.DSN != "" {
		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.DB = db
		a.eventRecorder = NewBufferedEventRecorder(
			sqlite.NewEventStore(db), cfg.Events.BatchSize, cfg.Events.FlushInterval)
		logger.Info().Str("dsn", cfg.Database.DSN).Msg("audit event log enabled")
	} else {
		a.eventRecorder = NoopEventRecorder{}
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	notifier, err := email.New(email.Config{
		Mode: cfg.Notify.Mode,
		SMTP: email.SMTPConfig{
			Host:      cfg.Notify.Host,
			Port:      cfg.Notify.Port,
			Username:  cfg.Notify.Username,
			Password:  cfg.Notify.Password,
			From:      cfg.Notify.From,
			Receivers: cfg.Notify.Receivers,
			UseTLS:    true,
		},
	})
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("init notifier: %w", err)
	}

	realClock := clock.Real{}
	a.brewService = app.NewBrewService(
		app.BrewDeps{
			State:    memory.NewBrewStateStore(memory.BrewStateConfig{}),
			Traffic:  memory.NewTrafficWindow(realClock),
			Notifier: notifier,
			Events:   a.eventRecorder,
			Clock:    realClock,
			IDGen:    idgen.UUID{},
			Metrics:  a.Metrics,
			Logger:   logger,
		},
		app.BrewConfig{
			ContentType:  cfg.Brew.ContentType,
			Variants:     cfg.Brew.Variants,
			GatedVariant: cfg.Brew.GatedVariant,
			MinTraffic:   cfg.Brew.MinTraffic,
		},
	)

	a.initHTTPServer()

	return a, nil
}

// NewWithHotReload loads config from path and enables hot reload.
func NewWithHotReload(path string) (*App, error) {
	// The holder needs a logger before the app exists; derive one from
	// the loaded file.
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	holder, err := config.NewHolder(path, setupLogger(cfg.Logging))
	if err != nil {
		return nil, err
	}
	return NewWithHolder(holder)
}

// NewWithHolder creates the application and wires config hot reload:
// file watch and SIGHUP both re-apply the brew section without a
// restart.
func NewWithHolder(holder *config.Holder) (*App, error) {
	a, err := New(holder.Get())
	if err != nil {
		return nil, err
	}
	a.holder = holder

	holder.OnChange(func(cfg *config.Config) {
		a.brewService.UpdateConfig(
			cfg.Brew.ContentType, cfg.Brew.Variants, cfg.Brew.GatedVariant, cfg.Brew.MinTraffic)
		if a.Metrics != nil {
			a.Metrics.ConfigReloads.Inc()
		}
	})

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	holder.WatchSignals()

	return a, nil
}

func (a *App) initHTTPServer() {
	var brewHandler *teapothttp.BrewHandler
	if a.Metrics != nil {
		brewHandler = teapothttp.NewBrewHandlerWithMetrics(a.brewService, web.Home(), a.Logger, a.Metrics)
	} else {
		brewHandler = teapothttp.NewBrewHandler(a.brewService, web.Home(), a.Logger)
	}

	var checker teapothttp.HealthChecker
	if a.DB != nil {
		checker = dbChecker{a.DB}
	}
	healthHandler := teapothttp.NewHealthHandler(checker)

	router := teapothttp.NewRouterWithConfig(brewHandler, healthHandler, a.Logger, teapothttp.RouterConfig{
		Metrics: a.Metrics,
		Timeout: a.Config.Server.WriteTimeout,
	})

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// dbChecker reports database readiness.
type dbChecker struct {
	db *sqlite.DB
}

func (c dbChecker) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Run starts the HTTP server and blocks until interrupt or error.
func (a *App) Run() error {
	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
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

	// Stop config watching
	if a.holder != nil {
		a.holder.Stop()
	}

	// Shutdown HTTP server
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.cleanup()

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) cleanup() {
	// Flush event recorder
	if a.eventRecorder != nil {
		if err := a.eventRecorder.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("event recorder close error")
		}
	}

	// Close database
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
