package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"taskManager/internal/config"
	"taskManager/internal/handlers"
	"taskManager/internal/logger"
	"taskManager/internal/repository/task/inmemory"
	"taskManager/internal/repository/task/postgres"
	"taskManager/internal/repository/task/sqlite"
	"taskManager/internal/service"
	"taskManager/internal/telemetry"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type App struct {
	config     *config.Config
	server     *http.Server
	handler    http.Handler
	repository service.TaskRepository
	service    handlers.Service
	shutdowns  []func() // run in reverse order on shutdown

	traceWriter io.Writer // span output; nil means stdout
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: flushing logs")
		logger.Sync()
	})

	tracerProvider, err := a.setupTracing()
	if err != nil {
		a.Shutdown()
		return nil, err
	}

	repository, err := a.openRepository(ctx)
	if err != nil {
		a.Shutdown()
		return nil, err
	}
	a.repository = repository
	a.service = service.NewTaskService(repository)

	a.handler = handlers.NewRouter(handlers.NewTaskHandler(a.service), handlers.RouterOptions{
		RequestTimeout: a.config.Server.RequestTimeout,
		RateLimitRPM:   a.config.Server.RateLimitRPM,
		AllowedOrigins: a.config.Server.AllowedOrigins,
		TracerProvider: tracerProvider,
	})

	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("App: initialized",
		zap.String("repository", a.config.Repository.Type),
		zap.String("addr", a.server.Addr))
	return a, nil
}

// setupTracing returns nil when tracing is disabled, leaving the router on
// the global no-op provider.
func (a *App) setupTracing() (trace.TracerProvider, error) {
	if !a.config.Tracing.Enabled {
		return nil, nil
	}

	provider, shutdown, err := telemetry.Setup(telemetry.Options{
		ServiceName: a.config.Tracing.ServiceName,
		Writer:      a.traceWriter,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: flushing spans")
		shutdown()
	})

	logger.Info("App: tracing enabled", zap.String("service_name", a.config.Tracing.ServiceName))
	return provider, nil
}

func (a *App) openRepository(ctx context.Context) (service.TaskRepository, error) {
	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		storage, err := postgres.New(ctx, a.config.Database.URL, postgres.PoolOptions{
			MaxConns:        a.config.Database.MaxConnections,
			MinConns:        a.config.Database.MinConnections,
			MaxConnIdleTime: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.shutdowns = append(a.shutdowns, storage.Close)

		if err := storage.CreateSchema(ctx); err != nil {
			return nil, err
		}
		return storage, nil

	case config.RepositorySQLite:
		storage, err := sqlite.New(a.config.SQLitePath(), a.config.Database.Debug)
		if err != nil {
			return nil, err
		}
		a.shutdowns = append(a.shutdowns, storage.Close)

		if err := storage.CreateSchema(ctx); err != nil {
			return nil, err
		}
		return storage, nil

	case config.RepositoryInMemory:
		return inmemory.NewTaskStorage(), nil
	}

	return nil, fmt.Errorf("unknown repository type %q", a.config.Repository.Type)
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves until ctx is cancelled or the server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	defer a.Shutdown()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("App: server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("App: server failed", err)
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("App: shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("App: forced shutdown", err)
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("App: server stopped")
	return nil
}

func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
