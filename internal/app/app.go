// Package app is the composition root: it opens the configured store, builds
// the services and exposes them to the HTTP server and the operator console.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"cabdispatch/internal/api"
	"cabdispatch/internal/api/handlers"
	"cabdispatch/internal/config"
	"cabdispatch/internal/events"
	"cabdispatch/internal/metrics"
	"cabdispatch/internal/repository"
	"cabdispatch/internal/repository/filestore"
	"cabdispatch/internal/repository/memory"
	"cabdispatch/internal/repository/postgres"
	"cabdispatch/internal/repository/redisstore"
	"cabdispatch/internal/services"
)

// App wires the services, the HTTP engine and the backends they share.
type App struct {
	Fleet    *services.FleetService
	Dispatch *services.DispatchService
	Insights *services.InsightsService
	Metrics  *metrics.Metrics

	cfg     *config.Config
	logger  *slog.Logger
	fleet   *repository.Fleet
	engine  *gin.Engine
	closers []func() error
}

// New opens every backend cfg names. On error, whatever was already opened is
// closed again.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger.With("component", "app")}
	if err := app.open(ctx, logger); err != nil {
		if cerr := app.Close(); cerr != nil {
			app.logger.WarnContext(ctx, "app_cleanup_failed", "error", cerr)
		}
		return nil, err
	}

	app.logger.InfoContext(ctx, "app_ready",
		"store", cfg.Store.Driver,
		"events", cfg.Events.AMQPURL != "",
	)
	return app, nil
}

func (a *App) open(ctx context.Context, logger *slog.Logger) error {
	store, locks, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.fleet = repository.NewFleet(store, logger)
	a.closers = append(a.closers, a.fleet.Close)

	a.Metrics = metrics.New()
	notifier := services.MultiNotifier{services.NewNotificationService(logger), a.Metrics}
	if a.cfg.Events.AMQPURL != "" {
		pub, err := events.Dial(a.cfg.Events.AMQPURL, a.cfg.Events.Exchange, a.cfg.Events.PublishTimeout, logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pub.Close)
		notifier = append(notifier, pub)
	}

	a.Dispatch = services.NewDispatchService(a.cfg, a.fleet, locks, notifier, logger)
	a.Fleet = services.NewFleetService(a.cfg, a.fleet, a.Dispatch, locks, logger)
	a.Insights = services.NewInsightsService(a.fleet, logger)

	a.engine = a.newEngine(logger)
	return nil
}

func (a *App) openStore(ctx context.Context) (repository.RecordStore, repository.LockManager, error) {
	cfg := a.cfg.Store
	memLocks := func() repository.LockManager {
		lm := memory.NewLockManager(a.cfg.Dispatch.LockSweepInterval)
		a.closers = append(a.closers, func() error { lm.Stop(); return nil })
		return lm
	}

	switch cfg.Driver {
	case config.StoreMemory:
		return memory.NewStore(), memLocks(), nil

	case config.StoreFile:
		store, err := filestore.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return store, memLocks(), nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return redisstore.NewStore(client, cfg.RedisPrefix, cfg.RedisMaxRetries),
			redisstore.NewLockManager(client, cfg.RedisPrefix), nil

	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewStore(pool), memLocks(), nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func (a *App) newEngine(logger *slog.Logger) *gin.Engine {
	router := api.NewRouter(
		handlers.NewCabHandler(a.Fleet, a.Dispatch),
		handlers.NewTripHandler(a.Fleet, a.Dispatch),
		handlers.NewCarHandler(a.Fleet),
		handlers.NewDriverHandler(a.Fleet),
		handlers.NewLocationHandler(a.Fleet),
		handlers.NewInsightsHandler(a.Insights),
		logger,
	)
	engine := gin.New()
	engine.Use(gin.Recovery(), a.Metrics.Middleware())
	router.Setup(engine)
	engine.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	return engine
}

// Handler is the HTTP API including /metrics.
func (a *App) Handler() http.Handler {
	return a.engine
}

// ListenAndServe serves the API on the configured port until ctx is done.
func (a *App) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Port, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves the API on ln until ctx is done, then drains in-flight
// requests for at most ShutdownTimeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.engine,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.InfoContext(ctx, "http_listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		a.logger.InfoContext(shutdownCtx, "http_shutting_down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases every backend in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
