package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jdotsun/hierarchical-config-demo/internal/api"
	"github.com/jdotsun/hierarchical-config-demo/internal/config"
	"github.com/jdotsun/hierarchical-config-demo/internal/gateway"
	"github.com/jdotsun/hierarchical-config-demo/internal/gateway/sqlstore"
	"github.com/jdotsun/hierarchical-config-demo/internal/metrics"
	"github.com/jdotsun/hierarchical-config-demo/internal/resolver"
	"github.com/jdotsun/hierarchical-config-demo/internal/seed"
	"github.com/jdotsun/hierarchical-config-demo/internal/storage"
)

// ErrSetupRequiresDatabase is returned when setup is run against the in-memory driver.
var ErrSetupRequiresDatabase = errors.New("setup requires the postgres or sqlite driver")

// App encapsulates the application dependencies and HTTP server.
type App struct {
	gateway  gateway.Gateway
	storage  *storage.Storage
	resolver resolver.Resolver
	metrics  *metrics.Metrics
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided
// configuration: it opens and migrates the database, warms the overlays from
// it and applies the seed data.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	gw, err := OpenGateway(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	app, err := build(ctx, cfg, gw, logger)
	if err != nil {
		_ = gw.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, cfg config.Config, gw gateway.Gateway, logger *zap.Logger) (*App, error) {
	var m *metrics.Metrics
	storageOpts := []storage.Option{storage.WithLogger(logger)}
	resolverOpts := []resolver.Option{resolver.WithLogger(logger)}
	routerOpts := []api.RouterOption{
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	if cfg.EnableMetrics {
		m = metrics.New()
		storageOpts = append(storageOpts, storage.WithFailureObserver(m))
		resolverOpts = append(resolverOpts, resolver.WithObserver(m))
		routerOpts = append(routerOpts, api.WithRequestObserver(m))
	}

	store := storage.New(gw, storageOpts...)
	store.WarmUp(ctx)

	data, err := loadSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	if err := seed.Apply(ctx, store, data, logger); err != nil {
		return nil, fmt.Errorf("apply seed data: %w", err)
	}

	res := resolver.New(store.Scopes(), store.Items(), store.Values(), resolverOpts...)
	handler := api.NewHandler(store, res, api.WithHandlerLogger(logger))
	apiRouter := api.NewRouter(handler, logger, routerOpts...)

	var metricsHandler http.Handler
	if m != nil {
		metricsHandler = m.Handler()
	}

	return &App{
		gateway:  gw,
		storage:  store,
		resolver: res,
		metrics:  m,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter, metricsHandler)),
	}, nil
}

// OpenGateway opens the persistence backend selected by cfg and applies the
// schema migrations. The memory driver persists nothing.
func OpenGateway(cfg config.DatabaseConfig, logger *zap.Logger) (gateway.Gateway, error) {
	store, err := openSQLStore(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		logger.Info("using in-memory configuration store")
		return gateway.Nop{}, nil
	}

	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database ready", zap.String("dialect", string(store.Dialect())))
	return store, nil
}

// Setup prepares the database schema and seeds it. With drop set the schema
// is rebuilt from scratch first.
func Setup(ctx context.Context, cfg config.Config, drop bool, logger *zap.Logger) error {
	store, err := openSQLStore(cfg.Database)
	if err != nil {
		return err
	}
	if store == nil {
		return ErrSetupRequiresDatabase
	}
	defer store.Close()

	if drop {
		logger.Warn("dropping existing configuration tables")
		err = store.Reset()
	} else {
		err = store.Migrate()
	}
	if err != nil {
		return fmt.Errorf("prepare schema: %w", err)
	}

	data, err := loadSeed(cfg.SeedFile)
	if err != nil {
		return err
	}
	st := storage.New(store, storage.WithLogger(logger))
	st.WarmUp(ctx)
	if err := seed.Apply(ctx, st, data, logger); err != nil {
		return fmt.Errorf("apply seed data: %w", err)
	}

	logger.Info("database setup complete", zap.String("dialect", string(store.Dialect())), zap.Bool("dropped", drop))
	return nil
}

func openSQLStore(cfg config.DatabaseConfig) (*sqlstore.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return nil, nil
	case config.DriverPostgres:
		store, err := sqlstore.OpenPostgres(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	case config.DriverSQLite:
		store, err := sqlstore.OpenSQLite(sqlstore.SQLiteConfig{
			Path:        cfg.Path,
			BusyTimeout: cfg.BusyTimeout,
			WALMode:     cfg.WALMode,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func loadSeed(path string) (seed.Data, error) {
	if path == "" {
		return seed.Default(), nil
	}

	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			if resolved, rerr := resolveProjectPath(path); rerr == nil {
				path = resolved
			}
		}
	}

	data, err := seed.LoadFile(path)
	if err != nil {
		return seed.Data{}, fmt.Errorf("load seed file: %w", err)
	}
	return data, nil
}

// BuildRootHandler routes API requests and, when metricsHandler is non-nil,
// exposes it under /metrics.
func BuildRootHandler(apiHandler, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Storage returns the overlays backing the API.
func (a *App) Storage() *storage.Storage {
	return a.storage
}

// Resolver returns the resolver serving /api/resolve.
func (a *App) Resolver() resolver.Resolver {
	return a.resolver
}

// Metrics returns the Prometheus collectors, or nil when metrics are disabled.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Close releases the persistence backend.
func (a *App) Close() error {
	return a.gateway.Close()
}

// resolveProjectPath locates a file or directory relative to the project root by walking up the directory tree.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
