package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/jdotsun/hierarchical-config-demo/internal/application"
	"github.com/jdotsun/hierarchical-config-demo/internal/config"
	"github.com/jdotsun/hierarchical-config-demo/internal/logging"
)

const (
	commandServe = "serve"
	commandSetup = "setup"
)

var signalNotify = signal.Notify

// invocation is a parsed command line.
type invocation struct {
	command   string
	drop      bool
	overrides *config.CLIOverrides
}

func parseArgs(args []string) (invocation, error) {
	app := kingpin.New("hierconfig", "Hierarchical configuration service - resolves config values across prioritized scopes")
	configFile := app.Flag("config", "Path to YAML configuration file").String()
	port := app.Flag("port", "HTTP port exposed by the service").String()
	logLevel := app.Flag("log-level", "Log level (debug, info, warn, error)").String()
	dbDriver := app.Flag("database-driver", "Persistence backend: memory, postgres or sqlite").String()
	dbURL := app.Flag("database-url", "PostgreSQL connection URL").String()
	sqlitePath := app.Flag("sqlite-path", "SQLite database file").String()
	seedFile := app.Flag("seed-file", "YAML file with scope types, config items and values to seed").String()
	rateLimitRPS := app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurst := app.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	app.Command(commandServe, "Run the HTTP API").Default()
	setup := app.Command(commandSetup, "Create the database schema and seed it")
	drop := setup.Flag("drop", "Drop existing tables before creating them").Bool()

	command, err := app.Parse(args)
	if err != nil {
		return invocation{}, err
	}

	overrides := &config.CLIOverrides{ConfigFile: *configFile}
	for _, f := range []struct {
		value  *string
		target **string
	}{
		{port, &overrides.Port},
		{logLevel, &overrides.LogLevel},
		{dbDriver, &overrides.DatabaseDriver},
		{dbURL, &overrides.DatabaseURL},
		{sqlitePath, &overrides.SQLitePath},
		{seedFile, &overrides.SeedFile},
	} {
		if *f.value != "" {
			*f.target = f.value
		}
	}
	if *rateLimitRPS >= 0 {
		overrides.RateLimitRPS = rateLimitRPS
	}
	if *rateLimitBurst >= 0 {
		overrides.RateLimitBurst = rateLimitBurst
	}

	return invocation{command: command, drop: *drop, overrides: overrides}, nil
}

func main() {
	inv, err := parseArgs(os.Args[1:])
	kingpin.FatalIfError(err, "")

	cfg, err := config.Load(inv.overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()

	if inv.command == commandSetup {
		if err := application.Setup(ctx, cfg, inv.drop, logger); err != nil {
			logger.Fatal("database setup failed", zap.Error(err))
		}
		return
	}

	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	waitForSignal()
	shutdown(app, cfg.ShutdownGracePeriod, logger)
}

// service is the part of application.App that shutdown drives.
type service interface {
	Server() *http.Server
	Close() error
}

func waitForSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown drains in-flight requests for up to timeout, forcing the listener
// closed once it elapses, and then releases the persistence backend.
func shutdown(svc service, timeout time.Duration, logger *zap.Logger) {
	logger.Info("shutting down server", zap.Duration("grace_period", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	server := svc.Server()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed, closing open connections", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}

	if err := svc.Close(); err != nil {
		logger.Error("failed to release persistence backend", zap.Error(err))
		return
	}
	logger.Info("persistence backend released")
}
