package application

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/jdotsun/hierarchical-config-demo/internal/config"
	"github.com/jdotsun/hierarchical-config-demo/internal/gateway"
	"github.com/jdotsun/hierarchical-config-demo/internal/gateway/sqlstore"
	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	logger := zaptest.NewLogger(t)

	app, err := New(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	if _, ok := app.gateway.(gateway.Nop); !ok {
		t.Fatalf("expected in-memory gateway, got %T", app.gateway)
	}
	if got := app.Storage().Scopes().List(context.Background()); len(got) != 5 {
		t.Fatalf("expected seeded scope types, got %v", got)
	}
	if app.Resolver() == nil || app.Metrics() == nil {
		t.Fatalf("expected resolver and metrics to be initialized")
	}
	if _, _, err := app.Resolver().Resolve(context.Background(), "min_acct_size", nil); err != nil {
		t.Fatalf("expected seeded item to resolve, got %v", err)
	}
	rec := httptest.NewRecorder()
	app.Metrics().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `hierconfig_resolver_resolutions_total{outcome="absent"} 1`) {
		t.Fatalf("expected one absent resolution recorded")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
}

func TestNewWithoutMetrics(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.EnableMetrics = false

	app, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if app.Metrics() != nil {
		t.Fatalf("expected metrics to be disabled")
	}

	rec := httptest.NewRecorder()
	app.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected /metrics to be absent, got %d", rec.Code)
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestBuildRootHandler(t *testing.T) {
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	handler := BuildRootHandler(apiHandler, metricsHandler)

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/api/health", http.StatusNoContent},
		{"/metrics", http.StatusAccepted},
		{"/", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.want, rec.Code)
		}
	}
}

func TestNewWithSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	contents := `
config_items:
  - key: risk
    description: Risk level
    value_type: number
values:
  - config_item_key: risk
    scope_type: default
    value: "5"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	cfg := baseTestConfig(":0")
	cfg.SeedFile = path

	app, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	res, ok, err := app.Resolver().Resolve(context.Background(), "risk", model.Properties{"account": "x"})
	if err != nil || !ok || res.Value.Integer() != 5 {
		t.Fatalf("expected seeded default 5, got %+v ok=%v err=%v", res, ok, err)
	}
}

func TestNewReturnsErrorForMissingSeedFile(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.SeedFile = filepath.Join(t.TempDir(), "absent.yaml")

	if _, err := New(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for missing seed file")
	}
}

func TestNewReturnsErrorForUnknownDriver(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Database.Driver = "mongo"

	if _, err := New(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestSetupRequiresDatabase(t *testing.T) {
	err := Setup(context.Background(), baseTestConfig(":0"), false, zaptest.NewLogger(t))
	if !errors.Is(err, ErrSetupRequiresDatabase) {
		t.Fatalf("expected ErrSetupRequiresDatabase, got %v", err)
	}
}

func TestSetupSQLite(t *testing.T) {
	cfg := sqliteTestConfig(t)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	if err := Setup(ctx, cfg, false, logger); err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	store, err := sqlstore.OpenSQLite(sqlstore.SQLiteConfig{Path: cfg.Database.Path, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	scopes, err := store.LoadScopeTypes(ctx)
	if err != nil || len(scopes) != 5 {
		t.Fatalf("expected 5 seeded scope types, got %v (%v)", scopes, err)
	}
	value := model.ConfigValue{ConfigItemKey: "default_timeout", ScopeType: model.DefaultScope, Value: "30"}
	if err := store.UpsertConfigValue(ctx, value); err != nil {
		t.Fatalf("UpsertConfigValue: %v", err)
	}
	_ = store.Close()

	if err := Setup(ctx, cfg, true, logger); err != nil {
		t.Fatalf("Setup with drop returned error: %v", err)
	}

	store, err = sqlstore.OpenSQLite(sqlstore.SQLiteConfig{Path: cfg.Database.Path, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()
	values, err := store.LoadConfigValues(ctx)
	if err != nil || len(values) != 0 {
		t.Fatalf("expected dropped values, got %v (%v)", values, err)
	}
	items, err := store.LoadConfigItems(ctx)
	if err != nil || len(items) != 3 {
		t.Fatalf("expected reseeded items, got %v (%v)", items, err)
	}
}

func TestResolveProjectPathFindsGoMod(t *testing.T) {
	path, err := resolveProjectPath("go.mod")
	if err != nil {
		t.Fatalf("resolveProjectPath returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected go.mod to exist at %s: %v", path, err)
	}
}

func TestResolveProjectPathUnknownTarget(t *testing.T) {
	if _, err := resolveProjectPath("definitely-not-a-real-file"); err == nil {
		t.Fatalf("expected error for missing resource")
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                 port,
		LogLevel:             "debug",
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		EnableMetrics:        true,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
		Database:             config.DatabaseConfig{Driver: config.DriverMemory},
	}
}

func sqliteTestConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := baseTestConfig(":0")
	cfg.Database = config.DatabaseConfig{
		Driver:      config.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "config.db"),
		BusyTimeout: 5,
		WALMode:     true,
	}
	return cfg
}
