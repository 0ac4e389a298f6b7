package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultSQLitePath     = "data/config.db"
	defaultBusyTimeout    = 5
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrInvalidConfig indicates the resolved configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// DatabaseConfig selects and configures the persistence gateway.
type DatabaseConfig struct {
	Driver      string
	URL         string
	Path        string
	BusyTimeout int
	WALMode     bool
}

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	EnableMetrics        bool
	RateLimitRPS         float64
	RateLimitBurst       int
	SeedFile             string
	Database             DatabaseConfig
}

// yamlConfig represents the YAML configuration file structure. Pointer fields
// distinguish "absent" from an explicit zero.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	EnableMetrics        *bool         `yaml:"enable_metrics"`
	SeedFile             string        `yaml:"seed_file"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Database             yamlDatabase  `yaml:"database"`
}

type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlDatabase struct {
	Driver      string `yaml:"driver"`
	URL         string `yaml:"url"`
	Path        string `yaml:"path"`
	BusyTimeout *int   `yaml:"busy_timeout"`
	WALMode     *bool  `yaml:"wal_mode"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	LogLevel       *string
	DatabaseDriver *string
	DatabaseURL    *string
	SQLitePath     *string
	SeedFile       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Environment first so YAML and flags can override it.
	applyEnvConfig(&cfg)

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		EnableMetrics:        true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		Database: DatabaseConfig{
			Driver:      DriverMemory,
			Path:        defaultSQLitePath,
			BusyTimeout: defaultBusyTimeout,
			WALMode:     true,
		},
	}
}

func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.EnableMetrics != nil {
		cfg.EnableMetrics = *yamlCfg.EnableMetrics
	}
	if yamlCfg.SeedFile != "" {
		cfg.SeedFile = yamlCfg.SeedFile
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	db := yamlCfg.Database
	if db.URL != "" {
		cfg.Database.URL = db.URL
		cfg.Database.Driver = DriverPostgres
	}
	if db.Driver != "" {
		cfg.Database.Driver = db.Driver
	}
	if db.Path != "" {
		cfg.Database.Path = db.Path
	}
	if db.BusyTimeout != nil {
		cfg.Database.BusyTimeout = *db.BusyTimeout
	}
	if db.WALMode != nil {
		cfg.Database.WALMode = *db.WALMode
	}
	return nil
}

func applyEnvConfig(cfg *Config) {
	if port := env("PORT"); port != "" {
		cfg.Port = port
	}
	if level := env("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}
	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if url := env("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
		cfg.Database.Driver = DriverPostgres
	}
	if driver := env("DATABASE_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}
	if path := env("SQLITE_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if seed := env("SEED_FILE"); seed != "" {
		cfg.SeedFile = seed
	}
}

func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	setString(&cfg.Port, overrides.Port)
	setString(&cfg.LogLevel, overrides.LogLevel)
	setString(&cfg.SeedFile, overrides.SeedFile)
	setString(&cfg.Database.Path, overrides.SQLitePath)

	if overrides.DatabaseURL != nil && *overrides.DatabaseURL != "" {
		cfg.Database.URL = *overrides.DatabaseURL
		cfg.Database.Driver = DriverPostgres
	}
	setString(&cfg.Database.Driver, overrides.DatabaseDriver)

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

func validateConfig(cfg Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("%w: port is required", ErrInvalidConfig)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_RPS must be >= 0", ErrInvalidConfig)
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_BURST must be >= 0", ErrInvalidConfig)
	}

	switch cfg.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.Database.URL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres driver", ErrInvalidConfig)
		}
	case DriverSQLite:
		if cfg.Database.Path == "" {
			return fmt.Errorf("%w: SQLITE_PATH is required for the sqlite driver", ErrInvalidConfig)
		}
		if cfg.Database.BusyTimeout < 0 {
			return fmt.Errorf("%w: busy_timeout must be >= 0", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, cfg.Database.Driver)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}
