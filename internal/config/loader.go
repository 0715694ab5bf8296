package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "forgeflow.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// CLIFlags carries optional command-line overrides. A nil field means the
// flag was not passed and the lower layers win.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	DSN        *string
	NatsURL    *string
	LogLevel   *string
}

// ParseFlags parses command-line arguments (excluding the program name)
// into CLIFlags. Unknown flags are an error.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("forgeflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.String("config", "", "path to YAML config file")
	fs.String("c", "", "path to YAML config file (shorthand)")
	fs.String("port", "", "HTTP listen port")
	fs.String("p", "", "HTTP listen port (shorthand)")
	fs.String("dsn", "", "PostgreSQL connection string")
	fs.String("nats-url", "", "NATS server URL")
	fs.String("log-level", "", "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, err
	}

	var flags CLIFlags
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = &v
		case "port", "p":
			flags.Port = &v
		case "dsn":
			flags.DSN = &v
		case "nats-url":
			flags.NatsURL = &v
		case "log-level":
			flags.LogLevel = &v
		}
	})
	return flags, nil
}

// LoadWithCLI returns a Config using the full hierarchy:
// defaults < YAML < ENV < CLI. It also returns the YAML path it resolved.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, "", fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

// Holder provides concurrency-safe access to a reloadable Config. Reload
// re-runs the defaults < YAML < ENV hierarchy against the original path and
// swaps the config only when the result validates.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewHolder wraps an already-loaded config for later reloads.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	return &Holder{cfg: cfg, path: yamlPath}
}

// Get returns the current config snapshot.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Reload re-loads from the original YAML path. A failing load or validation
// keeps the previous config in place.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.path)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	return nil
}

// applyCLI overlays set flags onto cfg.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.DSN != nil {
		cfg.Postgres.DSN = *flags.DSN
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "FORGEFLOW_PORT")
	setString(&cfg.Server.CORSOrigin, "FORGEFLOW_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "FORGEFLOW_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "FORGEFLOW_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "FORGEFLOW_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "FORGEFLOW_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "FORGEFLOW_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.Auth.Enabled, "FORGEFLOW_AUTH_ENABLED")
	setStringSlice(&cfg.Auth.APIKeyHashes, "FORGEFLOW_API_KEY_HASHES")
	setString(&cfg.Logging.Level, "FORGEFLOW_LOG_LEVEL")
	setString(&cfg.Logging.Service, "FORGEFLOW_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "FORGEFLOW_LOG_ASYNC")
	setFloat64(&cfg.Rate.RequestsPerSecond, "FORGEFLOW_RATE_RPS")
	setInt(&cfg.Rate.Burst, "FORGEFLOW_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "FORGEFLOW_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "FORGEFLOW_RATE_MAX_IDLE_TIME")
	setString(&cfg.Idempotency.Bucket, "FORGEFLOW_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "FORGEFLOW_IDEMPOTENCY_TTL")
	setInt64(&cfg.Cache.L1MaxSizeMB, "FORGEFLOW_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.L1TTL, "FORGEFLOW_CACHE_L1_TTL")
	setString(&cfg.Cache.L2Bucket, "FORGEFLOW_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "FORGEFLOW_CACHE_L2_TTL")
	setDuration(&cfg.Cache.StateTTL, "FORGEFLOW_CACHE_STATE_TTL")
	setBool(&cfg.Telemetry.Enabled, "FORGEFLOW_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "FORGEFLOW_OTEL_ENDPOINT")
	setBool(&cfg.MCP.Enabled, "FORGEFLOW_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "FORGEFLOW_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "FORGEFLOW_MCP_API_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeyHashes) == 0 {
		return errors.New("auth.api_key_hashes is required when auth is enabled")
	}
	if cfg.MCP.Enabled && cfg.MCP.Addr == "" {
		return errors.New("mcp.addr is required when mcp is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setStringSlice splits a comma-separated env value, trimming whitespace.
func setStringSlice(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
