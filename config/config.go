package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ipfs-force-community/metrics"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
)

const (
	// Configuration file name
	ConfigFile = "config.toml"
	// EnvFile is read from the repo and the working directory when present
	EnvFile = ".env"
)

const (
	EnvAIURL     = "GATEWAY_AI_URL"
	EnvDBPath    = "GATEWAY_DB_PATH"
	EnvJWTSecret = "GATEWAY_JWT_SECRET"
	EnvListen    = "GATEWAY_LISTEN"
)

type Config struct {
	API      *APIConfig
	AI       *AIConfig
	DB       *DBConfig
	Session  *SessionConfig
	Provider *ProviderConfig
	Log      *LogConfig
	Metrics  *metrics.MetricsConfig
	Trace    *metrics.TraceConfig
}

type APIConfig struct {
	ListenAddress string
}

type AIConfig struct {
	URL string
	// Timeout is a time.ParseDuration string
	Timeout string
}

type DBConfig struct {
	// Path of the badger directory, empty keeps everything in memory
	Path string
}

type SessionConfig struct {
	JWTSecret string
	TTL       string
}

type ProviderConfig struct {
	// Type is the provider type a bridge must register with to count as the injected provider
	Type           string
	RequestTimeout string
	QueueSize      int
}

type LogConfig struct {
	Level string
	// File enables a rotating log file next to stderr
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func DefaultConfig() *Config {
	cfg := &Config{
		API:      &APIConfig{ListenAddress: "/ip4/127.0.0.1/tcp/45132"},
		AI:       &AIConfig{URL: "http://localhost:8000", Timeout: "30s"},
		DB:       &DBConfig{Path: "db"},
		Session:  &SessionConfig{TTL: "168h"},
		Provider: &ProviderConfig{Type: "ethereum", RequestTimeout: "30s", QueueSize: 30},
		Log:      &LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 5},
		Metrics:  metrics.DefaultMetricsConfig(),
		Trace:    metrics.DefaultTraceConfig(),
	}
	namespace := "rebalance_gateway"
	cfg.Metrics.Exporter.Prometheus.Namespace = namespace
	cfg.Metrics.Exporter.Graphite.Namespace = namespace
	cfg.Metrics.Exporter.Prometheus.EndPoint = "/ip4/0.0.0.0/tcp/4569"
	cfg.Metrics.Exporter.Graphite.Port = 4569
	cfg.Trace.ServerName = "rebalance-gateway"
	cfg.Trace.JaegerEndpoint = ""

	return cfg
}

func ReadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	err = toml.Unmarshal(data, cfg)

	return cfg, err
}

func WriteConfig(filePath string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0644)
}

// LoadEnv reads the .env files into the process environment, never overriding variables
// that are already set. Missing files are skipped.
func LoadEnv(dirs ...string) error {
	for _, dir := range dirs {
		p := filepath.Join(dir, EnvFile)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with the GATEWAY_* environment variables.
func ApplyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvAIURL); ok {
		cfg.AI.URL = v
	}
	if v, ok := os.LookupEnv(EnvDBPath); ok {
		cfg.DB.Path = v
	}
	if v, ok := os.LookupEnv(EnvJWTSecret); ok {
		cfg.Session.JWTSecret = v
	}
	if v, ok := os.LookupEnv(EnvListen); ok {
		cfg.API.ListenAddress = v
	}
}

// Durations parses the duration strings of cfg.
func (cfg *Config) Durations() (aiTimeout, sessionTTL, requestTimeout time.Duration, err error) {
	if aiTimeout, err = time.ParseDuration(cfg.AI.Timeout); err != nil {
		return 0, 0, 0, fmt.Errorf("ai timeout: %w", err)
	}
	if sessionTTL, err = time.ParseDuration(cfg.Session.TTL); err != nil {
		return 0, 0, 0, fmt.Errorf("session ttl: %w", err)
	}
	if requestTimeout, err = time.ParseDuration(cfg.Provider.RequestTimeout); err != nil {
		return 0, 0, 0, fmt.Errorf("provider request timeout: %w", err)
	}
	return aiTimeout, sessionTTL, requestTimeout, nil
}

// Validate reports settings the daemon cannot start without.
func (cfg *Config) Validate() error {
	if len(cfg.Session.JWTSecret) == 0 {
		return fmt.Errorf("jwt secret is required, set %s or Session.JWTSecret", EnvJWTSecret)
	}
	if len(cfg.AI.URL) == 0 {
		return fmt.Errorf("ai url is required, set %s or AI.URL", EnvAIURL)
	}
	if len(cfg.Provider.Type) == 0 {
		return fmt.Errorf("provider type is required")
	}
	_, _, _, err := cfg.Durations()
	return err
}
