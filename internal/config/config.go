package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/affwiki/pkg/database"
	"github.com/JaimeStill/affwiki/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvAffwikiEnv             = "AFFWIKI_ENV"
	EnvAffwikiShutdownTimeout = "AFFWIKI_SHUTDOWN_TIMEOUT"
	EnvAffwikiVersion         = "AFFWIKI_VERSION"
	EnvAffwikiLogLevel        = "AFFWIKI_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	URL:             "AFFWIKI_DATABASE_URL",
	Host:            "AFFWIKI_DB_HOST",
	Port:            "AFFWIKI_DB_PORT",
	Name:            "AFFWIKI_DB_NAME",
	User:            "AFFWIKI_DB_USER",
	Password:        "AFFWIKI_DB_PASSWORD",
	SSLMode:         "AFFWIKI_DB_SSL_MODE",
	MaxOpenConns:    "AFFWIKI_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "AFFWIKI_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "AFFWIKI_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "AFFWIKI_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Enabled:          "AFFWIKI_STORAGE_ENABLED",
	ContainerName:    "AFFWIKI_STORAGE_CONTAINER_NAME",
	ConnectionString: "AFFWIKI_STORAGE_CONNECTION_STRING",
	AccountURL:       "AFFWIKI_STORAGE_ACCOUNT_URL",
	MaxRetries:       "AFFWIKI_STORAGE_MAX_RETRIES",
	TryTimeout:       "AFFWIKI_STORAGE_TRY_TIMEOUT",
}

// Config is the root configuration for the editorial service and agents.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Auth            AuthConfig           `toml:"auth"`
	Editorial       EditorialConfig      `toml:"editorial"`
	Patrol          PatrolConfig         `toml:"patrol"`
	LinkRules       LinkRulesConfig      `toml:"linkrules"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
	LogLevel        string               `toml:"log_level"`
}

// Env returns the AFFWIKI_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvAffwikiEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns LogLevel as a slog.Level. Validation guarantees it parses.
func (c *Config) Level() slog.Level {
	var l slog.Level
	l.UnmarshalText([]byte(c.LogLevel))
	return l
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Auth.Merge(&overlay.Auth)
	c.Editorial.Merge(&overlay.Editorial)
	c.Patrol.Merge(&overlay.Patrol)
	c.LinkRules.Merge(&overlay.LinkRules)
	c.Agent.Merge(&overlay.Agent)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"api", c.API.Finalize},
		{"auth", c.Auth.Finalize},
		{"editorial", c.Editorial.Finalize},
		{"patrol", c.Patrol.Finalize},
		{"linkrules", c.LinkRules.Finalize},
		{"agent", func() error { return FinalizeAgent(&c.Agent) }},
	}
	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvAffwikiShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvAffwikiVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvAffwikiLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvAffwikiEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
