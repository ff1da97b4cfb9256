package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvEditorialStrictPublish = "AFFWIKI_EDITORIAL_STRICT_PUBLISH"
	EnvEditorialURLTimeout    = "AFFWIKI_EDITORIAL_URL_TIMEOUT"
	EnvEditorialVerifyWorkers = "AFFWIKI_EDITORIAL_VERIFY_WORKERS"
	EnvEditorialUserAgent     = "AFFWIKI_EDITORIAL_USER_AGENT"

	EnvPatrolEnabled   = "AFFWIKI_PATROL_ENABLED"
	EnvPatrolInterval  = "AFFWIKI_PATROL_INTERVAL"
	EnvPatrolBatchSize = "AFFWIKI_PATROL_BATCH_SIZE"
	EnvPatrolWorkers   = "AFFWIKI_PATROL_WORKERS"
	EnvPatrolStaleDays = "AFFWIKI_PATROL_STALE_DAYS"
	EnvPatrolKey       = "AFFWIKI_PATROL_KEY"

	EnvLinkRulesTTL = "AFFWIKI_LINKRULES_TTL"
)

// EditorialConfig tunes the proposal pipeline and URL checks.
type EditorialConfig struct {
	// StrictPublish rejects a publish when a changed field no longer holds
	// the value captured at proposal time.
	StrictPublish bool   `toml:"strict_publish"`
	URLTimeout    string `toml:"url_timeout"`
	VerifyWorkers int    `toml:"verify_workers"`
	UserAgent     string `toml:"user_agent"`
}

func (c *EditorialConfig) URLTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.URLTimeout)
	return d
}

func (c *EditorialConfig) Finalize() error {
	if c.URLTimeout == "" {
		c.URLTimeout = "10s"
	}
	if c.VerifyWorkers == 0 {
		c.VerifyWorkers = 10
	}

	envBool(EnvEditorialStrictPublish, &c.StrictPublish)
	envString(EnvEditorialURLTimeout, &c.URLTimeout)
	envInt(EnvEditorialVerifyWorkers, &c.VerifyWorkers)
	envString(EnvEditorialUserAgent, &c.UserAgent)

	if _, err := time.ParseDuration(c.URLTimeout); err != nil {
		return fmt.Errorf("invalid url_timeout: %w", err)
	}
	if c.VerifyWorkers < 1 {
		return fmt.Errorf("verify_workers must be positive: %d", c.VerifyWorkers)
	}
	return nil
}

func (c *EditorialConfig) Merge(overlay *EditorialConfig) {
	if overlay.StrictPublish {
		c.StrictPublish = true
	}
	if overlay.URLTimeout != "" {
		c.URLTimeout = overlay.URLTimeout
	}
	if overlay.VerifyWorkers != 0 {
		c.VerifyWorkers = overlay.VerifyWorkers
	}
	if overlay.UserAgent != "" {
		c.UserAgent = overlay.UserAgent
	}
}

// PatrolConfig schedules the staleness patrol inside the server.
type PatrolConfig struct {
	Enabled   bool   `toml:"enabled"`
	Interval  string `toml:"interval"`
	BatchSize int    `toml:"batch_size"`
	Workers   int    `toml:"workers"`
	StaleDays int    `toml:"stale_days"`
	// Key is the researcher agent key the patrol files proposals under.
	Key string `toml:"key"`
}

func (c *PatrolConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

func (c *PatrolConfig) Finalize() error {
	if c.Interval == "" {
		c.Interval = "6h"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.Workers == 0 {
		c.Workers = 10
	}
	if c.StaleDays == 0 {
		c.StaleDays = 30
	}

	envBool(EnvPatrolEnabled, &c.Enabled)
	envString(EnvPatrolInterval, &c.Interval)
	envInt(EnvPatrolBatchSize, &c.BatchSize)
	envInt(EnvPatrolWorkers, &c.Workers)
	envInt(EnvPatrolStaleDays, &c.StaleDays)
	envString(EnvPatrolKey, &c.Key)

	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if d <= 0 || c.BatchSize < 1 || c.Workers < 1 || c.StaleDays < 1 {
		return fmt.Errorf("interval, batch_size, workers, and stale_days must be positive")
	}
	if c.Enabled && c.Key == "" {
		return fmt.Errorf("key required when patrol is enabled")
	}
	return nil
}

func (c *PatrolConfig) Merge(overlay *PatrolConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.BatchSize != 0 {
		c.BatchSize = overlay.BatchSize
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.StaleDays != 0 {
		c.StaleDays = overlay.StaleDays
	}
	if overlay.Key != "" {
		c.Key = overlay.Key
	}
}

type LinkRulesConfig struct {
	CacheTTL string `toml:"cache_ttl"`
}

func (c *LinkRulesConfig) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

func (c *LinkRulesConfig) Finalize() error {
	if c.CacheTTL == "" {
		c.CacheTTL = "5m"
	}
	envString(EnvLinkRulesTTL, &c.CacheTTL)
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache_ttl: %w", err)
	}
	return nil
}

func (c *LinkRulesConfig) Merge(overlay *LinkRulesConfig) {
	if overlay.CacheTTL != "" {
		c.CacheTTL = overlay.CacheTTL
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
