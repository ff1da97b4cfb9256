package pagination

import (
	"errors"
	"os"
	"strconv"
)

// Config bounds list page sizes. Proposals and agent keys share it.
type Config struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

// ConfigEnv names the variables that override Config. Empty names are skipped.
type ConfigEnv struct {
	DefaultLimit string
	MaxLimit     string
}

func (c *Config) Finalize(env *ConfigEnv) error {
	c.DefaultLimit = positive(c.DefaultLimit, 50)
	c.MaxLimit = positive(c.MaxLimit, 200)

	if env != nil {
		envInt(env.DefaultLimit, &c.DefaultLimit)
		envInt(env.MaxLimit, &c.MaxLimit)
	}

	switch {
	case c.DefaultLimit < 1:
		return errors.New("default_limit must be positive")
	case c.MaxLimit < 1:
		return errors.New("max_limit must be positive")
	case c.DefaultLimit > c.MaxLimit:
		return errors.New("default_limit cannot exceed max_limit")
	}
	return nil
}

func (c *Config) Merge(overlay *Config) {
	if overlay.DefaultLimit != 0 {
		c.DefaultLimit = overlay.DefaultLimit
	}
	if overlay.MaxLimit != 0 {
		c.MaxLimit = overlay.MaxLimit
	}
}

func positive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// envInt overwrites dst when name is set to a parseable integer.
func envInt(name string, dst *int) {
	if name == "" {
		return
	}
	if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
		*dst = n
	}
}
