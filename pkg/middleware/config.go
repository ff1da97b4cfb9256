package middleware

import (
	"os"
	"strconv"
	"strings"
)

// CORSConfig is the browser access policy for the editorial API.
// An origin of "*" admits any origin but never with credentials.
type CORSConfig struct {
	Enabled          bool     `toml:"enabled"`
	Origins          []string `toml:"origins"`
	AllowedMethods   []string `toml:"allowed_methods"`
	AllowedHeaders   []string `toml:"allowed_headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"`
}

// CORSEnv names the environment variables that override each field.
// Empty names are skipped.
type CORSEnv struct {
	Enabled          string
	Origins          string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials string
	MaxAge           string
}

func (c *CORSConfig) Finalize(env *CORSEnv) error {
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = []string{"Content-Type", "Authorization", "X-Agent-Key"}
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 3600
	}
	if env == nil {
		return nil
	}

	lookup(env.Enabled, func(v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enabled = b
		}
	})
	lookup(env.AllowCredentials, func(v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AllowCredentials = b
		}
	})
	lookup(env.MaxAge, func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAge = n
		}
	})
	lookup(env.Origins, func(v string) { c.Origins = splitList(v) })
	lookup(env.AllowedMethods, func(v string) { c.AllowedMethods = splitList(v) })
	lookup(env.AllowedHeaders, func(v string) { c.AllowedHeaders = splitList(v) })
	return nil
}

// Merge applies overlay. Booleans always apply since the overlay file
// states the whole policy; lists and max age apply when set.
func (c *CORSConfig) Merge(overlay *CORSConfig) {
	c.Enabled = overlay.Enabled
	c.AllowCredentials = overlay.AllowCredentials

	if overlay.Origins != nil {
		c.Origins = overlay.Origins
	}
	if overlay.AllowedMethods != nil {
		c.AllowedMethods = overlay.AllowedMethods
	}
	if overlay.AllowedHeaders != nil {
		c.AllowedHeaders = overlay.AllowedHeaders
	}
	if overlay.MaxAge > 0 {
		c.MaxAge = overlay.MaxAge
	}
}

func lookup(name string, apply func(string)) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		apply(v)
	}
}

func splitList(v string) []string {
	var out []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
