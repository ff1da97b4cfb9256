package config

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/affwiki/pkg/formatting"
	"github.com/JaimeStill/affwiki/pkg/middleware"
	"github.com/JaimeStill/affwiki/pkg/pagination"
)

const (
	EnvAPIBasePath    = "AFFWIKI_API_BASE_PATH"
	EnvAPIMaxBodySize = "AFFWIKI_API_MAX_BODY_SIZE"

	defaultMaxBodySize = 1 << 20
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "AFFWIKI_CORS_ENABLED",
	Origins:          "AFFWIKI_CORS_ORIGINS",
	AllowedMethods:   "AFFWIKI_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "AFFWIKI_CORS_ALLOWED_HEADERS",
	AllowCredentials: "AFFWIKI_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "AFFWIKI_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultLimit: "AFFWIKI_PAGINATION_DEFAULT_LIMIT",
	MaxLimit:     "AFFWIKI_PAGINATION_MAX_LIMIT",
}

// APIConfig shapes the editorial API: where it mounts, how large a
// proposal body may be, and the CORS and paging policies it applies.
type APIConfig struct {
	BasePath    string                `toml:"base_path"`
	MaxBodySize string                `toml:"max_body_size"`
	CORS        middleware.CORSConfig `toml:"cors"`
	Pagination  pagination.Config     `toml:"pagination"`
}

func (c *APIConfig) MaxBodySizeBytes() int64 {
	if n, err := formatting.ParseBytes(c.MaxBodySize); err == nil {
		return n
	}
	return defaultMaxBodySize
}

func (c *APIConfig) Finalize() error {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	envString(EnvAPIBasePath, &c.BasePath)
	envString(EnvAPIMaxBodySize, &c.MaxBodySize)

	// Mounted as a single router segment.
	if !strings.HasPrefix(c.BasePath, "/") || len(c.BasePath) == 1 || strings.Contains(c.BasePath[1:], "/") {
		return fmt.Errorf("invalid base_path %q", c.BasePath)
	}
	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

func (c *APIConfig) Merge(overlay *APIConfig) {
	mergeString(&c.BasePath, overlay.BasePath)
	mergeString(&c.MaxBodySize, overlay.MaxBodySize)
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}
