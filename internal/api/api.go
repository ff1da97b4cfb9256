// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"net/http"

	"github.com/JaimeStill/affwiki/internal/config"
	"github.com/JaimeStill/affwiki/internal/infrastructure"
	"github.com/JaimeStill/affwiki/pkg/middleware"
	"github.com/JaimeStill/affwiki/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// When the patrol is enabled its loop is registered on the lifecycle.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain, err := NewDomain(context.Background(), runtime)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	if domain.Patrol != nil {
		domain.Patrol.Schedule(runtime.Lifecycle, cfg.Patrol.IntervalDuration())
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Recover(runtime.Logger))

	return m, nil
}
