package api

import (
	"github.com/JaimeStill/affwiki/internal/config"
	"github.com/JaimeStill/affwiki/internal/infrastructure"
)

// Runtime is what the API's systems and handlers are built from: the
// shared infrastructure under an api-scoped logger, plus full config.
type Runtime struct {
	*infrastructure.Infrastructure
	Config *config.Config
}

func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: infra.Scoped("module", "api"),
		Config:         cfg,
	}
}
