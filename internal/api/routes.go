package api

import (
	"net/http"

	"github.com/JaimeStill/affwiki/internal/evidence"
	"github.com/JaimeStill/affwiki/internal/linkrules"
	"github.com/JaimeStill/affwiki/internal/proposals"
	"github.com/JaimeStill/affwiki/internal/stats"
	"github.com/JaimeStill/affwiki/internal/verification"
	"github.com/JaimeStill/affwiki/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	cfg := runtime.Config
	maxBody := cfg.API.MaxBodySizeBytes()
	logger := runtime.Logger

	patterns := routes.Register(
		mux,
		proposals.NewHandler(domain.Proposals, domain.Guard, logger, cfg.API.Pagination, maxBody).Routes(),
		verification.NewHandler(domain.Verification, domain.Guard, logger, maxBody).Routes(),
		evidence.NewHandler(domain.Evidence, domain.Guard, logger, maxBody).Routes(),
		linkrules.NewHandler(domain.LinkRules, domain.Rewriter, domain.Guard, logger, maxBody).Routes(),
		stats.NewHandler(domain.Stats, domain.Guard, logger).Routes(),
	)
	logger.Debug("api routes registered", "count", len(patterns), "base", cfg.API.BasePath)
}
