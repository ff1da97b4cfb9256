package api

import (
	"context"
	"fmt"
	"time"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/evidence"
	"github.com/JaimeStill/affwiki/internal/linkrules"
	"github.com/JaimeStill/affwiki/internal/patrol"
	"github.com/JaimeStill/affwiki/internal/proposals"
	"github.com/JaimeStill/affwiki/internal/stats"
	"github.com/JaimeStill/affwiki/internal/verification"
	"github.com/JaimeStill/affwiki/pkg/urlcheck"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Agents       agents.System
	Guard        *agents.Guard
	Proposals    proposals.System
	Verification verification.System
	Evidence     *evidence.Capturer
	LinkRules    linkrules.System
	Rewriter     *linkrules.Rewriter
	Stats        stats.System
	// Patrol is nil unless the in-process patrol loop is enabled.
	Patrol *patrol.Patrol
}

// NewDomain creates all domain systems from the API runtime. When OIDC is
// configured the issuer is discovered here, so startup fails fast on a
// bad issuer.
func NewDomain(ctx context.Context, runtime *Runtime) (*Domain, error) {
	cfg := runtime.Config
	db := runtime.Database.Connection()
	logger := runtime.Logger

	keys := agents.New(db, logger)

	var tokens agents.TokenVerifier
	if cfg.Auth.OIDC.Enabled() {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		verifier, err := agents.NewOIDCVerifier(ctx, cfg.Auth.OIDC.Issuer, cfg.Auth.OIDC.ClientID, cfg.Auth.OIDC.RolesClaim)
		if err != nil {
			return nil, fmt.Errorf("oidc: %w", err)
		}
		tokens = verifier
	}

	checker := urlcheck.New(cfg.Editorial.URLTimeoutDuration(), cfg.Editorial.UserAgent)
	proposalsSystem := proposals.New(db, logger, cfg.API.Pagination, cfg.Editorial.StrictPublish)
	verificationSystem := verification.New(db, checker, cfg.Editorial.VerifyWorkers, logger)
	capturer := evidence.New(runtime.Storage, cfg.Editorial.URLTimeoutDuration(), cfg.Editorial.UserAgent, logger)
	rulesSystem := linkrules.New(db, logger)

	domain := &Domain{
		Agents:       keys,
		Guard:        agents.NewGuard(keys, tokens, logger),
		Proposals:    proposalsSystem,
		Verification: verificationSystem,
		Evidence:     capturer,
		LinkRules:    rulesSystem,
		Rewriter:     linkrules.NewRewriter(rulesSystem, cfg.LinkRules.CacheTTLDuration(), logger),
		Stats:        stats.New(db, logger),
	}

	if cfg.Patrol.Enabled {
		domain.Patrol = patrol.New(
			patrol.Deps{
				DB:           db,
				Keys:         keys,
				Verification: verificationSystem,
				Proposals:    proposalsSystem,
				Checker:      checker,
				Capturer:     capturer,
			},
			cfg.Patrol.Key,
			patrol.Options{
				BatchSize:       cfg.Patrol.BatchSize,
				Workers:         cfg.Patrol.Workers,
				StaleDays:       cfg.Patrol.StaleDays,
				CreateProposals: true,
			},
			logger,
		)
	}

	return domain, nil
}
