package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/config"
	"github.com/JaimeStill/affwiki/internal/infrastructure"
	"github.com/JaimeStill/affwiki/internal/proposals"
	"github.com/JaimeStill/affwiki/pkg/urlcheck"
)

// session is the connected state a single CLI invocation works against.
type session struct {
	Config    *config.Config
	Infra     *infrastructure.Infrastructure
	Keys      agents.System
	Proposals proposals.System
	Checker   *urlcheck.Checker
}

type opener func(ctx context.Context) (*session, error)

// openSession loads configuration and verifies the database is reachable.
// The CLI does not run the lifecycle coordinator; Close releases the pool.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := infra.Database.Check(ctx); err != nil {
		infra.Close()
		return nil, err
	}

	db := infra.Database.Connection()
	return &session{
		Config:    cfg,
		Infra:     infra,
		Keys:      agents.New(db, infra.Logger),
		Proposals: proposals.New(db, infra.Logger, cfg.API.Pagination, cfg.Editorial.StrictPublish),
		Checker:   urlcheck.New(cfg.Editorial.URLTimeoutDuration(), cfg.Editorial.UserAgent),
	}, nil
}

func (s *session) DB() *sql.DB {
	return s.Infra.Database.Connection()
}

func (s *session) Logger() *slog.Logger {
	return s.Infra.Logger
}

func (s *session) Close() error {
	return s.Infra.Close()
}

// authenticate resolves the agent key the command acts with.
func (s *session) authenticate(ctx context.Context, key string, roles ...agents.Role) (*agents.Identity, error) {
	if key == "" {
		return nil, fmt.Errorf("agent key required: pass --key or set %s", envAgentKey)
	}
	return s.Keys.Authenticate(ctx, key, roles...)
}
