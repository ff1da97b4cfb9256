package linkrules

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a link rule System backed by db.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "linkrules"),
	}
}

func (r *repo) ListEnabled(ctx context.Context) ([]Rule, error) {
	q, args, err := enabledQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rules, err := repository.QueryMany(ctx, r.db, q, args, scanRule)
	if err != nil {
		return nil, fmt.Errorf("list link rules: %w", err)
	}
	return rules, nil
}

func (r *repo) Create(ctx context.Context, agent agents.Identity, cmd CreateCommand) (*CreateResult, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q, args, err := insertRule(cmd).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	res := &CreateResult{MatchDomain: cmd.MatchDomain}
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&res.ID, &res.CreatedAt); err != nil {
		if repository.Code(err) == repository.CodeCheckViolation {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRule, err)
		}
		return nil, fmt.Errorf("create link rule: %w", repository.MapError(err, ErrInvalidRule, ErrInvalidRule))
	}

	r.logger.Info("link rule created", "id", res.ID, "domain", res.MatchDomain, "agent", agent.KeyID)
	return res, nil
}
