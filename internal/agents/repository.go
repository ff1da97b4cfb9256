package agents

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/JaimeStill/affwiki/pkg/repository"
)

// KeyPrefix starts every generated agent key.
const KeyPrefix = "ak_"

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an agent key repository implementing System.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "agents"),
	}
}

func (r *repo) Authenticate(ctx context.Context, key string, allowed ...Role) (*Identity, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	q := `
		SELECT ` + keyColumns + `
		FROM agent_keys
		WHERE id = $1
		  AND is_enabled
		  AND (expires_at IS NULL OR expires_at > NOW())`

	k, err := repository.QueryOne(ctx, r.db, q, []any{key}, scanKey)
	if err != nil {
		return nil, repository.MapError(err, ErrInvalidKey, ErrDuplicateKey)
	}

	if !k.Role.Permits(allowed) {
		r.logger.Warn("agent role rejected", "key", k.Name, "role", k.Role, "allowed", allowed)
		return nil, fmt.Errorf("%w: %s", ErrForbidden, k.Role)
	}

	if err := repository.ExecExpectOne(
		ctx, r.db,
		`UPDATE agent_keys
		 SET last_used_at = NOW(), total_requests = total_requests + 1
		 WHERE id = $1`,
		k.ID,
	); err != nil {
		return nil, fmt.Errorf("record agent usage: %w", repository.MapError(err, ErrInvalidKey, ErrDuplicateKey))
	}

	id := k.Identity()
	return &id, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Key, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	scopes := cmd.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	q := `
		INSERT INTO agent_keys (id, name, agent_type, scopes, rate_limit, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + keyColumns

	args := []any{
		KeyPrefix + rand.Text(),
		cmd.Name,
		cmd.Role,
		pq.StringArray(scopes),
		cmd.RateLimit,
		cmd.ExpiresAt,
	}

	k, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Key, error) {
		return repository.QueryOne(ctx, tx, q, args, scanKey)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrKeyNotFound, ErrDuplicateKey)
	}

	r.logger.Info("agent key created", "name", k.Name, "role", k.Role)
	return &k, nil
}

func (r *repo) List(ctx context.Context) ([]Key, error) {
	keys, err := repository.QueryMany(
		ctx, r.db,
		"SELECT "+keyColumns+" FROM agent_keys ORDER BY created_at",
		nil, scanKey,
	)
	if err != nil {
		return nil, fmt.Errorf("query agent keys: %w", err)
	}
	return keys, nil
}

func (r *repo) Disable(ctx context.Context, id string) (*Key, error) {
	q := `
		UPDATE agent_keys SET is_enabled = false
		WHERE id = $1
		RETURNING ` + keyColumns

	k, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanKey)
	if err != nil {
		return nil, repository.MapError(err, ErrKeyNotFound, ErrDuplicateKey)
	}

	r.logger.Info("agent key disabled", "name", k.Name)
	return &k, nil
}
