package agents

import (
	"github.com/lib/pq"

	"github.com/JaimeStill/affwiki/pkg/repository"
)

const keyColumns = `id, name, agent_type, scopes, rate_limit, is_enabled,
	expires_at, last_used_at, total_requests, created_at`

func scanKey(s repository.Scanner) (Key, error) {
	var (
		k      Key
		scopes pq.StringArray
	)
	err := s.Scan(
		&k.ID,
		&k.Name,
		&k.Role,
		&scopes,
		&k.RateLimit,
		&k.Enabled,
		&k.ExpiresAt,
		&k.LastUsedAt,
		&k.TotalRequests,
		&k.CreatedAt,
	)
	k.Scopes = []string(scopes)
	if k.Scopes == nil {
		k.Scopes = []string{}
	}
	return k, err
}
