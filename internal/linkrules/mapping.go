package linkrules

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/JaimeStill/affwiki/pkg/repository"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func enabledQuery() sq.SelectBuilder {
	return psql.
		Select(
			"id", "match_domain", "match_path_pattern", "affiliate_template",
			"network", "default_tag", "utm_source", "utm_medium", "utm_campaign",
			"exception_paths", "priority", "is_enabled", "created_at",
		).
		From("link_rules").
		Where(sq.Eq{"is_enabled": true}).
		OrderBy("priority DESC", "id")
}

func insertRule(cmd CreateCommand) sq.InsertBuilder {
	return psql.
		Insert("link_rules").
		Columns(
			"match_domain", "match_path_pattern", "affiliate_template",
			"network", "default_tag", "exception_paths", "priority",
		).
		Values(
			cmd.MatchDomain, cmd.MatchPathPattern, cmd.AffiliateTemplate,
			cmd.Network, cmd.DefaultTag, pq.StringArray(cmd.ExceptionPaths), *cmd.Priority,
		).
		Suffix("RETURNING id, created_at")
}

func scanRule(s repository.Scanner) (Rule, error) {
	var (
		r          Rule
		exceptions pq.StringArray
	)
	err := s.Scan(
		&r.ID,
		&r.MatchDomain,
		&r.MatchPathPattern,
		&r.AffiliateTemplate,
		&r.Network,
		&r.DefaultTag,
		&r.UTMSource,
		&r.UTMMedium,
		&r.UTMCampaign,
		&exceptions,
		&r.Priority,
		&r.Enabled,
		&r.CreatedAt,
	)
	r.ExceptionPaths = []string(exceptions)
	if r.ExceptionPaths == nil {
		r.ExceptionPaths = []string{}
	}
	return r, err
}
