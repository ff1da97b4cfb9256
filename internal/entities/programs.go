package entities

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/JaimeStill/affwiki/pkg/repository"
)

const programColumns = `p.id, p.name, p.domain, p.signup_url, pr.extracted`

func scanProgram(s repository.Scanner) (Program, error) {
	var p Program
	err := s.Scan(&p.ID, &p.Name, &p.Domain, &p.SignupURL, &p.Extracted)
	return p, err
}

// FindProgram loads a program with its extracted document.
func FindProgram(ctx context.Context, q repository.Querier, id int64) (*Program, error) {
	query := `
		SELECT ` + programColumns + `
		FROM programs p
		LEFT JOIN program_research pr ON pr.program_id = p.id
		WHERE p.id = $1`

	p, err := repository.QueryOne(ctx, q, query, []any{id}, scanProgram)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

// FindPrograms loads the given programs. Unknown ids are omitted.
func FindPrograms(ctx context.Context, q repository.Querier, ids []int64) ([]Program, error) {
	if len(ids) == 0 {
		return []Program{}, nil
	}

	query := `
		SELECT ` + programColumns + `
		FROM programs p
		LEFT JOIN program_research pr ON pr.program_id = p.id
		WHERE p.id = ANY($1)
		ORDER BY p.id`

	programs, err := repository.QueryMany(ctx, q, query, []any{pq.Int64Array(ids)}, scanProgram)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	return programs, nil
}

// StaleResearch returns programs whose deep_researched_at stamp is missing,
// unparseable, or older than days, oldest first.
func StaleResearch(ctx context.Context, q repository.Querier, days, limit int) ([]Program, error) {
	query := `
		SELECT ` + programColumns + `
		FROM programs p
		LEFT JOIN program_research pr ON pr.program_id = p.id
		WHERE COALESCE(pr.extracted->>'deep_researched_at', '') !~ '^\d{4}-\d{2}-\d{2}'
		   OR LEFT(pr.extracted->>'deep_researched_at', 10) < to_char(CURRENT_DATE - $1::int, 'YYYY-MM-DD')
		ORDER BY pr.extracted->>'deep_researched_at' ASC NULLS FIRST, p.id
		LIMIT $2`

	programs, err := repository.QueryMany(ctx, q, query, []any{days, limit}, scanProgram)
	if err != nil {
		return nil, fmt.Errorf("query stale research: %w", err)
	}
	return programs, nil
}
