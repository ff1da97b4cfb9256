package entities

import (
	"context"
	"fmt"

	"github.com/JaimeStill/affwiki/pkg/jsonmap"
	"github.com/JaimeStill/affwiki/pkg/repository"
)

// Each kind resolves (name, extracted) for a single id.
var lookups = map[Type]string{
	TypeProgram: `
		SELECT p.name, pr.extracted
		FROM programs p
		LEFT JOIN program_research pr ON pr.program_id = p.id
		WHERE p.id = $1`,
	TypeCategory: `
		SELECT c.name, jsonb_strip_nulls(jsonb_build_object('description', c.description))
		FROM categories c
		WHERE c.id = $1`,
	TypeNetwork: `
		SELECT n.name, nr.extracted
		FROM cpa_networks n
		LEFT JOIN cpa_network_research nr ON nr.network_id = n.id
		WHERE n.id = $1`,
}

func scanEntity(t Type, id int64) repository.ScanFunc[Entity] {
	return func(s repository.Scanner) (Entity, error) {
		e := Entity{Type: t, ID: id}
		err := s.Scan(&e.Name, &e.Extracted)
		return e, err
	}
}

// Find loads an entity of kind t by id. q may be a *sql.DB or *sql.Tx.
func Find(ctx context.Context, q repository.Querier, t Type, id int64) (*Entity, error) {
	lookup, ok := lookups[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	e, err := repository.QueryOne(ctx, q, lookup, []any{id}, scanEntity(t, id))
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &e, nil
}

// Tx is the transaction surface the write helpers require.
type Tx interface {
	repository.Querier
	repository.Executor
}

// LockProgram returns the program's extracted document, holding a row lock
// on its research row until the transaction ends. A missing research row
// is created empty; a missing program yields ErrNotFound.
func LockProgram(ctx context.Context, tx Tx, id int64) (jsonmap.Map, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO program_research (program_id) VALUES ($1) ON CONFLICT (program_id) DO NOTHING`,
		id,
	); err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	doc, err := repository.QueryOne(ctx, tx,
		`SELECT extracted FROM program_research WHERE program_id = $1 FOR UPDATE`,
		[]any{id},
		func(s repository.Scanner) (jsonmap.Map, error) {
			var m jsonmap.Map
			err := s.Scan(&m)
			return m, err
		},
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return doc, nil
}

// UpdateProgramExtracted overwrites the program's extracted document and
// stamps its last successful update.
func UpdateProgramExtracted(ctx context.Context, tx Tx, id int64, doc jsonmap.Map) error {
	err := repository.ExecExpectOne(ctx, tx,
		`UPDATE program_research
		 SET extracted = $2, last_success_at = NOW(), updated_at = NOW()
		 WHERE program_id = $1`,
		id, doc,
	)
	if err != nil {
		return fmt.Errorf("update program research: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return nil
}

// SyncProgramSignup copies a published signup_url onto the program row so
// URL verification checks the corrected address.
func SyncProgramSignup(ctx context.Context, tx Tx, id int64, signupURL string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE programs SET signup_url = $2, updated_at = NOW() WHERE id = $1`,
		id, signupURL,
	); err != nil {
		return fmt.Errorf("sync program signup url: %w", err)
	}
	return nil
}

// RecordProgramHistory inserts a history record and returns its id.
func RecordProgramHistory(ctx context.Context, tx Tx, rec HistoryRecord) (int64, error) {
	q := `
		INSERT INTO program_research_history (
			program_id, previous_extracted, new_extracted, diff,
			agent_type, agent_id, model_used, sources, reasoning
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	id, err := repository.QueryScalar[int64](ctx, tx, q,
		rec.ProgramID,
		rec.Previous,
		rec.Next,
		rec.Diff,
		rec.AgentType,
		rec.AgentID,
		rec.ModelUsed,
		rec.Sources,
		rec.Reasoning,
	)
	if err != nil {
		return 0, fmt.Errorf("insert program history: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return id, nil
}
