package proposals

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/entities"
	"github.com/JaimeStill/affwiki/pkg/jsonmap"
	"github.com/JaimeStill/affwiki/pkg/pagination"
	"github.com/JaimeStill/affwiki/pkg/query"
	"github.com/JaimeStill/affwiki/pkg/repository"
)

const (
	maxReasoning = 5000
	maxNotes     = 5000
	maxModelUsed = 100

	historyAgentType = "editorial"
)

type repo struct {
	db            *sql.DB
	logger        *slog.Logger
	pagination    pagination.Config
	strictPublish bool
	now           func() time.Time
}

// New creates the editorial pipeline System. With strictPublish, publish
// refuses to overwrite fields that changed since the proposal captured them.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	strictPublish bool,
) System {
	return &repo{
		db:            db,
		logger:        logger.With("system", "proposals"),
		pagination:    pagination,
		strictPublish: strictPublish,
		now:           time.Now,
	}
}

func (r *repo) Create(ctx context.Context, agent agents.Identity, cmd CreateCommand) (*CreateResult, error) {
	typ, err := entities.ParseType(cmd.EntityType)
	if err != nil {
		return nil, err
	}
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	entity, err := entities.Find(ctx, r.db, typ, cmd.EntityID)
	if err != nil {
		return nil, err
	}

	pid := uuid.New()
	sources := cmd.Sources
	if sources == nil {
		sources = jsonmap.List{}
	}

	q := `
		INSERT INTO proposals (
			id, entity_type, entity_id, changes, previous_values,
			sources, reasoning, raw_llm_response, model_used, researcher_key_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING status, created_at`

	args := []any{
		pid,
		typ,
		cmd.EntityID,
		cmd.Changes,
		CapturePrevious(entity.Extracted, cmd.Changes),
		sources,
		cmd.Reasoning,
		cmd.RawLLMResponse,
		cmd.ModelUsed,
		agent.KeyID,
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (CreateResult, error) {
		return repository.QueryOne(ctx, tx, q, args, func(s repository.Scanner) (CreateResult, error) {
			res := CreateResult{
				ProposalID:   pid,
				Entity:       entity.Ref(),
				ChangesCount: len(cmd.Changes),
			}
			err := s.Scan(&res.Status, &res.CreatedAt)
			return res, err
		})
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"proposal created",
		"id", result.ProposalID,
		"entity_type", typ,
		"entity_id", cmd.EntityID,
		"researcher", agent.KeyID,
	)
	return &result, nil
}

func (c CreateCommand) validate() error {
	if c.EntityID <= 0 {
		return fmt.Errorf("%w: entity_id must be positive", ErrInvalidProposal)
	}
	if len(c.Changes) == 0 {
		return fmt.Errorf("%w: changes must not be empty", ErrInvalidProposal)
	}
	if utf8.RuneCountInString(c.Reasoning) > maxReasoning {
		return fmt.Errorf("%w: reasoning exceeds %d characters", ErrInvalidProposal, maxReasoning)
	}
	if c.ModelUsed != nil && utf8.RuneCountInString(*c.ModelUsed) > maxModelUsed {
		return fmt.Errorf("%w: model_used exceeds %d characters", ErrInvalidProposal, maxModelUsed)
	}
	return nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Proposal], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if sort := knownSort(page.Sort); len(sort) > 0 {
		qb.OrderByFields(sort)
	}

	countSQL, countArgs, err := qb.BuildCount()
	if err != nil {
		return nil, fmt.Errorf("build count: %w", err)
	}
	total, err := repository.QueryScalar[int](ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count proposals: %w", err)
	}

	pageSQL, pageArgs, err := qb.BuildPage(page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("build page: %w", err)
	}
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanProposal)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}

	result := pagination.NewPageResult(items, total, page)
	return &result, nil
}

func knownSort(fields pagination.SortFields) []query.SortField {
	out := make([]query.SortField, 0, len(fields))
	for _, f := range fields {
		if projection.Has(f.Field) {
			out = append(out, f)
		}
	}
	return out
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Detail, error) {
	q, args, err := query.NewBuilder(projection).BuildSingle("ID", id)
	if err != nil {
		return nil, err
	}

	p, err := repository.QueryOne(ctx, r.db, q, args, scanProposal)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	log, err := repository.QueryMany(
		ctx, r.db,
		`SELECT action, agent_key_id, validation_results, notes, created_at
		 FROM approval_log
		 WHERE proposal_id = $1
		 ORDER BY created_at ASC, id ASC`,
		[]any{id},
		scanLogEntry,
	)
	if err != nil {
		return nil, fmt.Errorf("query approval log: %w", err)
	}

	return &Detail{Proposal: p, Log: log}, nil
}

func (r *repo) Review(
	ctx context.Context,
	agent agents.Identity,
	id uuid.UUID,
	cmd ReviewCommand,
) (*ReviewResult, error) {
	if _, err := ParseDecision(string(cmd.Decision)); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(cmd.Notes) > maxNotes {
		return nil, fmt.Errorf("%w: notes exceed %d characters", ErrInvalidProposal, maxNotes)
	}

	next := cmd.Decision.Status()

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ReviewResult, error) {
		p, err := lock(ctx, tx, id)
		if err != nil {
			return ReviewResult{}, err
		}
		if !p.Status.Reviewable() {
			return ReviewResult{}, &StateError{
				Op:      "review",
				Current: p.Status,
				Allowed: []Status{StatusPendingReview},
			}
		}

		reviewedAt, err := repository.QueryScalar[time.Time](ctx, tx,
			`UPDATE proposals
			 SET status = $2, reviewer_key_id = $3, review_notes = $4,
			     validation_results = $5, reviewed_at = NOW(), updated_at = NOW()
			 WHERE id = $1
			 RETURNING reviewed_at`,
			id, next, agent.KeyID, cmd.Notes, nullable(cmd.ValidationResults),
		)
		if err != nil {
			return ReviewResult{}, fmt.Errorf("update proposal: %w", err)
		}

		if err := appendLog(ctx, tx, id, Action(cmd.Decision), agent.KeyID, cmd.ValidationResults, cmd.Notes); err != nil {
			return ReviewResult{}, err
		}

		return ReviewResult{
			ProposalID: id,
			Decision:   cmd.Decision,
			NewStatus:  next,
			Reviewer:   agent.KeyID,
			ReviewedAt: reviewedAt,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("proposal reviewed", "id", id, "decision", cmd.Decision, "reviewer", agent.KeyID)
	return &result, nil
}

func (r *repo) AnnotateSEO(
	ctx context.Context,
	agent agents.Identity,
	id uuid.UUID,
	cmd SEOCommand,
) (*SEOResult, error) {
	seo, err := FilterSEO(cmd)
	if err != nil {
		return nil, err
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (SEOResult, error) {
		p, err := lock(ctx, tx, id)
		if err != nil {
			return SEOResult{}, err
		}
		if !p.Status.Annotatable() {
			return SEOResult{}, &StateError{
				Op:      "add SEO to",
				Current: p.Status,
				Allowed: []Status{StatusApproved, StatusPendingSEO},
			}
		}

		processedAt, err := repository.QueryScalar[time.Time](ctx, tx,
			`UPDATE proposals
			 SET seo_metadata = $2, seo_editor_key_id = $3, seo_processed_at = NOW(),
			     status = $4, updated_at = NOW()
			 WHERE id = $1
			 RETURNING seo_processed_at`,
			id, seo, agent.KeyID, StatusPendingSEO,
		)
		if err != nil {
			return SEOResult{}, fmt.Errorf("update proposal: %w", err)
		}

		note := fmt.Sprintf("Added SEO metadata: [%s]", strings.Join(seo.Keys(), ", "))
		if err := appendLog(ctx, tx, id, ActionSEOComplete, agent.KeyID, nil, note); err != nil {
			return SEOResult{}, err
		}

		return SEOResult{
			ProposalID:  id,
			SEOMetadata: seo,
			SEOEditor:   agent.KeyID,
			ProcessedAt: processedAt,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("proposal annotated", "id", id, "fields", seo.Keys(), "seo_editor", agent.KeyID)
	return &result, nil
}

func (r *repo) Publish(ctx context.Context, agent agents.Identity, id uuid.UUID) (*PublishResult, error) {
	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (PublishResult, error) {
		p, err := lock(ctx, tx, id)
		if err != nil {
			return PublishResult{}, err
		}
		if !p.Status.Publishable() {
			return PublishResult{}, &StateError{
				Op:      "publish",
				Current: p.Status,
				Allowed: []Status{StatusApproved, StatusPendingSEO},
			}
		}
		if !p.Entity.Type.Publishable() {
			return PublishResult{}, fmt.Errorf("%w: %s", ErrUnpublishable, p.Entity.Type)
		}

		current, err := entities.LockProgram(ctx, tx, p.Entity.ID)
		if err != nil {
			return PublishResult{}, err
		}

		if r.strictPublish {
			if fields := Conflicts(p.Changes, p.PreviousValues, current); len(fields) > 0 {
				return PublishResult{}, &ConflictError{Fields: fields}
			}
		}

		next := Merge(current, p.Changes, p.ID, r.now(), p.SEOMetadata)

		historyID, err := entities.RecordProgramHistory(ctx, tx, entities.HistoryRecord{
			ProgramID: p.Entity.ID,
			Previous:  current,
			Next:      next,
			Diff:      p.Changes,
			AgentType: historyAgentType,
			AgentID:   agent.KeyID,
			ModelUsed: p.ModelUsed,
			Sources:   p.Sources,
			Reasoning: p.Reasoning,
		})
		if err != nil {
			return PublishResult{}, err
		}

		if err := entities.UpdateProgramExtracted(ctx, tx, p.Entity.ID, next); err != nil {
			return PublishResult{}, err
		}

		if signup := p.Changes.String("signup_url"); signup != "" {
			if err := entities.SyncProgramSignup(ctx, tx, p.Entity.ID, signup); err != nil {
				return PublishResult{}, err
			}
		}

		publishedAt, err := repository.QueryScalar[time.Time](ctx, tx,
			`UPDATE proposals
			 SET status = $2, published_at = NOW(), history_id = $3, updated_at = NOW()
			 WHERE id = $1
			 RETURNING published_at`,
			id, StatusPublished, historyID,
		)
		if err != nil {
			return PublishResult{}, fmt.Errorf("update proposal: %w", err)
		}

		note := fmt.Sprintf("Published to program_research. History ID: %d", historyID)
		if err := appendLog(ctx, tx, id, ActionPublish, agent.KeyID, nil, note); err != nil {
			return PublishResult{}, err
		}

		return PublishResult{
			ProposalID:     id,
			Status:         StatusPublished,
			HistoryID:      historyID,
			EntityID:       p.Entity.ID,
			ChangesApplied: p.Changes.Keys(),
			PublishedAt:    publishedAt,
			Publisher:      agent.KeyID,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info(
		"proposal published",
		"id", id,
		"program_id", result.EntityID,
		"history_id", result.HistoryID,
		"publisher", agent.KeyID,
	)
	return &result, nil
}

// lock reads a proposal and holds its row until the transaction ends.
func lock(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Proposal, error) {
	q, args, err := query.NewBuilder(projection).BuildSingle("ID", id)
	if err != nil {
		return Proposal{}, err
	}
	p, err := repository.QueryOne(ctx, tx, q+" FOR UPDATE OF p", args, scanProposal)
	if err != nil {
		return Proposal{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return p, nil
}

func appendLog(
	ctx context.Context,
	tx *sql.Tx,
	id uuid.UUID,
	action Action,
	agentID string,
	validation jsonmap.Map,
	notes string,
) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO approval_log (proposal_id, action, agent_key_id, validation_results, notes)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, action, agentID, nullable(validation), notes,
	)
	if err != nil {
		return fmt.Errorf("append approval log: %w", err)
	}
	return nil
}

// nullable stores an absent document as SQL NULL rather than {}.
func nullable(m jsonmap.Map) any {
	if m == nil {
		return nil
	}
	return m
}
