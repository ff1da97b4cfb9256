package verification

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/entities"
	"github.com/JaimeStill/affwiki/pkg/repository"
	"github.com/JaimeStill/affwiki/pkg/urlcheck"
)

// MaxBatch caps the targets in one VerifyBatch call.
const MaxBatch = 100

// Checker checks a single URL. *urlcheck.Checker satisfies it.
type Checker interface {
	Check(ctx context.Context, url string) urlcheck.Outcome
}

type repo struct {
	db      *sql.DB
	checker Checker
	workers int
	logger  *slog.Logger
}

// New creates a verification System that runs at most workers checks
// concurrently.
func New(db *sql.DB, checker Checker, workers int, logger *slog.Logger) System {
	if workers < 1 {
		workers = 1
	}
	return &repo{
		db:      db,
		checker: checker,
		workers: workers,
		logger:  logger.With("system", "verification"),
	}
}

func (r *repo) Record(ctx context.Context, agentID string, t Target, out urlcheck.Outcome) (int64, error) {
	if t.URLType == "" {
		t.URLType = URLTypeSignup
	}
	if out.URL == "" {
		out.URL = t.URL
	}
	return r.insert(ctx, agentID, t, resultOf(t, out))
}

func (r *repo) insert(ctx context.Context, agentID string, t Target, res Result) (int64, error) {
	q, args, err := insertRun(agentID, t, res).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	id, err := repository.QueryScalar[int64](ctx, r.db, q, args...)
	if err != nil {
		return 0, fmt.Errorf("record verification run: %w", repository.MapError(err, ErrProgramNotFound, ErrInvalidRequest))
	}
	return id, nil
}

func (r *repo) VerifyBatch(ctx context.Context, agent agents.Identity, targets []Target) (*Summary, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no urls", ErrInvalidRequest)
	}
	if len(targets) > MaxBatch {
		return nil, fmt.Errorf("%w: at most %d urls per request", ErrInvalidRequest, MaxBatch)
	}

	programs, err := r.programs(ctx, targets)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, t := range targets {
		if t.URLType == "" {
			t.URLType = URLTypeSignup
		}

		p, ok := programs[t.ProgramID]
		if !ok {
			results[i] = Result{ProgramID: t.ProgramID, URLType: t.URLType, Skipped: ErrProgramNotFound.Error()}
			continue
		}
		if t.URL == "" {
			t.URL = p.Signup()
		}
		if t.URL == "" {
			results[i] = Result{ProgramID: t.ProgramID, URLType: t.URLType, Skipped: "no url provided"}
			continue
		}

		g.Go(func() error {
			res := resultOf(t, r.checker.Check(gctx, t.URL))

			id, err := r.insert(gctx, agent.KeyID, t, res)
			if err != nil {
				r.logger.Warn("verification run not recorded", "program_id", t.ProgramID, "error", err)
			}
			res.RunID = id
			results[i] = res
			return nil
		})
	}

	g.Wait()

	summary := &Summary{Results: results}
	for _, res := range results {
		summary.Counts.add(res)
		if res.Skipped == "" {
			summary.Verified++
		}
	}

	r.logger.Info(
		"urls verified",
		"agent", agent.KeyID,
		"verified", summary.Verified,
		"broken", summary.Counts.Broken,
		"timeout", summary.Counts.Timeout,
	)
	return summary, nil
}

func (r *repo) programs(ctx context.Context, targets []Target) (map[int64]entities.Program, error) {
	ids := make([]int64, 0, len(targets))
	for _, t := range targets {
		if t.ProgramID <= 0 {
			return nil, fmt.Errorf("%w: program_id is required", ErrInvalidRequest)
		}
		ids = append(ids, t.ProgramID)
	}

	found, err := entities.FindPrograms(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]entities.Program, len(found))
	for _, p := range found {
		out[p.ID] = p
	}
	return out, nil
}

func (r *repo) Broken(ctx context.Context, q BrokenQuery) (*BrokenPage, error) {
	if q.Limit < 1 {
		q.Limit = DefaultBrokenLimit
	}
	if q.Limit > MaxBrokenLimit {
		q.Limit = MaxBrokenLimit
	}
	if q.MinAgeHours < 0 {
		q.MinAgeHours = 0
	}

	stmt, args, err := brokenQuery(q).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build broken query: %w", err)
	}

	items, err := repository.QueryMany(ctx, r.db, stmt, args, scanBroken)
	if err != nil {
		return nil, fmt.Errorf("query broken urls: %w", err)
	}

	return &BrokenPage{
		Items:       items,
		Total:       len(items),
		Limit:       q.Limit,
		MinAgeHours: q.MinAgeHours,
	}, nil
}

func (r *repo) StaleCandidates(ctx context.Context, limit int) ([]Candidate, error) {
	if limit < 1 {
		limit = DefaultBrokenLimit
	}

	stmt, args, err := candidatesQuery(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidates query: %w", err)
	}

	candidates, err := repository.QueryMany(ctx, r.db, stmt, args, scanCandidate)
	if err != nil {
		return nil, fmt.Errorf("query stale candidates: %w", err)
	}
	return candidates, nil
}

func resultOf(t Target, out urlcheck.Outcome) Result {
	return Result{
		ProgramID:      t.ProgramID,
		URLType:        t.URLType,
		Outcome:        out,
		ResponseTimeMS: out.ResponseTimeMS(),
	}
}
