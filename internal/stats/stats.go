// Package stats reports editorial pipeline counters.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/pkg/handlers"
	"github.com/JaimeStill/affwiki/pkg/repository"
	"github.com/JaimeStill/affwiki/pkg/routes"
)

type ProposalCounts struct {
	PendingReview int `json:"pending_review"`
	Approved      int `json:"approved"`
	PendingSEO    int `json:"pending_seo"`
	Published     int `json:"published"`
	Rejected      int `json:"rejected"`
}

type HistoryCounts struct {
	TotalChanges int `json:"total_changes"`
}

type VerificationCounts struct {
	BrokenURLs int `json:"broken_urls"`
}

type LinkRuleCounts struct {
	Active int `json:"active"`
}

// Stats is the editorial dashboard snapshot.
type Stats struct {
	Proposals    ProposalCounts     `json:"proposals"`
	History      HistoryCounts      `json:"history"`
	Verification VerificationCounts `json:"verification"`
	LinkRules    LinkRuleCounts     `json:"link_rules"`
}

type System interface {
	Stats(ctx context.Context) (*Stats, error)
}

// Broken URLs count programs whose most recent check failed, matching the
// broken URL listing rather than every failed run ever recorded.
const statsQuery = `
	SELECT
		COUNT(*) FILTER (WHERE status = 'pending_review'),
		COUNT(*) FILTER (WHERE status = 'approved'),
		COUNT(*) FILTER (WHERE status = 'pending_seo'),
		COUNT(*) FILTER (WHERE status = 'published'),
		COUNT(*) FILTER (WHERE status = 'rejected'),
		(SELECT COUNT(*) FROM program_research_history),
		(SELECT COUNT(*) FROM (
			SELECT DISTINCT ON (program_id) status
			FROM verification_runs
			ORDER BY program_id, checked_at DESC, id DESC
		) latest WHERE latest.status IN ('broken', 'timeout')),
		(SELECT COUNT(*) FROM link_rules WHERE is_enabled)
	FROM proposals`

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{db: db, logger: logger.With("system", "stats")}
}

func (r *repo) Stats(ctx context.Context) (*Stats, error) {
	return repository.QueryOne(ctx, r.db, statsQuery, nil, func(s repository.Scanner) (*Stats, error) {
		var st Stats
		err := s.Scan(
			&st.Proposals.PendingReview,
			&st.Proposals.Approved,
			&st.Proposals.PendingSEO,
			&st.Proposals.Published,
			&st.Proposals.Rejected,
			&st.History.TotalChanges,
			&st.Verification.BrokenURLs,
			&st.LinkRules.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("query stats: %w", err)
		}
		return &st, nil
	})
}

type Handler struct {
	sys    System
	guard  *agents.Guard
	logger *slog.Logger
}

func NewHandler(sys System, guard *agents.Guard, logger *slog.Logger) *Handler {
	return &Handler{sys: sys, guard: guard, logger: logger.With("handler", "stats")}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/editorial/stats",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.guard.Require(agents.Roles(), h.Get)},
		},
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, _ agents.Identity) {
	st, err := h.sys.Stats(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, st)
}
