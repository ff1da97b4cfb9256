package verification

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/pkg/handlers"
	"github.com/JaimeStill/affwiki/pkg/routes"
)

var (
	verifiers = []agents.Role{agents.RoleReviewer, agents.RoleAdmin}
	readers   = []agents.Role{agents.RoleResearcher, agents.RoleReviewer, agents.RoleAdmin}
)

// Handler provides HTTP endpoints for URL verification.
type Handler struct {
	sys     System
	guard   *agents.Guard
	logger  *slog.Logger
	maxBody int64
}

func NewHandler(sys System, guard *agents.Guard, logger *slog.Logger, maxBody int64) *Handler {
	return &Handler{
		sys:     sys,
		guard:   guard,
		logger:  logger.With("handler", "verification"),
		maxBody: maxBody,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/editorial/verify",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/urls", Handler: h.guard.Require(verifiers, h.Verify)},
			{Method: "GET", Pattern: "/broken", Handler: h.guard.Require(readers, h.Broken)},
		},
	}
}

// Verify checks a batch of program URLs and records each result.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request, agent agents.Identity) {
	cmd, err := handlers.DecodeJSON[VerifyCommand](w, r, h.maxBody)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	summary, err := h.sys.VerifyBatch(r.Context(), agent, cmd.URLs)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, summary)
}

// Broken lists programs whose latest check failed.
func (h *Handler) Broken(w http.ResponseWriter, r *http.Request, _ agents.Identity) {
	q, err := brokenQueryFrom(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	page, err := h.sys.Broken(r.Context(), q)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, page)
}

func brokenQueryFrom(values url.Values) (BrokenQuery, error) {
	q := BrokenQuery{Limit: DefaultBrokenLimit, MinAgeHours: DefaultMinAgeHours}

	if s := values.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxBrokenLimit {
			return q, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidRequest, MaxBrokenLimit)
		}
		q.Limit = n
	}

	if s := values.Get("min_age_hours"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%w: min_age_hours must be a non-negative integer", ErrInvalidRequest)
		}
		q.MinAgeHours = n
	}

	return q, nil
}
