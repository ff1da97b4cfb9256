package linkrules

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/pkg/handlers"
	"github.com/JaimeStill/affwiki/pkg/routes"
)

var admins = []agents.Role{agents.RoleAdmin}

// RewriteResult is the response of the rewrite endpoint.
type RewriteResult struct {
	URL       string `json:"url"`
	Rewritten string `json:"rewritten"`
	Changed   bool   `json:"changed"`
}

// Handler provides HTTP endpoints for link rules.
type Handler struct {
	sys      System
	rewriter *Rewriter
	guard    *agents.Guard
	logger   *slog.Logger
	maxBody  int64
}

func NewHandler(sys System, rewriter *Rewriter, guard *agents.Guard, logger *slog.Logger, maxBody int64) *Handler {
	return &Handler{
		sys:      sys,
		rewriter: rewriter,
		guard:    guard,
		logger:   logger.With("handler", "linkrules"),
		maxBody:  maxBody,
	}
}

// Routes exposes the rule listing and rewriting publicly; the rendering
// layer calls them without a key.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/editorial/link-rules",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "", Handler: h.guard.Require(admins, h.Create)},
			{Method: "GET", Pattern: "/rewrite", Handler: h.Rewrite},
		},
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.sys.ListEnabled(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, RuleList{Rules: rules, Total: len(rules)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, agent agents.Identity) {
	cmd, err := handlers.DecodeJSON[CreateCommand](w, r, h.maxBody)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Create(r.Context(), agent, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	h.rewriter.Invalidate()

	handlers.RespondJSON(w, http.StatusCreated, result)
}

func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := q.Get("url")
	if raw == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("url query parameter is required"))
		return
	}

	out, err := h.rewriter.Rewrite(r.Context(), raw, Params{
		UTMSource:   q.Get("utm_source"),
		UTMMedium:   q.Get("utm_medium"),
		UTMCampaign: q.Get("utm_campaign"),
	})
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, RewriteResult{URL: raw, Rewritten: out, Changed: out != raw})
}
