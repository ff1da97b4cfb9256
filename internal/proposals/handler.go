package proposals

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/pkg/handlers"
	"github.com/JaimeStill/affwiki/pkg/pagination"
	"github.com/JaimeStill/affwiki/pkg/routes"
)

var (
	readers    = []agents.Role{agents.RoleReviewer, agents.RoleSEOEditor, agents.RoleAdmin, agents.RoleResearcher}
	writers    = []agents.Role{agents.RoleResearcher}
	reviewers  = []agents.Role{agents.RoleReviewer, agents.RoleAdmin}
	seoEditors = []agents.Role{agents.RoleSEOEditor, agents.RoleAdmin}
)

// Handler provides HTTP endpoints for the editorial pipeline.
type Handler struct {
	sys        System
	guard      *agents.Guard
	logger     *slog.Logger
	pagination pagination.Config
	maxBody    int64
}

// NewHandler creates a Handler. Request bodies are capped at maxBody bytes.
func NewHandler(
	sys System,
	guard *agents.Guard,
	logger *slog.Logger,
	pagination pagination.Config,
	maxBody int64,
) *Handler {
	return &Handler{
		sys:        sys,
		guard:      guard,
		logger:     logger.With("handler", "proposals"),
		pagination: pagination,
		maxBody:    maxBody,
	}
}

// Routes returns the route group for proposal endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/editorial/proposals",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.guard.Require(writers, h.Create)},
			{Method: "GET", Pattern: "", Handler: h.guard.Require(readers, h.List)},
			{Method: "GET", Pattern: "/{id}", Handler: h.guard.Require(readers, h.Find)},
			{Method: "POST", Pattern: "/{id}/review", Handler: h.guard.Require(reviewers, h.Review)},
			{Method: "POST", Pattern: "/{id}/seo", Handler: h.guard.Require(seoEditors, h.AnnotateSEO)},
			{Method: "POST", Pattern: "/{id}/publish", Handler: h.guard.Require(reviewers, h.Publish)},
		},
	}
}

// Create files a new proposal for review.
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

	handlers.RespondJSON(w, http.StatusCreated, result)
}

// List returns a page of proposals, newest first, filtered by status
// (default pending_review) and entity type.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ agents.Identity) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters, err := FiltersFromQuery(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a proposal with its approval log.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request, _ agents.Identity) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, detail)
}

// Review records a decision on a pending proposal.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request, agent agents.Identity) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	cmd, err := handlers.DecodeJSON[ReviewCommand](w, r, h.maxBody)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Review(r.Context(), agent, id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// AnnotateSEO writes presentation metadata onto an approved proposal.
func (h *Handler) AnnotateSEO(w http.ResponseWriter, r *http.Request, agent agents.Identity) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	cmd, err := handlers.DecodeJSON[SEOCommand](w, r, h.maxBody)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.AnnotateSEO(r.Context(), agent, id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Publish commits an approved proposal to the entity document.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request, agent agents.Identity) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	result, err := h.sys.Publish(r.Context(), agent, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}
