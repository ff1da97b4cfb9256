package evidence

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/pkg/handlers"
	"github.com/JaimeStill/affwiki/pkg/routes"
)

var capturers = []agents.Role{agents.RoleResearcher, agents.RoleReviewer, agents.RoleAdmin}

// CaptureCommand names the page to snapshot.
type CaptureCommand struct {
	URL string `json:"url"`
}

// Handler exposes page capture over HTTP.
type Handler struct {
	capturer *Capturer
	guard    *agents.Guard
	logger   *slog.Logger
	maxBody  int64
}

func NewHandler(capturer *Capturer, guard *agents.Guard, logger *slog.Logger, maxBody int64) *Handler {
	return &Handler{
		capturer: capturer,
		guard:    guard,
		logger:   logger.With("handler", "evidence"),
		maxBody:  maxBody,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/editorial/evidence",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.guard.Require(capturers, h.Capture)},
			{Method: "GET", Pattern: "/{hash}", Handler: h.guard.Require(capturers, h.Download)},
		},
	}
}

// Capture snapshots a page and returns its content hash.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request, _ agents.Identity) {
	cmd, err := handlers.DecodeJSON[CaptureCommand](w, r, h.maxBody)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	snap, err := h.capturer.Capture(r.Context(), cmd.URL)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, snap)
}

// Download streams a stored snapshot page.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request, _ agents.Identity) {
	body, err := h.capturer.Open(r.Context(), r.PathValue("hash"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "sandbox")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
