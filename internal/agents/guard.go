package agents

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/affwiki/pkg/handlers"
)

// HeaderKey carries the agent key on every pipeline request.
const HeaderKey = "X-Agent-Key"

// AuthorizedFunc is an HTTP handler that receives the authenticated caller.
type AuthorizedFunc func(w http.ResponseWriter, r *http.Request, id Identity)

// Guard wraps handlers with authentication and role checks.
type Guard struct {
	sys    System
	tokens TokenVerifier
	logger *slog.Logger
}

// NewGuard creates a Guard. tokens may be nil, in which case only
// agent keys are accepted.
func NewGuard(sys System, tokens TokenVerifier, logger *slog.Logger) *Guard {
	return &Guard{
		sys:    sys,
		tokens: tokens,
		logger: logger.With("handler", "agents"),
	}
}

// Require returns a handler that authenticates the request, enforces that
// the caller holds one of roles, and then invokes fn with the Identity.
func (g *Guard) Require(roles []Role, fn AuthorizedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := g.identify(r, roles)
		if err != nil {
			handlers.RespondError(w, g.logger, MapHTTPStatus(err), err)
			return
		}
		fn(w, r, *id)
	}
}

func (g *Guard) identify(r *http.Request, roles []Role) (*Identity, error) {
	if key := r.Header.Get(HeaderKey); key != "" {
		return g.sys.Authenticate(r.Context(), key, roles...)
	}

	token, ok := bearer(r)
	if !ok || g.tokens == nil {
		return nil, ErrMissingKey
	}

	id, err := g.tokens.VerifyToken(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if !id.Role.Permits(roles) {
		return nil, ErrForbidden
	}
	return id, nil
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
