package agents

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// TokenVerifier resolves a bearer token into an operator Identity.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, raw string) (*Identity, error)
}

// OIDCVerifier verifies ID tokens issued for operators by an OpenID
// Connect provider. The configured roles claim selects the Role.
type OIDCVerifier struct {
	verifier   *oidc.IDTokenVerifier
	rolesClaim string
}

// NewOIDCVerifier discovers the issuer and builds a verifier for clientID.
func NewOIDCVerifier(ctx context.Context, issuer, clientID, rolesClaim string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer: %w", err)
	}
	return &OIDCVerifier{
		verifier:   provider.Verifier(&oidc.Config{ClientID: clientID}),
		rolesClaim: rolesClaim,
	}, nil
}

// VerifyToken validates raw and maps its claims to an Identity.
// Operator identities are not backed by a key row and carry the
// "oidc:" prefixed subject as KeyID.
func (v *OIDCVerifier) VerifyToken(ctx context.Context, raw string) (*Identity, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	var claims map[string]any
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	role, ok := RoleFromClaim(claims[v.rolesClaim])
	if !ok {
		return nil, ErrForbidden
	}

	name, _ := claims["preferred_username"].(string)
	if name == "" {
		name, _ = claims["email"].(string)
	}
	if name == "" {
		name = tok.Subject
	}

	return &Identity{
		KeyID:  "oidc:" + tok.Subject,
		Name:   name,
		Role:   role,
		Scopes: []string{},
		Source: SourceOIDC,
	}, nil
}

// RoleFromClaim picks the most privileged known role from a claim value,
// which may be a single string or a list of strings.
func RoleFromClaim(claim any) (Role, bool) {
	held := make(map[Role]bool)
	switch v := claim.(type) {
	case string:
		held[Role(v)] = true
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				held[Role(s)] = true
			}
		}
	case []string:
		for _, s := range v {
			held[Role(s)] = true
		}
	}

	for _, r := range Roles() {
		if held[r] {
			return r, true
		}
	}
	return "", false
}
