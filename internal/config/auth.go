package config

import (
	"fmt"
	"os"
)

const (
	EnvAuthIssuer     = "AFFWIKI_AUTH_OIDC_ISSUER"
	EnvAuthClientID   = "AFFWIKI_AUTH_OIDC_CLIENT_ID"
	EnvAuthRolesClaim = "AFFWIKI_AUTH_OIDC_ROLES_CLAIM"
)

// AuthConfig configures operator sign-in. Agent keys are always accepted;
// OIDC bearer tokens are accepted only when an issuer is set.
type AuthConfig struct {
	OIDC OIDCConfig `toml:"oidc"`
}

type OIDCConfig struct {
	Issuer     string `toml:"issuer"`
	ClientID   string `toml:"client_id"`
	RolesClaim string `toml:"roles_claim"`
}

// Enabled reports whether OIDC bearer tokens should be verified.
func (c *OIDCConfig) Enabled() bool {
	return c.Issuer != ""
}

func (c *AuthConfig) Finalize() error {
	if c.OIDC.RolesClaim == "" {
		c.OIDC.RolesClaim = "roles"
	}
	if v := os.Getenv(EnvAuthIssuer); v != "" {
		c.OIDC.Issuer = v
	}
	if v := os.Getenv(EnvAuthClientID); v != "" {
		c.OIDC.ClientID = v
	}
	if v := os.Getenv(EnvAuthRolesClaim); v != "" {
		c.OIDC.RolesClaim = v
	}

	if c.OIDC.Enabled() && c.OIDC.ClientID == "" {
		return fmt.Errorf("oidc client_id required when issuer is set")
	}
	return nil
}

func (c *AuthConfig) Merge(overlay *AuthConfig) {
	if overlay.OIDC.Issuer != "" {
		c.OIDC.Issuer = overlay.OIDC.Issuer
	}
	if overlay.OIDC.ClientID != "" {
		c.OIDC.ClientID = overlay.OIDC.ClientID
	}
	if overlay.OIDC.RolesClaim != "" {
		c.OIDC.RolesClaim = overlay.OIDC.RolesClaim
	}
}
