// Package agents authenticates pipeline callers and authorizes them by role.
//
// Every pipeline operation receives the caller as an explicit Identity value
// produced here. Keys are looked up, checked against the allowed roles, and
// usage-accounted before the operation executes.
package agents

import (
	"fmt"
	"slices"
	"time"
)

// Role is the capability class of an agent key.
type Role string

const (
	RoleResearcher Role = "researcher"
	RoleReviewer   Role = "reviewer"
	RoleSEOEditor  Role = "seo_editor"
	RoleAdmin      Role = "admin"
)

// Roles returns every role, most privileged first.
func Roles() []Role {
	return []Role{RoleAdmin, RoleReviewer, RoleSEOEditor, RoleResearcher}
}

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if slices.Contains(Roles(), r) {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Permits reports whether r is one of allowed. An empty allowed set permits every role.
func (r Role) Permits(allowed []Role) bool {
	return len(allowed) == 0 || slices.Contains(allowed, r)
}

// Source identifies how an Identity was established.
type Source string

const (
	SourceKey  Source = "key"
	SourceOIDC Source = "oidc"
)

// Identity is an authenticated caller.
type Identity struct {
	KeyID  string   `json:"key_id"`
	Name   string   `json:"name"`
	Role   Role     `json:"role"`
	Scopes []string `json:"scopes"`
	Source Source   `json:"source"`
}

// Key is a stored agent credential with its usage counters.
type Key struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Role          Role       `json:"agent_type"`
	Scopes        []string   `json:"scopes"`
	RateLimit     int        `json:"rate_limit"`
	Enabled       bool       `json:"is_enabled"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	TotalRequests int64      `json:"total_requests"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Identity returns the caller identity represented by the key.
func (k Key) Identity() Identity {
	return Identity{
		KeyID:  k.ID,
		Name:   k.Name,
		Role:   k.Role,
		Scopes: k.Scopes,
		Source: SourceKey,
	}
}

// CreateCommand describes a new agent key.
type CreateCommand struct {
	Name      string     `json:"name"`
	Role      Role       `json:"agent_type"`
	Scopes    []string   `json:"scopes"`
	RateLimit int        `json:"rate_limit"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (c CreateCommand) validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidKeySpec)
	}
	if _, err := ParseRole(string(c.Role)); err != nil {
		return err
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidKeySpec)
	}
	return nil
}
