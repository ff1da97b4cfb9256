package agents_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JaimeStill/affwiki/internal/agents"
)

func TestParseRole(t *testing.T) {
	for _, r := range agents.Roles() {
		got, err := agents.ParseRole(string(r))
		if err != nil || got != r {
			t.Errorf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}

	if _, err := agents.ParseRole("editor"); !errors.Is(err, agents.ErrInvalidRole) {
		t.Errorf("ParseRole(editor) err = %v, want ErrInvalidRole", err)
	}
}

func TestRolePermits(t *testing.T) {
	tests := []struct {
		name    string
		role    agents.Role
		allowed []agents.Role
		want    bool
	}{
		{"empty allows any", agents.RoleResearcher, nil, true},
		{"listed", agents.RoleReviewer, []agents.Role{agents.RoleReviewer, agents.RoleAdmin}, true},
		{"not listed", agents.RoleResearcher, []agents.Role{agents.RoleReviewer, agents.RoleAdmin}, false},
		{"admin only where listed", agents.RoleAdmin, []agents.Role{agents.RoleResearcher}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.Permits(tt.allowed); got != tt.want {
				t.Errorf("Permits = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoleFromClaim(t *testing.T) {
	tests := []struct {
		name  string
		claim any
		want  agents.Role
		ok    bool
	}{
		{"single string", "reviewer", agents.RoleReviewer, true},
		{"list picks most privileged", []any{"researcher", "admin"}, agents.RoleAdmin, true},
		{"string slice", []string{"seo_editor"}, agents.RoleSEOEditor, true},
		{"unknown values", []any{"viewer", 3}, "", false},
		{"missing", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := agents.RoleFromClaim(tt.claim)
			if got != tt.want || ok != tt.ok {
				t.Errorf("RoleFromClaim = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{agents.ErrMissingKey, http.StatusUnauthorized},
		{agents.ErrInvalidKey, http.StatusUnauthorized},
		{fmt.Errorf("%w: researcher", agents.ErrForbidden), http.StatusForbidden},
		{agents.ErrKeyNotFound, http.StatusNotFound},
		{agents.ErrDuplicateKey, http.StatusConflict},
		{agents.ErrInvalidRole, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := agents.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
