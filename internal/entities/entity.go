// Package entities reads and writes the canonical catalog entities whose
// extracted documents the editorial pipeline amends.
package entities

import (
	"fmt"
	"slices"

	"github.com/JaimeStill/affwiki/pkg/jsonmap"
)

// Type identifies an entity kind.
type Type string

const (
	TypeProgram  Type = "program"
	TypeCategory Type = "category"
	TypeNetwork  Type = "network"
)

// Types returns every entity kind.
func Types() []Type {
	return []Type{TypeProgram, TypeCategory, TypeNetwork}
}

// ParseType rejects anything other than a known entity kind.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if slices.Contains(Types(), t) {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Publishable reports whether proposals against this kind can be published.
// Only programs have a research history table to commit into.
func (t Type) Publishable() bool {
	return t == TypeProgram
}

// Entity is a catalog row with its extracted document.
type Entity struct {
	Type      Type        `json:"type"`
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Extracted jsonmap.Map `json:"extracted"`
}

// Ref is the short entity reference returned with proposals.
type Ref struct {
	Type Type   `json:"type"`
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Ref returns the entity's short reference.
func (e Entity) Ref() Ref {
	return Ref{Type: e.Type, ID: e.ID, Name: e.Name}
}

// HistoryRecord is one immutable publish record for a program.
type HistoryRecord struct {
	ProgramID int64
	Previous  jsonmap.Map
	Next      jsonmap.Map
	Diff      jsonmap.Map
	AgentType string
	AgentID   string
	ModelUsed *string
	Sources   jsonmap.List
	Reasoning *string
}

// Program is the program row used by URL verification and research agents.
type Program struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Domain    string      `json:"domain"`
	SignupURL *string     `json:"signup_url,omitempty"`
	Extracted jsonmap.Map `json:"extracted"`
}

// Signup returns the researched signup URL, falling back to the program
// row. It returns "" when neither is set.
func (p Program) Signup() string {
	if u := p.Extracted.String("signup_url"); u != "" {
		return u
	}
	if p.SignupURL != nil {
		return *p.SignupURL
	}
	return ""
}
