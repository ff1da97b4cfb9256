// Package agentstest provides an in-memory agents.System for handler tests.
package agentstest

import (
	"context"
	"sync"

	"github.com/JaimeStill/affwiki/internal/agents"
)

// Keys authenticates from a fixed key table and counts calls per key.
type Keys struct {
	mu    sync.Mutex
	keys  map[string]agents.Identity
	Calls map[string]int
}

// New returns a Keys fake holding one key per role, named "<role>-key".
func New() *Keys {
	k := &Keys{
		keys:  make(map[string]agents.Identity),
		Calls: make(map[string]int),
	}
	for _, r := range agents.Roles() {
		key := string(r) + "-key"
		k.keys[key] = agents.Identity{
			KeyID:  key,
			Name:   string(r) + "-agent",
			Role:   r,
			Scopes: []string{},
			Source: agents.SourceKey,
		}
	}
	return k
}

// Guard wraps the fake in an agents.Guard with no token verifier.
func (k *Keys) Guard() *agents.Guard {
	return agents.NewGuard(k, nil, discard())
}

func (k *Keys) Authenticate(_ context.Context, key string, allowed ...agents.Role) (*agents.Identity, error) {
	if key == "" {
		return nil, agents.ErrMissingKey
	}
	id, ok := k.keys[key]
	if !ok {
		return nil, agents.ErrInvalidKey
	}
	if !id.Role.Permits(allowed) {
		return nil, agents.ErrForbidden
	}
	k.mu.Lock()
	k.Calls[key]++
	k.mu.Unlock()
	return &id, nil
}

func (k *Keys) Create(context.Context, agents.CreateCommand) (*agents.Key, error) {
	return nil, agents.ErrInvalidKeySpec
}

func (k *Keys) List(context.Context) ([]agents.Key, error) {
	return []agents.Key{}, nil
}

func (k *Keys) Disable(context.Context, string) (*agents.Key, error) {
	return nil, agents.ErrKeyNotFound
}
