package agents

import "context"

// System authenticates callers and administers agent keys.
type System interface {
	// Authenticate resolves key, requires its role to be in allowed,
	// then records usage. Accounting failure fails the call.
	Authenticate(ctx context.Context, key string, allowed ...Role) (*Identity, error)

	Create(ctx context.Context, cmd CreateCommand) (*Key, error)
	List(ctx context.Context) ([]Key, error)
	Disable(ctx context.Context, id string) (*Key, error)
}
