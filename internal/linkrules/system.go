package linkrules

import (
	"context"

	"github.com/JaimeStill/affwiki/internal/agents"
)

// System manages link rules.
type System interface {
	ListEnabled(ctx context.Context) ([]Rule, error)
	Create(ctx context.Context, agent agents.Identity, cmd CreateCommand) (*CreateResult, error)
}
