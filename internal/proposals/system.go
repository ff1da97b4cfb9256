package proposals

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/pkg/pagination"
)

// System is the editorial pipeline. Mutating operations take the
// authenticated caller explicitly.
type System interface {
	Create(ctx context.Context, agent agents.Identity, cmd CreateCommand) (*CreateResult, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Proposal], error)

	Find(ctx context.Context, id uuid.UUID) (*Detail, error)
	Review(ctx context.Context, agent agents.Identity, id uuid.UUID, cmd ReviewCommand) (*ReviewResult, error)
	AnnotateSEO(ctx context.Context, agent agents.Identity, id uuid.UUID, cmd SEOCommand) (*SEOResult, error)
	Publish(ctx context.Context, agent agents.Identity, id uuid.UUID) (*PublishResult, error)
}
