package verification

import (
	"context"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/pkg/urlcheck"
)

// System records URL checks and queries their history.
type System interface {
	// Record stores one immutable check result and returns the run id.
	Record(ctx context.Context, agentID string, t Target, out urlcheck.Outcome) (int64, error)

	// VerifyBatch checks every target and records each outcome. A failed
	// check or a skipped target does not abort the batch.
	VerifyBatch(ctx context.Context, agent agents.Identity, targets []Target) (*Summary, error)

	Broken(ctx context.Context, q BrokenQuery) (*BrokenPage, error)
	StaleCandidates(ctx context.Context, limit int) ([]Candidate, error)
}
