// Package proposals implements the editorial pipeline: researchers propose
// changes to entity documents, reviewers decide, SEO editors annotate, and
// publish commits the result to canonical data with a history record.
package proposals

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/affwiki/internal/entities"
	"github.com/JaimeStill/affwiki/pkg/jsonmap"
)

// Status is the lifecycle state of a proposal.
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusPendingSEO    Status = "pending_seo"
	StatusPublished     Status = "published"
)

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusPendingReview,
		StatusApproved,
		StatusPendingSEO,
		StatusPublished,
		StatusRejected,
	}
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if slices.Contains(Statuses(), st) {
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidProposal, s)
}

// Reviewable reports whether a review decision may be applied.
func (s Status) Reviewable() bool {
	return s == StatusPendingReview
}

// Annotatable reports whether SEO metadata may be written.
func (s Status) Annotatable() bool {
	return s == StatusApproved || s == StatusPendingSEO
}

// Publishable reports whether the proposal may be committed.
func (s Status) Publishable() bool {
	return s == StatusApproved || s == StatusPendingSEO
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusPublished
}

// Decision is a reviewer's verdict.
type Decision string

const (
	DecisionApprove        Decision = "approve"
	DecisionReject         Decision = "reject"
	DecisionRequestChanges Decision = "request_changes"
)

// ParseDecision validates a decision string.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionApprove, DecisionReject, DecisionRequestChanges:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
}

// Status returns the status a proposal moves to under this decision.
// Requesting changes leaves the proposal pending review.
func (d Decision) Status() Status {
	switch d {
	case DecisionApprove:
		return StatusApproved
	case DecisionReject:
		return StatusRejected
	}
	return StatusPendingReview
}

// Action is the kind of an approval log entry.
type Action string

const (
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionRequestChanges Action = "request_changes"
	ActionSEOComplete    Action = "seo_complete"
	ActionPublish        Action = "publish"
)

// Proposal is a request to change an entity's extracted document.
type Proposal struct {
	ID                uuid.UUID    `json:"id"`
	Entity            entities.Ref `json:"entity"`
	Status            Status       `json:"status"`
	Changes           jsonmap.Map  `json:"changes"`
	PreviousValues    jsonmap.Map  `json:"previous_values"`
	Sources           jsonmap.List `json:"sources"`
	Reasoning         *string      `json:"reasoning"`
	RawLLMResponse    *string      `json:"raw_llm_response,omitempty"`
	ModelUsed         *string      `json:"model_used"`
	ResearcherID      string       `json:"researcher"`
	ReviewerID        *string      `json:"reviewer"`
	ReviewNotes       *string      `json:"review_notes"`
	ValidationResults jsonmap.Map  `json:"validation_results"`
	ReviewedAt        *time.Time   `json:"reviewed_at"`
	SEOMetadata       jsonmap.Map  `json:"seo_metadata"`
	SEOEditorID       *string      `json:"seo_editor"`
	SEOProcessedAt    *time.Time   `json:"seo_processed_at"`
	HistoryID         *int64       `json:"history_id"`
	PublishedAt       *time.Time   `json:"published_at"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// LogEntry is one immutable approval log record.
type LogEntry struct {
	Action            Action      `json:"action"`
	AgentID           string      `json:"agent"`
	ValidationResults jsonmap.Map `json:"validation_results"`
	Notes             *string     `json:"notes"`
	CreatedAt         time.Time   `json:"at"`
}

// Detail is a proposal with its full approval log, oldest entry first.
type Detail struct {
	Proposal
	Log []LogEntry `json:"approval_log"`
}

// CreateCommand is a researcher's proposal submission.
type CreateCommand struct {
	EntityType     string       `json:"entity_type"`
	EntityID       int64        `json:"entity_id"`
	Changes        jsonmap.Map  `json:"changes"`
	Sources        jsonmap.List `json:"sources"`
	Reasoning      string       `json:"reasoning"`
	RawLLMResponse *string      `json:"raw_llm_response,omitempty"`
	ModelUsed      *string      `json:"model_used,omitempty"`
}

// ReviewCommand carries a review decision.
type ReviewCommand struct {
	Decision          Decision    `json:"decision"`
	Notes             string      `json:"notes"`
	ValidationResults jsonmap.Map `json:"validation_results,omitempty"`
}

// SEOCommand carries presentation metadata. Unknown keys are dropped.
type SEOCommand map[string]any

// CreateResult is returned after a proposal is filed.
type CreateResult struct {
	ProposalID   uuid.UUID    `json:"proposal_id"`
	Status       Status       `json:"status"`
	Entity       entities.Ref `json:"entity"`
	ChangesCount int          `json:"changes_count"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ReviewResult is returned after a review decision is recorded.
type ReviewResult struct {
	ProposalID uuid.UUID `json:"proposal_id"`
	Decision   Decision  `json:"decision"`
	NewStatus  Status    `json:"new_status"`
	Reviewer   string    `json:"reviewer"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// SEOResult is returned after SEO metadata is written.
type SEOResult struct {
	ProposalID  uuid.UUID   `json:"proposal_id"`
	SEOMetadata jsonmap.Map `json:"seo_metadata"`
	SEOEditor   string      `json:"seo_editor"`
	ProcessedAt time.Time   `json:"processed_at"`
}

// PublishResult is returned after a proposal is committed.
type PublishResult struct {
	ProposalID     uuid.UUID `json:"proposal_id"`
	Status         Status    `json:"status"`
	HistoryID      int64     `json:"history_id"`
	EntityID       int64     `json:"entity_id"`
	ChangesApplied []string  `json:"changes_applied"`
	PublishedAt    time.Time `json:"published_at"`
	Publisher      string    `json:"publisher"`
}
