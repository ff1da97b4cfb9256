package proposals

import (
	"net/url"

	"github.com/JaimeStill/affwiki/internal/entities"
	"github.com/JaimeStill/affwiki/pkg/query"
	"github.com/JaimeStill/affwiki/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "proposals", "p").
	Join("LEFT JOIN public.programs pg ON p.entity_type = 'program' AND pg.id = p.entity_id").
	Join("LEFT JOIN public.categories c ON p.entity_type = 'category' AND c.id = p.entity_id").
	Join("LEFT JOIN public.cpa_networks n ON p.entity_type = 'network' AND n.id = p.entity_id").
	Project("id", "ID").
	Project("entity_type", "EntityType").
	Project("entity_id", "EntityID").
	ProjectExpr("COALESCE(pg.name, c.name, n.name, '')", "EntityName").
	Project("status", "Status").
	Project("changes", "Changes").
	Project("previous_values", "PreviousValues").
	Project("sources", "Sources").
	Project("reasoning", "Reasoning").
	Project("raw_llm_response", "RawLLMResponse").
	Project("model_used", "ModelUsed").
	Project("researcher_key_id", "ResearcherID").
	Project("reviewer_key_id", "ReviewerID").
	Project("review_notes", "ReviewNotes").
	Project("validation_results", "ValidationResults").
	Project("reviewed_at", "ReviewedAt").
	Project("seo_metadata", "SEOMetadata").
	Project("seo_editor_key_id", "SEOEditorID").
	Project("seo_processed_at", "SEOProcessedAt").
	Project("history_id", "HistoryID").
	Project("published_at", "PublishedAt").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters narrows proposal listings. A nil Status lists pending_review.
type Filters struct {
	Status     *Status        `json:"status,omitempty"`
	EntityType *entities.Type `json:"entity_type,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	status := StatusPendingReview
	if f.Status != nil {
		status = *f.Status
	}
	return b.
		WhereEquals("Status", status).
		WhereEquals("EntityType", f.EntityType)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	if s := values.Get("status"); s != "" {
		status, err := ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = &status
	}

	if t := values.Get("entity_type"); t != "" {
		typ, err := entities.ParseType(t)
		if err != nil {
			return f, err
		}
		f.EntityType = &typ
	}

	return f, nil
}

func scanProposal(s repository.Scanner) (Proposal, error) {
	var p Proposal
	err := s.Scan(
		&p.ID,
		&p.Entity.Type,
		&p.Entity.ID,
		&p.Entity.Name,
		&p.Status,
		&p.Changes,
		&p.PreviousValues,
		&p.Sources,
		&p.Reasoning,
		&p.RawLLMResponse,
		&p.ModelUsed,
		&p.ResearcherID,
		&p.ReviewerID,
		&p.ReviewNotes,
		&p.ValidationResults,
		&p.ReviewedAt,
		&p.SEOMetadata,
		&p.SEOEditorID,
		&p.SEOProcessedAt,
		&p.HistoryID,
		&p.PublishedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func scanLogEntry(s repository.Scanner) (LogEntry, error) {
	var e LogEntry
	err := s.Scan(
		&e.Action,
		&e.AgentID,
		&e.ValidationResults,
		&e.Notes,
		&e.CreatedAt,
	)
	return e, err
}
