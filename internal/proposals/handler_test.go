package proposals_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/agents/agentstest"
	"github.com/JaimeStill/affwiki/internal/entities"
	"github.com/JaimeStill/affwiki/internal/proposals"
	"github.com/JaimeStill/affwiki/pkg/pagination"
)

type mockSystem struct {
	createFn  func(ctx context.Context, agent agents.Identity, cmd proposals.CreateCommand) (*proposals.CreateResult, error)
	listFn    func(ctx context.Context, page pagination.PageRequest, filters proposals.Filters) (*pagination.PageResult[proposals.Proposal], error)
	findFn    func(ctx context.Context, id uuid.UUID) (*proposals.Detail, error)
	reviewFn  func(ctx context.Context, agent agents.Identity, id uuid.UUID, cmd proposals.ReviewCommand) (*proposals.ReviewResult, error)
	seoFn     func(ctx context.Context, agent agents.Identity, id uuid.UUID, cmd proposals.SEOCommand) (*proposals.SEOResult, error)
	publishFn func(ctx context.Context, agent agents.Identity, id uuid.UUID) (*proposals.PublishResult, error)
}

func (m *mockSystem) Create(ctx context.Context, agent agents.Identity, cmd proposals.CreateCommand) (*proposals.CreateResult, error) {
	return m.createFn(ctx, agent, cmd)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters proposals.Filters) (*pagination.PageResult[proposals.Proposal], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*proposals.Detail, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Review(ctx context.Context, agent agents.Identity, id uuid.UUID, cmd proposals.ReviewCommand) (*proposals.ReviewResult, error) {
	return m.reviewFn(ctx, agent, id, cmd)
}

func (m *mockSystem) AnnotateSEO(ctx context.Context, agent agents.Identity, id uuid.UUID, cmd proposals.SEOCommand) (*proposals.SEOResult, error) {
	return m.seoFn(ctx, agent, id, cmd)
}

func (m *mockSystem) Publish(ctx context.Context, agent agents.Identity, id uuid.UUID) (*proposals.PublishResult, error) {
	return m.publishFn(ctx, agent, id)
}

var sampleID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

func newTestHandler(sys *mockSystem) *proposals.Handler {
	return proposals.NewHandler(
		sys,
		agentstest.New().Guard(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultLimit: 50, MaxLimit: 200},
		1<<20,
	)
}

func setupMux(h *proposals.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func do(mux *http.ServeMux, method, path, key string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set(agents.HeaderKey, key)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreate(t *testing.T) {
	var gotAgent agents.Identity
	sys := &mockSystem{
		createFn: func(_ context.Context, agent agents.Identity, cmd proposals.CreateCommand) (*proposals.CreateResult, error) {
			gotAgent = agent
			if cmd.EntityID == 404 {
				return nil, entities.ErrNotFound
			}
			return &proposals.CreateResult{
				ProposalID:   sampleID,
				Status:       proposals.StatusPendingReview,
				Entity:       entities.Ref{Type: entities.TypeProgram, ID: cmd.EntityID, Name: "Acme"},
				ChangesCount: len(cmd.Changes),
				CreatedAt:    time.Now(),
			}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	body := map[string]any{"entity_type": "program", "entity_id": 42, "changes": map[string]any{"commission_rate": "20%"}}

	t.Run("researcher creates", func(t *testing.T) {
		rec := do(mux, "POST", "/editorial/proposals", "researcher-key", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
		}
		var res proposals.CreateResult
		json.NewDecoder(rec.Body).Decode(&res)
		if res.ProposalID != sampleID || res.ChangesCount != 1 || res.Entity.Name != "Acme" {
			t.Errorf("result = %+v", res)
		}
		if gotAgent.KeyID != "researcher-key" {
			t.Errorf("agent = %+v", gotAgent)
		}
	})

	t.Run("reviewer forbidden", func(t *testing.T) {
		rec := do(mux, "POST", "/editorial/proposals", "reviewer-key", body)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		rec := do(mux, "POST", "/editorial/proposals", "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("missing entity", func(t *testing.T) {
		missing := map[string]any{"entity_type": "program", "entity_id": 404, "changes": map[string]any{"x": 1}}
		rec := do(mux, "POST", "/editorial/proposals", "researcher-key", missing)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/editorial/proposals", bytes.NewBufferString("{"))
		req.Header.Set(agents.HeaderKey, "researcher-key")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerList(t *testing.T) {
	var gotFilters proposals.Filters
	var gotPage pagination.PageRequest
	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, filters proposals.Filters) (*pagination.PageResult[proposals.Proposal], error) {
			gotPage, gotFilters = page, filters
			result := pagination.NewPageResult([]proposals.Proposal{{ID: sampleID}}, 1, page)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	t.Run("filters parsed", func(t *testing.T) {
		rec := do(mux, "GET", "/editorial/proposals?status=approved&entity_type=program&limit=10", "seo_editor-key", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body)
		}
		if gotFilters.Status == nil || *gotFilters.Status != proposals.StatusApproved {
			t.Errorf("status filter = %v", gotFilters.Status)
		}
		if gotFilters.EntityType == nil || *gotFilters.EntityType != entities.TypeProgram {
			t.Errorf("entity filter = %v", gotFilters.EntityType)
		}
		if gotPage.Limit != 10 {
			t.Errorf("limit = %d", gotPage.Limit)
		}
	})

	t.Run("researcher may read", func(t *testing.T) {
		rec := do(mux, "GET", "/editorial/proposals", "researcher-key", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		rec := do(mux, "GET", "/editorial/proposals?status=done", "admin-key", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown entity type", func(t *testing.T) {
		rec := do(mux, "GET", "/editorial/proposals?entity_type=merchant", "admin-key", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerFind(t *testing.T) {
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*proposals.Detail, error) {
			if id != sampleID {
				return nil, proposals.ErrNotFound
			}
			return &proposals.Detail{
				Proposal: proposals.Proposal{ID: id, Status: proposals.StatusApproved},
				Log:      []proposals.LogEntry{{Action: proposals.ActionApprove, AgentID: "reviewer-key"}},
			}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"found", "/editorial/proposals/" + sampleID.String(), http.StatusOK},
		{"missing", "/editorial/proposals/" + uuid.NewString(), http.StatusNotFound},
		{"malformed id", "/editorial/proposals/not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, "GET", tt.path, "reviewer-key", nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}

	t.Run("includes approval log", func(t *testing.T) {
		rec := do(mux, "GET", "/editorial/proposals/"+sampleID.String(), "admin-key", nil)
		var body map[string]any
		json.NewDecoder(rec.Body).Decode(&body)
		log, ok := body["approval_log"].([]any)
		if !ok || len(log) != 1 {
			t.Errorf("approval_log = %v", body["approval_log"])
		}
	})
}

func TestHandlerReview(t *testing.T) {
	sys := &mockSystem{
		reviewFn: func(_ context.Context, agent agents.Identity, id uuid.UUID, cmd proposals.ReviewCommand) (*proposals.ReviewResult, error) {
			if cmd.Decision == "maybe" {
				return nil, proposals.ErrInvalidDecision
			}
			if id != sampleID {
				return nil, &proposals.StateError{Op: "review", Current: proposals.StatusPublished}
			}
			return &proposals.ReviewResult{ProposalID: id, Decision: cmd.Decision, NewStatus: cmd.Decision.Status(), Reviewer: agent.KeyID}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))
	path := "/editorial/proposals/" + sampleID.String() + "/review"

	t.Run("approve", func(t *testing.T) {
		rec := do(mux, "POST", path, "reviewer-key", map[string]any{"decision": "approve"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body)
		}
		var res proposals.ReviewResult
		json.NewDecoder(rec.Body).Decode(&res)
		if res.NewStatus != proposals.StatusApproved || res.Reviewer != "reviewer-key" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("seo editor forbidden", func(t *testing.T) {
		rec := do(mux, "POST", path, "seo_editor-key", map[string]any{"decision": "approve"})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("invalid decision", func(t *testing.T) {
		rec := do(mux, "POST", path, "admin-key", map[string]any{"decision": "maybe"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid state carries status", func(t *testing.T) {
		rec := do(mux, "POST", "/editorial/proposals/"+uuid.NewString()+"/review", "admin-key", map[string]any{"decision": "approve"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if !bytes.Contains(rec.Body.Bytes(), []byte("published")) {
			t.Errorf("body = %s", rec.Body)
		}
	})
}

func TestHandlerSEOAndPublish(t *testing.T) {
	sys := &mockSystem{
		seoFn: func(_ context.Context, agent agents.Identity, id uuid.UUID, cmd proposals.SEOCommand) (*proposals.SEOResult, error) {
			seo, err := proposals.FilterSEO(cmd)
			if err != nil {
				return nil, err
			}
			return &proposals.SEOResult{ProposalID: id, SEOMetadata: seo, SEOEditor: agent.KeyID}, nil
		},
		publishFn: func(_ context.Context, agent agents.Identity, id uuid.UUID) (*proposals.PublishResult, error) {
			return &proposals.PublishResult{ProposalID: id, Status: proposals.StatusPublished, HistoryID: 7, Publisher: agent.KeyID}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))
	base := "/editorial/proposals/" + sampleID.String()

	t.Run("seo whitelist", func(t *testing.T) {
		rec := do(mux, "POST", base+"/seo", "seo_editor-key", map[string]any{"title": "X", "malicious_field": "Y"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body)
		}
		var res proposals.SEOResult
		json.NewDecoder(rec.Body).Decode(&res)
		if len(res.SEOMetadata) != 1 || res.SEOMetadata["title"] != "X" {
			t.Errorf("seo_metadata = %v", res.SEOMetadata)
		}
	})

	t.Run("seo reviewer forbidden", func(t *testing.T) {
		rec := do(mux, "POST", base+"/seo", "reviewer-key", map[string]any{"title": "X"})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("publish", func(t *testing.T) {
		rec := do(mux, "POST", base+"/publish", "reviewer-key", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body)
		}
	})

	t.Run("publish researcher forbidden", func(t *testing.T) {
		rec := do(mux, "POST", base+"/publish", "researcher-key", nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})
}

