package proposals_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/affwiki/internal/agents"
	"github.com/JaimeStill/affwiki/internal/entities"
	"github.com/JaimeStill/affwiki/internal/proposals"
	"github.com/JaimeStill/affwiki/internal/testdb"
	"github.com/JaimeStill/affwiki/pkg/jsonmap"
	"github.com/JaimeStill/affwiki/pkg/pagination"
)

var (
	researcher = agents.Identity{KeyID: "ak_research", Role: agents.RoleResearcher}
	reviewer   = agents.Identity{KeyID: "ak_review", Role: agents.RoleReviewer}
	seoEditor  = agents.Identity{KeyID: "ak_seo", Role: agents.RoleSEOEditor}
)

func newRepo(t *testing.T, strict bool) (proposals.System, *sql.DB) {
	t.Helper()
	db := testdb.Open(t)
	sys := proposals.New(
		db,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultLimit: 50, MaxLimit: 200},
		strict,
	)
	return sys, db
}

func create(t *testing.T, sys proposals.System, entityID int64, changes jsonmap.Map) uuid.UUID {
	t.Helper()
	res, err := sys.Create(context.Background(), researcher, proposals.CreateCommand{
		EntityType: "program",
		EntityID:   entityID,
		Changes:    changes,
		Sources:    jsonmap.List{{"url": "https://acme.com"}},
		Reasoning:  "terms page",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return res.ProposalID
}

func TestEndToEnd(t *testing.T) {
	sys, db := newRepo(t, false)
	ctx := context.Background()
	pid := testdb.SeedProgram(t, db, "Acme", "acme.com", "https://acme.com/join", `{"a":1,"b":2}`)

	res, err := sys.Create(ctx, researcher, proposals.CreateCommand{
		EntityType: "program",
		EntityID:   pid,
		Changes:    jsonmap.Map{"b": 3.0, "c": 4.0, "commission_rate": "20%"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Status != proposals.StatusPendingReview || res.Entity.Name != "Acme" || res.ChangesCount != 3 {
		t.Fatalf("create result = %+v", res)
	}

	detail, err := sys.Find(ctx, res.ProposalID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(detail.PreviousValues) != 1 || detail.PreviousValues["b"] != 2.0 {
		t.Errorf("previous_values = %v", detail.PreviousValues)
	}

	if _, err := sys.Review(ctx, reviewer, res.ProposalID, proposals.ReviewCommand{Decision: proposals.DecisionApprove}); err != nil {
		t.Fatalf("Review: %v", err)
	}

	pub, err := sys.Publish(ctx, reviewer, res.ProposalID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	program, err := entities.FindProgram(ctx, db, pid)
	if err != nil {
		t.Fatal(err)
	}
	doc := program.Extracted
	if doc["a"] != 1.0 || doc["b"] != 3.0 || doc["c"] != 4.0 || doc["commission_rate"] != "20%" {
		t.Errorf("extracted = %v", doc)
	}
	if doc.String(proposals.KeyEditorialProposalID) != res.ProposalID.String() || doc.String(proposals.KeyLastEditorialUpdate) == "" {
		t.Errorf("provenance missing: %v", doc)
	}

	var diff jsonmap.Map
	var historyRows int
	db.QueryRowContext(ctx, "SELECT COUNT(*) FROM program_research_history WHERE program_id = $1", pid).Scan(&historyRows)
	db.QueryRowContext(ctx, "SELECT diff FROM program_research_history WHERE id = $1", pub.HistoryID).Scan(&diff)
	if historyRows != 1 || diff["commission_rate"] != "20%" || len(diff) != 3 {
		t.Errorf("history rows = %d, diff = %v", historyRows, diff)
	}

	detail, err = sys.Find(ctx, res.ProposalID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Status != proposals.StatusPublished || detail.HistoryID == nil || *detail.HistoryID != pub.HistoryID {
		t.Errorf("proposal = %+v", detail.Proposal)
	}
	if len(detail.Log) != 2 || detail.Log[0].Action != proposals.ActionApprove || detail.Log[1].Action != proposals.ActionPublish {
		t.Errorf("log = %+v", detail.Log)
	}
}

func TestCreateValidation(t *testing.T) {
	sys, db := newRepo(t, false)
	ctx := context.Background()
	pid := testdb.SeedProgram(t, db, "Acme", "acme.com", "", `{}`)

	tests := []struct {
		name string
		cmd  proposals.CreateCommand
		want error
	}{
		{"unknown type", proposals.CreateCommand{EntityType: "merchant", EntityID: pid, Changes: jsonmap.Map{"x": 1}}, entities.ErrUnknownType},
		{"missing entity", proposals.CreateCommand{EntityType: "program", EntityID: 99999, Changes: jsonmap.Map{"x": 1}}, entities.ErrNotFound},
		{"empty changes", proposals.CreateCommand{EntityType: "program", EntityID: pid}, proposals.ErrInvalidProposal},
		{"zero id", proposals.CreateCommand{EntityType: "program", Changes: jsonmap.Map{"x": 1}}, proposals.ErrInvalidProposal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sys.Create(ctx, researcher, tt.cmd); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRequestChangesLoop(t *testing.T) {
	sys, db := newRepo(t, false)
	ctx := context.Background()
	id := create(t, sys, testdb.SeedProgram(t, db, "Acme", "acme.com", "", `{}`), jsonmap.Map{"x": "y"})

	res, err := sys.Review(ctx, reviewer, id, proposals.ReviewCommand{
		Decision:          proposals.DecisionRequestChanges,
		Notes:             "signup url timed out",
		ValidationResults: jsonmap.Map{"urls_verified": false},
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if res.NewStatus != proposals.StatusPendingReview {
		t.Errorf("new status = %s", res.NewStatus)
	}

	detail, _ := sys.Find(ctx, id)
	if detail.ReviewNotes == nil || *detail.ReviewNotes != "signup url timed out" {
		t.Errorf("notes = %v", detail.ReviewNotes)
	}
	if detail.ValidationResults["urls_verified"] != false {
		t.Errorf("validation = %v", detail.ValidationResults)
	}
	if len(detail.Log) != 1 || detail.Log[0].Action != proposals.ActionRequestChanges {
		t.Errorf("log = %+v", detail.Log)
	}

	if _, err := sys.Review(ctx, reviewer, id, proposals.ReviewCommand{Decision: proposals.DecisionApprove}); err != nil {
		t.Errorf("second review: %v", err)
	}
}

func TestRejectedTerminality(t *testing.T) {
	sys, db := newRepo(t, false)
	ctx := context.Background()
	id := create(t, sys, testdb.SeedProgram(t, db, "Acme", "acme.com", "", `{}`), jsonmap.Map{"x": "y"})

	if _, err := sys.Review(ctx, reviewer, id, proposals.ReviewCommand{Decision: proposals.DecisionReject}); err != nil {
		t.Fatal(err)
	}
	before, _ := sys.Find(ctx, id)

	_, errReview := sys.Review(ctx, reviewer, id, proposals.ReviewCommand{Decision: proposals.DecisionApprove})
	_, errSEO := sys.AnnotateSEO(ctx, seoEditor, id, proposals.SEOCommand{"title": "T"})
	_, errPublish := sys.Publish(ctx, reviewer, id)

	for name, err := range map[string]error{"review": errReview, "seo": errSEO, "publish": errPublish} {
		var se *proposals.StateError
		if !errors.As(err, &se) || se.Current != proposals.StatusRejected {
			t.Errorf("%s err = %v, want StateError(rejected)", name, err)
		}
	}

	after, _ := sys.Find(ctx, id)
	if !after.UpdatedAt.Equal(before.UpdatedAt) || len(after.Log) != len(before.Log) {
		t.Error("failed transitions modified the proposal")
	}
}

func TestSEOThenPublish(t *testing.T) {
	sys, db := newRepo(t, false)
	ctx := context.Background()
	pid := testdb.SeedProgram(t, db, "Acme", "acme.com", "", `{}`)
	id := create(t, sys, pid, jsonmap.Map{"x": "y"})

	if _, err := sys.AnnotateSEO(ctx, seoEditor, id, proposals.SEOCommand{"title": "T"}); !errors.Is(err, proposals.ErrInvalidState) {
		t.Fatalf("seo on pending err = %v", err)
	}

	sys.Review(ctx, reviewer, id, proposals.ReviewCommand{Decision: proposals.DecisionApprove})

	res, err := sys.AnnotateSEO(ctx, seoEditor, id, proposals.SEOCommand{"title": "X", "malicious_field": "Y"})
	if err != nil {
		t.Fatalf("AnnotateSEO: %v", err)
	}
	if len(res.SEOMetadata) != 1 {
		t.Errorf("seo = %v", res.SEOMetadata)
	}

	if _, err := sys.AnnotateSEO(ctx, seoEditor, id, proposals.SEOCommand{"title": "X2"}); err != nil {
		t.Errorf("re-annotation: %v", err)
	}

	if _, err := sys.Publish(ctx, reviewer, id); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	program, _ := entities.FindProgram(ctx, db, pid)
	seo, _ := program.Extracted["seo_metadata"].(map[string]any)
	if seo["title"] != "X2" || seo["malicious_field"] != nil {
		t.Errorf("seo_metadata = %v", program.Extracted["seo_metadata"])
	}

	detail, _ := sys.Find(ctx, id)
	if len(detail.Log) != 4 || detail.Log[1].Notes == nil || *detail.Log[1].Notes != "Added SEO metadata: [title]" {
		t.Errorf("log = %+v", detail.Log)
	}
}

func TestPublishUnpublishable(t *testing.T) {
	sys, db := newRepo(t, false)
	ctx := context.Background()

	var cid int64
	db.QueryRowContext(ctx, `INSERT INTO categories (name, slug) VALUES ('Hosting', 'hosting') RETURNING id`).Scan(&cid)

	res, err := sys.Create(ctx, researcher, proposals.CreateCommand{
		EntityType: "category",
		EntityID:   cid,
		Changes:    jsonmap.Map{"description": "Web hosts"},
	})
	if err != nil {
		t.Fatal(err)
	}
	sys.Review(ctx, reviewer, res.ProposalID, proposals.ReviewCommand{Decision: proposals.DecisionApprove})

	if _, err := sys.Publish(ctx, reviewer, res.ProposalID); !errors.Is(err, proposals.ErrUnpublishable) {
		t.Errorf("err = %v, want ErrUnpublishable", err)
	}
}

func TestPublishConcurrencyModes(t *testing.T) {
	for _, strict := range []bool{false, true} {
		name := "last write wins"
		if strict {
			name = "strict"
		}
		t.Run(name, func(t *testing.T) {
			sys, db := newRepo(t, strict)
			ctx := context.Background()
			pid := testdb.SeedProgram(t, db, "Acme", "acme.com", "", `{"rate":"10%"}`)

			first := create(t, sys, pid, jsonmap.Map{"rate": "15%"})
			second := create(t, sys, pid, jsonmap.Map{"rate": "20%"})
			for _, id := range []uuid.UUID{first, second} {
				sys.Review(ctx, reviewer, id, proposals.ReviewCommand{Decision: proposals.DecisionApprove})
			}

			if _, err := sys.Publish(ctx, reviewer, first); err != nil {
				t.Fatalf("publish first: %v", err)
			}
			_, err := sys.Publish(ctx, reviewer, second)

			program, _ := entities.FindProgram(ctx, db, pid)
			if strict {
				if !errors.Is(err, proposals.ErrConflict) {
					t.Fatalf("err = %v, want ErrConflict", err)
				}
				if program.Extracted["rate"] != "15%" {
					t.Errorf("rate = %v, want 15%%", program.Extracted["rate"])
				}
				return
			}
			if err != nil {
				t.Fatalf("publish second: %v", err)
			}
			if program.Extracted["rate"] != "20%" {
				t.Errorf("rate = %v, want 20%%", program.Extracted["rate"])
			}
		})
	}
}

func TestListDefaultsToPending(t *testing.T) {
	sys, db := newRepo(t, false)
	ctx := context.Background()
	pid := testdb.SeedProgram(t, db, "Acme", "acme.com", "", `{}`)

	a := create(t, sys, pid, jsonmap.Map{"x": 1})
	create(t, sys, pid, jsonmap.Map{"x": 2})
	sys.Review(ctx, reviewer, a, proposals.ReviewCommand{Decision: proposals.DecisionReject})

	page := pagination.PageRequest{Sort: pagination.SortFields{{Field: "bogus; DROP TABLE proposals"}}}
	res, err := sys.List(ctx, page, proposals.Filters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 1 || len(res.Data) != 1 || res.Data[0].Entity.Name != "Acme" {
		t.Errorf("list = %+v", res)
	}

	again, _ := sys.List(ctx, page, proposals.Filters{})
	if again.Data[0].ID != res.Data[0].ID {
		t.Error("repeated list differs")
	}

	rejected := proposals.StatusRejected
	res, _ = sys.List(ctx, pagination.PageRequest{}, proposals.Filters{Status: &rejected})
	if res.Total != 1 || res.Data[0].ID != a {
		t.Errorf("rejected list = %+v", res)
	}
}
