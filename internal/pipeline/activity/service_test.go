package activity

import (
	"context"
	"strings"
	"testing"
	"time"

	"coaching_portal_backend/internal/events"
	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/pipelinetest"
	"coaching_portal_backend/internal/pipeline/scoring"
	"coaching_portal_backend/internal/pipeline/transport"
	"coaching_portal_backend/platform/apperr"
	"coaching_portal_backend/platform/logger"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 8, 12, 14, 0, 0, 0, time.UTC)

func newTestService() (*Service, *pipelinetest.Store, *pipelinetest.Bus) {
	store := pipelinetest.NewStore()
	bus := &pipelinetest.Bus{}
	svc := New(store, scoring.DefaultModel(), bus, logger.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, store, bus
}

func seedLead(store *pipelinetest.Store, owner uuid.UUID, stage domain.Stage, factors domain.ScoreFactors) domain.Lead {
	created := fixedNow.Add(-20 * 24 * time.Hour)
	lead := domain.Lead{
		ID:             uuid.New(),
		OwnerID:        owner,
		Name:           "Taylor",
		Stage:          stage,
		ScoreFactors:   factors,
		StageEnteredAt: created,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	scoring.DefaultModel().Apply(&lead, created)
	if stage.IsTerminal() {
		lead.ClosedAt = &created
	}
	store.Put(lead)
	return lead
}

func TestRecordEngagementRefreshesRecencyAndScore(t *testing.T) {
	svc, store, bus := newTestService()
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageProposal, domain.ScoreFactors{
		BudgetConfirmed:    true,
		AuthorityConfirmed: true,
		NeedConfirmed:      true,
		TimelineUrgency:    5,
	})

	resp, err := svc.Record(context.Background(), owner, lead.ID, owner, transport.RecordActivityRequest{
		Type:    "call",
		Subject: "Discovery call",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Lead.TotalScore != 100 || resp.Lead.ScoreCategory != string(domain.CategoryHot) {
		t.Fatalf("expected 100/hot, got %d/%s", resp.Lead.TotalScore, resp.Lead.ScoreCategory)
	}
	stored, _ := store.Lead(lead.ID)
	if stored.ScoreFactors.LastEngagementAt == nil || !stored.ScoreFactors.LastEngagementAt.Equal(fixedNow) {
		t.Fatalf("expected engagement at %s, got %v", fixedNow, stored.ScoreFactors.LastEngagementAt)
	}
	if len(store.Activities(lead.ID)) != 1 {
		t.Fatal("expected activity appended")
	}
	if len(bus.Named(events.LeadActivityRecorded{}.EventName())) != 1 {
		t.Fatal("expected LeadActivityRecorded event")
	}
}

func TestRecordNoteDoesNotTouchScore(t *testing.T) {
	svc, store, _ := newTestService()
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageProposal, domain.ScoreFactors{BudgetConfirmed: true})

	if _, err := svc.Record(context.Background(), owner, lead.ID, owner, transport.RecordActivityRequest{
		Type:    "note",
		Subject: "Prefers mornings",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := store.Lead(lead.ID)
	if stored.ScoreFactors.LastEngagementAt != nil {
		t.Fatal("expected note not to count as engagement")
	}
	if stored.TotalScore != lead.TotalScore || !stored.UpdatedAt.Equal(lead.UpdatedAt) {
		t.Fatal("expected lead untouched by a note")
	}
}

func TestRecordKeepsNewerEngagement(t *testing.T) {
	svc, store, _ := newTestService()
	owner := uuid.New()
	later := fixedNow.Add(time.Hour)
	lead := seedLead(store, owner, domain.StageProposal, domain.ScoreFactors{LastEngagementAt: &later})

	if _, err := svc.Record(context.Background(), owner, lead.ID, owner, transport.RecordActivityRequest{Type: "email", Subject: "Recap"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := store.Lead(lead.ID)
	if !stored.ScoreFactors.LastEngagementAt.Equal(later) {
		t.Fatal("expected the newer engagement to be kept")
	}
}

func TestRecordOnClosedLeadIsAllowed(t *testing.T) {
	svc, store, _ := newTestService()
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageClosedWon, domain.ScoreFactors{})

	if _, err := svc.Record(context.Background(), owner, lead.ID, owner, transport.RecordActivityRequest{Type: "note", Subject: "Kickoff booked"}); err != nil {
		t.Fatalf("expected note on closed lead to be accepted: %v", err)
	}
}

func TestRecordValidation(t *testing.T) {
	svc, store, _ := newTestService()
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageProposal, domain.ScoreFactors{})
	bad := "great"

	cases := map[string]transport.RecordActivityRequest{
		"stage change":     {Type: "stage_change", Subject: "manual"},
		"unknown type":     {Type: "sms", Subject: "hi"},
		"missing subject":  {Type: "call", Subject: "  "},
		"long subject":     {Type: "call", Subject: strings.Repeat("s", 201)},
		"long description": {Type: "call", Subject: "ok", Description: strings.Repeat("d", 5001)},
		"unknown outcome":  {Type: "call", Subject: "ok", Outcome: &bad},
	}

	for name, req := range cases {
		_, err := svc.Record(context.Background(), owner, lead.ID, owner, req)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
	if len(store.Activities(lead.ID)) != 0 {
		t.Fatal("expected no activity written for invalid input")
	}
}

func TestRecordMissingLead(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Record(context.Background(), uuid.New(), uuid.New(), uuid.New(), transport.RecordActivityRequest{Type: "call", Subject: "hello"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, store, _ := newTestService()
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageProposal, domain.ScoreFactors{})

	for i := 0; i < 3; i++ {
		store.PutActivity(domain.Activity{
			ID:        uuid.New(),
			LeadID:    lead.ID,
			OwnerID:   owner,
			Type:      domain.ActivityNote,
			Subject:   "note",
			CreatedAt: fixedNow.Add(time.Duration(i) * time.Hour),
		})
	}

	resp, err := svc.List(context.Background(), owner, lead.ID, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	if !resp.Items[0].CreatedAt.After(resp.Items[1].CreatedAt) {
		t.Fatal("expected newest first")
	}

	if _, err := svc.List(context.Background(), uuid.New(), lead.ID, 10); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for another owner, got %v", err)
	}
}
