package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"coaching_portal_backend/internal/events"
	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/pipelinetest"
	"coaching_portal_backend/internal/scheduler"
	"coaching_portal_backend/platform/apperr"
	"coaching_portal_backend/platform/logger"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 9, 3, 11, 0, 0, 0, time.UTC)

type fakeReminders struct {
	payloads []scheduler.FollowUpDuePayload
	runAts   []time.Time
	err      error
}

func (f *fakeReminders) ScheduleFollowUpDue(_ context.Context, payload scheduler.FollowUpDuePayload, runAt time.Time) error {
	f.payloads = append(f.payloads, payload)
	f.runAts = append(f.runAts, runAt)
	return f.err
}

func newTestService(reminders ReminderScheduler) (*Service, *pipelinetest.Store, *pipelinetest.Bus) {
	store := pipelinetest.NewStore()
	bus := &pipelinetest.Bus{}
	svc := New(store, reminders, bus, logger.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, store, bus
}

func seedLead(store *pipelinetest.Store, owner uuid.UUID, stage domain.Stage) domain.Lead {
	lead := domain.Lead{
		ID:             uuid.New(),
		OwnerID:        owner,
		Name:           "Jamie",
		Stage:          stage,
		ScoreCategory:  domain.CategoryCold,
		StageEnteredAt: fixedNow,
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
	}
	if stage.IsTerminal() {
		closed := fixedNow
		lead.ClosedAt = &closed
	}
	store.Put(lead)
	return lead
}

func TestScheduleFollowUpSetsDateAndEnqueuesReminder(t *testing.T) {
	reminders := &fakeReminders{}
	svc, store, bus := newTestService(reminders)
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageProposal)
	date := fixedNow.Add(48 * time.Hour)

	resp, err := svc.ScheduleFollowUp(context.Background(), owner, lead.ID, &date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.NextFollowUpDate == nil || !resp.NextFollowUpDate.Equal(date) {
		t.Fatalf("expected follow-up %s, got %v", date, resp.NextFollowUpDate)
	}
	if len(reminders.payloads) != 1 || !reminders.runAts[0].Equal(date) {
		t.Fatalf("expected one reminder at %s, got %+v", date, reminders.runAts)
	}
	if reminders.payloads[0].LeadID != lead.ID.String() {
		t.Fatalf("unexpected payload %+v", reminders.payloads[0])
	}
	if len(bus.Named(events.FollowUpScheduled{}.EventName())) != 1 {
		t.Fatal("expected FollowUpScheduled event")
	}
}

func TestScheduleFollowUpStoresMicrosecondPrecision(t *testing.T) {
	reminders := &fakeReminders{}
	svc, store, _ := newTestService(reminders)
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageProposal)
	date := fixedNow.Add(24*time.Hour + 123456789*time.Nanosecond)
	want := fixedNow.Add(24*time.Hour + 123456*time.Microsecond)

	if _, err := svc.ScheduleFollowUp(context.Background(), owner, lead.ID, &date); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := store.Lead(lead.ID)
	if stored.NextFollowUpDate == nil || !stored.NextFollowUpDate.Equal(want) {
		t.Fatalf("expected stored follow-up %s, got %v", want, stored.NextFollowUpDate)
	}
	if !reminders.payloads[0].FollowUpAt.Equal(want) || !reminders.runAts[0].Equal(want) {
		t.Fatalf("expected reminder for %s, got payload %s run %s", want, reminders.payloads[0].FollowUpAt, reminders.runAts[0])
	}
}

func TestScheduleFollowUpEarlierTodayIsAllowed(t *testing.T) {
	svc, store, _ := newTestService(nil)
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageProposal)
	date := fixedNow.Add(-2 * time.Hour)

	if _, err := svc.ScheduleFollowUp(context.Background(), owner, lead.ID, &date); err != nil {
		t.Fatalf("expected today's date to be accepted: %v", err)
	}
}

func TestScheduleFollowUpRejectsPastDate(t *testing.T) {
	svc, store, _ := newTestService(nil)
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageProposal)
	date := fixedNow.Add(-24 * time.Hour)

	_, err := svc.ScheduleFollowUp(context.Background(), owner, lead.ID, &date)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, _ := store.Lead(lead.ID)
	if stored.NextFollowUpDate != nil {
		t.Fatal("expected nothing written")
	}
}

func TestScheduleFollowUpRejectsClosedLead(t *testing.T) {
	reminders := &fakeReminders{}
	svc, store, _ := newTestService(reminders)
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageClosedWon)
	date := fixedNow.Add(24 * time.Hour)

	_, err := svc.ScheduleFollowUp(context.Background(), owner, lead.ID, &date)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(reminders.payloads) != 0 {
		t.Fatal("expected no reminder for a closed lead")
	}

	if _, err := svc.ScheduleFollowUp(context.Background(), owner, lead.ID, nil); err != nil {
		t.Fatalf("expected clearing to be allowed on a closed lead: %v", err)
	}
}

func TestScheduleFollowUpClear(t *testing.T) {
	reminders := &fakeReminders{}
	svc, store, _ := newTestService(reminders)
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageQualification)
	date := fixedNow.Add(24 * time.Hour)
	lead.NextFollowUpDate = &date
	store.Put(lead)

	resp, err := svc.ScheduleFollowUp(context.Background(), owner, lead.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.NextFollowUpDate != nil {
		t.Fatal("expected follow-up cleared")
	}
	if len(reminders.payloads) != 0 {
		t.Fatal("expected no reminder when clearing")
	}
}

func TestScheduleFollowUpReminderFailureIsNotFatal(t *testing.T) {
	reminders := &fakeReminders{err: errors.New("redis down")}
	svc, store, _ := newTestService(reminders)
	owner := uuid.New()
	lead := seedLead(store, owner, domain.StageProposal)
	date := fixedNow.Add(24 * time.Hour)

	if _, err := svc.ScheduleFollowUp(context.Background(), owner, lead.ID, &date); err != nil {
		t.Fatalf("expected enqueue failure to be logged only: %v", err)
	}
	stored, _ := store.Lead(lead.ID)
	if stored.NextFollowUpDate == nil {
		t.Fatal("expected follow-up date stored")
	}
}

func TestScheduleFollowUpMissingLead(t *testing.T) {
	svc, _, _ := newTestService(nil)
	date := fixedNow.Add(24 * time.Hour)

	_, err := svc.ScheduleFollowUp(context.Background(), uuid.New(), uuid.New(), &date)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
