package domain

import (
	"testing"
	"time"
)

func TestDaysInCurrentStage(t *testing.T) {
	lead := newLead(StageProposal)
	lead.StageEnteredAt = testNow

	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"same instant", testNow, 0},
		{"later same day", testNow.Add(23 * time.Hour), 0},
		{"one day", testNow.Add(24 * time.Hour), 1},
		{"ten days", testNow.Add(10*24*time.Hour + time.Minute), 10},
		{"clock behind", testNow.Add(-time.Hour), 0},
	}

	for _, tc := range cases {
		if got := DaysInCurrentStage(lead, tc.now); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestDaysInCurrentStageIsMonotonic(t *testing.T) {
	lead := newLead(StageProposal)
	prev := -1
	for h := 0; h < 24*40; h += 7 {
		days := DaysInCurrentStage(lead, lead.StageEnteredAt.Add(time.Duration(h)*time.Hour))
		if days < prev {
			t.Fatalf("days went backwards at hour %d: %d < %d", h, days, prev)
		}
		prev = days
	}
}

func TestParseStage(t *testing.T) {
	for _, s := range AllStages() {
		if _, err := ParseStage(string(s)); err != nil {
			t.Errorf("expected %s to parse: %v", s, err)
		}
	}
	if _, err := ParseStage("Proposal"); err == nil {
		t.Fatal("expected stage parsing to be case sensitive")
	}
	if len(OpenStages()) != 5 {
		t.Fatalf("expected 5 open stages, got %d", len(OpenStages()))
	}
}

func TestIsFollowUpOverdue(t *testing.T) {
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	open := newLead(StageProposal)
	open.NextFollowUpDate = &past
	if !IsFollowUpOverdue(open, testNow) {
		t.Fatal("expected open lead with past follow-up to be overdue")
	}

	open.NextFollowUpDate = &future
	if IsFollowUpOverdue(open, testNow) {
		t.Fatal("expected future follow-up not to be overdue")
	}

	closed := newLead(StageClosedWon)
	closed.NextFollowUpDate = &past
	if IsFollowUpOverdue(closed, testNow) {
		t.Fatal("expected closed lead never to be overdue")
	}
}

func TestActivityTypeClassification(t *testing.T) {
	engagement := map[ActivityType]bool{
		ActivityCall:          true,
		ActivityEmail:         true,
		ActivityMeeting:       true,
		ActivityFollowUp:      true,
		ActivityNote:          false,
		ActivityTaskCompleted: false,
		ActivityStageChange:   false,
	}
	for typ, want := range engagement {
		if typ.IsEngagement() != want {
			t.Errorf("%s: expected engagement=%v", typ, want)
		}
	}
	if ActivityStageChange.IsManual() {
		t.Fatal("stage_change must not be recordable manually")
	}
	if _, err := ParseActivityType("sms"); err == nil {
		t.Fatal("expected unknown activity type to be rejected")
	}
}
