package repository

import (
	"strings"
	"testing"
	"time"

	"coaching_portal_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

func TestBuildLeadListWhereAlwaysScopesByOwner(t *testing.T) {
	owner := uuid.New()

	where, args, next := buildLeadListWhere(ListParams{OwnerID: owner})

	if where != "owner_id = $1" {
		t.Fatalf("unexpected where clause %q", where)
	}
	if len(args) != 1 || args[0] != owner {
		t.Fatalf("expected owner as only arg, got %v", args)
	}
	if next != 2 {
		t.Fatalf("expected next placeholder 2, got %d", next)
	}
}

func TestBuildLeadListWhereAllFilters(t *testing.T) {
	hot := domain.CategoryHot
	overdue := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	where, args, next := buildLeadListWhere(ListParams{
		OwnerID:   uuid.New(),
		Stages:    []domain.Stage{domain.StageProposal, domain.StageNegotiation},
		Category:  &hot,
		Search:    "  acme ",
		OverdueAt: &overdue,
	})

	for _, fragment := range []string{
		"owner_id = $1",
		"stage = ANY($2)",
		"score_category = $3",
		"name ILIKE $4",
		"stage NOT IN ('closed_won', 'closed_lost')",
		"next_follow_up_date < $5",
	} {
		if !strings.Contains(where, fragment) {
			t.Errorf("expected where clause to contain %q, got %q", fragment, where)
		}
	}
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(args))
	}
	if stages, ok := args[1].([]string); !ok || len(stages) != 2 || stages[0] != "proposal" {
		t.Fatalf("unexpected stage arg %#v", args[1])
	}
	if args[3] != "%acme%" {
		t.Fatalf("expected trimmed search pattern, got %v", args[3])
	}
	if next != 6 {
		t.Fatalf("expected next placeholder 6, got %d", next)
	}
}

func TestMapLeadSortColumn(t *testing.T) {
	cases := map[string]string{
		"":               "created_at",
		"score":          "total_score",
		"value":          "estimated_value_cents",
		"stageEnteredAt": "stage_entered_at",
		"; DROP TABLE":   "created_at",
	}
	for input, want := range cases {
		if got := mapLeadSortColumn(input); got != want {
			t.Errorf("%q: expected %s, got %s", input, want, got)
		}
	}
}
