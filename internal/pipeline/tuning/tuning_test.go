package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/scoring"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	got, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Weights != scoring.DefaultWeights() {
		t.Fatalf("expected default weights, got %+v", got.Weights)
	}
	if got.StallThresholdDays != 7 {
		t.Fatalf("expected stall threshold 7, got %d", got.StallThresholdDays)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := `
score_weights:
  engagement_recency: 40
  budget_confirmed: 20
  authority_confirmed: 20
  need_confirmed: 10
  timeline_urgency: 10
stage_probabilities:
  negotiation: 0.9
stall_threshold_days: 14
phone_region: gb
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Weights.EngagementRecency != 40 || got.Weights.NeedConfirmed != 10 {
		t.Fatalf("unexpected weights %+v", got.Weights)
	}
	if got.Probabilities[domain.StageNegotiation] != 0.9 {
		t.Fatalf("expected negotiation override, got %v", got.Probabilities[domain.StageNegotiation])
	}
	if got.Probabilities[domain.StageProspecting] != 0.10 {
		t.Fatalf("expected prospecting default kept, got %v", got.Probabilities[domain.StageProspecting])
	}
	if got.StallThresholdDays != 14 {
		t.Fatalf("expected stall threshold 14, got %d", got.StallThresholdDays)
	}
	if _, err := got.Model(); err != nil {
		t.Fatalf("expected valid model: %v", err)
	}
	phones, err := got.Phones()
	if err != nil || phones.Region() != "GB" {
		t.Fatalf("expected GB phone region, got %q, %v", phones.Region(), err)
	}
}

func TestParseRejectsInvalidTuning(t *testing.T) {
	cases := map[string]string{
		"weights do not sum to 100": "score_weights:\n  engagement_recency: 50\n",
		"unknown stage":             "stage_probabilities:\n  archived: 0.5\n",
		"non monotonic":             "stage_probabilities:\n  qualification: 0.05\n",
		"negative stall threshold":  "stall_threshold_days: -1\n",
		"malformed yaml":            "score_weights: [\n",
		"unknown phone region":      "phone_region: ZZ\n",
	}

	for name, content := range cases {
		if _, err := Parse([]byte(content)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
