package pipelinetest

import (
	"context"
	"sort"
	"time"

	"coaching_portal_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

func (s *Store) ListOpenLeadsPage(_ context.Context, afterID uuid.UUID, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := make([]domain.Lead, 0)
	for _, lead := range s.leads {
		if lead.IsOpen() && lead.ID.String() > afterID.String() {
			open = append(open, lead)
		}
	}
	sortByID(open)
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (s *Store) ListStalledLeads(_ context.Context, cutoff, afterEnteredAt time.Time, afterID uuid.UUID, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Lead, 0)
	for _, lead := range s.leads {
		if !lead.IsOpen() || lead.StageEnteredAt.After(cutoff) {
			continue
		}
		if !stallKeyAfter(lead, afterEnteredAt, afterID) {
			continue
		}
		out = append(out, lead)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StageEnteredAt.Equal(out[j].StageEnteredAt) {
			return out[i].StageEnteredAt.Before(out[j].StageEnteredAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func stallKeyAfter(lead domain.Lead, enteredAt time.Time, id uuid.UUID) bool {
	if !lead.StageEnteredAt.Equal(enteredAt) {
		return lead.StageEnteredAt.After(enteredAt)
	}
	return lead.ID.String() > id.String()
}

func (s *Store) UpdateScore(_ context.Context, read domain.Lead, total int, category domain.ScoreCategory) (bool, error) {
	if s.BeforeScoreUpdate != nil {
		s.BeforeScoreUpdate(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return false, s.FailWith
	}

	lead, err := s.ownedLead(read.OwnerID, read.ID)
	if err != nil || !lead.IsOpen() || !sameFactors(lead.ScoreFactors, read.ScoreFactors) {
		return false, nil
	}
	if lead.TotalScore == total && lead.ScoreCategory == category {
		return false, nil
	}
	lead.TotalScore = total
	lead.ScoreCategory = category
	s.leads[lead.ID] = lead
	return true, nil
}

func sameFactors(a, b domain.ScoreFactors) bool {
	if (a.LastEngagementAt == nil) != (b.LastEngagementAt == nil) {
		return false
	}
	if a.LastEngagementAt != nil && !a.LastEngagementAt.Equal(*b.LastEngagementAt) {
		return false
	}
	return a.BudgetConfirmed == b.BudgetConfirmed &&
		a.AuthorityConfirmed == b.AuthorityConfirmed &&
		a.NeedConfirmed == b.NeedConfirmed &&
		a.TimelineUrgency == b.TimelineUrgency
}

func sortByID(leads []domain.Lead) {
	sort.Slice(leads, func(i, j int) bool { return leads[i].ID.String() < leads[j].ID.String() })
}
