// Package pipelinetest provides an in-memory pipeline store for service and
// job tests. It honours the same owner scoping, stage precondition and
// all-or-nothing writes as the Postgres repository.
package pipelinetest

import (
	"context"
	"sort"
	"sync"

	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/repository"

	"github.com/google/uuid"
)

// Store is an in-memory stand-in for repository.Repository.
type Store struct {
	mu         sync.Mutex
	leads      map[uuid.UUID]domain.Lead
	activities []domain.Activity

	// BeforeStageChange runs inside ApplyStageChange before the precondition
	// is checked, letting tests simulate a concurrent writer.
	BeforeStageChange func(s *Store)
	// BeforeScoreUpdate runs inside UpdateScore before its precondition is
	// checked.
	BeforeScoreUpdate func(s *Store)
	// FailWith, when set, is returned by every write.
	FailWith error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{leads: make(map[uuid.UUID]domain.Lead)}
}

// Put inserts or replaces a lead without any checks.
func (s *Store) Put(lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.ID] = lead
}

// PutActivity appends an activity without any checks.
func (s *Store) PutActivity(a domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, a)
}

// Lead returns the stored lead by id regardless of owner.
func (s *Store) Lead(id uuid.UUID) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	return lead, ok
}

// Activities returns every stored activity of a lead in insertion order.
func (s *Store) Activities(leadID uuid.UUID) []domain.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Activity, 0)
	for _, a := range s.activities {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) CreateLead(_ context.Context, lead domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.leads[lead.ID] = lead
	return nil
}

func (s *Store) GetLead(_ context.Context, ownerID, leadID uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownedLead(ownerID, leadID)
}

func (s *Store) ListAllLeads(_ context.Context, ownerID uuid.UUID) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0)
	for _, lead := range s.sortedLeads() {
		if lead.OwnerID == ownerID {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (s *Store) ListLeads(_ context.Context, params repository.ListParams) ([]domain.Lead, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]domain.Lead, 0)
	for _, lead := range s.sortedLeads() {
		if lead.OwnerID != params.OwnerID {
			continue
		}
		if len(params.Stages) > 0 && !containsStage(params.Stages, lead.Stage) {
			continue
		}
		if params.Category != nil && lead.ScoreCategory != *params.Category {
			continue
		}
		if (params.OpenOnly || params.OverdueAt != nil) && !lead.IsOpen() {
			continue
		}
		if params.OverdueAt != nil && (lead.NextFollowUpDate == nil || !lead.NextFollowUpDate.Before(*params.OverdueAt)) {
			continue
		}
		matches = append(matches, lead)
	}

	total := len(matches)
	start := min(params.Offset, total)
	end := total
	if params.Limit > 0 {
		end = min(start+params.Limit, total)
	}
	return matches[start:end], total, nil
}

func (s *Store) MutateLead(_ context.Context, ownerID, leadID uuid.UUID, fn func(lead *domain.Lead) error) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return domain.Lead{}, s.FailWith
	}

	lead, err := s.ownedLead(ownerID, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	stage := lead.Stage
	if err := fn(&lead); err != nil {
		return domain.Lead{}, err
	}
	lead.Stage = stage
	s.leads[lead.ID] = lead
	return lead, nil
}

func (s *Store) AppendActivity(_ context.Context, activity domain.Activity, fn func(lead *domain.Lead)) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return domain.Lead{}, s.FailWith
	}

	lead, err := s.ownedLead(activity.OwnerID, activity.LeadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if fn != nil {
		fn(&lead)
		s.leads[lead.ID] = lead
	}
	s.activities = append(s.activities, activity)
	return lead, nil
}

func (s *Store) ApplyStageChange(_ context.Context, change repository.StageChange) (domain.Lead, error) {
	if s.BeforeStageChange != nil {
		s.BeforeStageChange(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return domain.Lead{}, s.FailWith
	}

	current, err := s.ownedLead(change.OwnerID, change.LeadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if current.Stage != change.ExpectedStage {
		return domain.Lead{}, repository.ErrStageConflict
	}
	next, err := change.Apply(current)
	if err != nil {
		return domain.Lead{}, err
	}

	// Same column set as the SQL update.
	current.Stage = next.Stage
	current.StageEnteredAt = next.StageEnteredAt
	current.ClosedAt = next.ClosedAt
	current.TotalScore = next.TotalScore
	current.ScoreCategory = next.ScoreCategory
	current.UpdatedAt = next.UpdatedAt

	s.leads[current.ID] = current
	s.activities = append(s.activities, change.Activity)
	return current, nil
}

func (s *Store) ListActivities(_ context.Context, ownerID, leadID uuid.UUID, limit int) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Activity, 0)
	for i := len(s.activities) - 1; i >= 0; i-- {
		a := s.activities[i]
		if a.LeadID == leadID && a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListOwnerActivities(_ context.Context, ownerID uuid.UUID) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Activity, 0)
	for _, a := range s.activities {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ownedLead(ownerID, leadID uuid.UUID) (domain.Lead, error) {
	lead, ok := s.leads[leadID]
	if !ok || lead.OwnerID != ownerID {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (s *Store) sortedLeads() []domain.Lead {
	out := make([]domain.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		out = append(out, lead)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func containsStage(stages []domain.Stage, stage domain.Stage) bool {
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}
