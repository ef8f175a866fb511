// Package activity appends to and reads a lead's activity log.
package activity

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"coaching_portal_backend/internal/events"
	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/repository"
	"coaching_portal_backend/internal/pipeline/scoring"
	"coaching_portal_backend/internal/pipeline/transport"
	"coaching_portal_backend/platform/apperr"
	"coaching_portal_backend/platform/logger"
	"coaching_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	maxSubjectLength     = 200
	maxDescriptionLength = 5000
	defaultListLimit     = 50
	maxListLimit         = 500
)

// Repository defines the data access interface needed by the activity service.
type Repository interface {
	GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (domain.Lead, error)
	AppendActivity(ctx context.Context, activity domain.Activity, fn func(lead *domain.Lead)) (domain.Lead, error)
	ListActivities(ctx context.Context, ownerID, leadID uuid.UUID, limit int) ([]domain.Activity, error)
}

// Service records lead activities.
type Service struct {
	repo  Repository
	model *scoring.Model
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// New creates a new activity service.
func New(repo Repository, model *scoring.Model, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, model: model, bus: bus, log: log, now: time.Now}
}

// Record appends an activity. Engagement activities also refresh the lead's
// engagement recency and score in the same write. Closed leads still accept
// activities.
func (s *Service) Record(ctx context.Context, ownerID, leadID, actorID uuid.UUID, req transport.RecordActivityRequest) (transport.RecordActivityResponse, error) {
	activity, err := s.buildActivity(ownerID, leadID, actorID, req)
	if err != nil {
		return transport.RecordActivityResponse{}, err
	}

	var rescore func(lead *domain.Lead)
	if activity.Type.IsEngagement() {
		at := activity.CreatedAt
		rescore = func(lead *domain.Lead) {
			last := lead.ScoreFactors.LastEngagementAt
			if last == nil || at.After(*last) {
				lead.ScoreFactors.LastEngagementAt = &at
			}
			s.model.Apply(lead, at)
			lead.UpdatedAt = at
		}
	}

	lead, err := s.repo.AppendActivity(ctx, activity, rescore)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.RecordActivityResponse{}, apperr.NotFound("lead not found")
		}
		return transport.RecordActivityResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadActivityRecorded{
		BaseEvent:     events.NewBaseEventAt(activity.CreatedAt),
		LeadID:        lead.ID,
		OwnerID:       lead.OwnerID,
		ActivityID:    activity.ID,
		ActivityType:  string(activity.Type),
		TotalScore:    lead.TotalScore,
		ScoreCategory: string(lead.ScoreCategory),
	})

	return transport.RecordActivityResponse{
		Activity: transport.ToActivityResponse(activity),
		Lead:     transport.ToLeadResponse(lead, activity.CreatedAt),
	}, nil
}

// List returns a lead's activities, newest first.
func (s *Service) List(ctx context.Context, ownerID, leadID uuid.UUID, limit int) (transport.ActivityListResponse, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	if _, err := s.repo.GetLead(ctx, ownerID, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ActivityListResponse{}, apperr.NotFound("lead not found")
		}
		return transport.ActivityListResponse{}, err
	}

	items, err := s.repo.ListActivities(ctx, ownerID, leadID, limit)
	if err != nil {
		return transport.ActivityListResponse{}, err
	}
	return transport.ActivityListResponse{Items: transport.ToActivityResponses(items)}, nil
}

func (s *Service) buildActivity(ownerID, leadID, actorID uuid.UUID, req transport.RecordActivityRequest) (domain.Activity, error) {
	typ, err := domain.ParseActivityType(strings.TrimSpace(req.Type))
	if err != nil {
		return domain.Activity{}, apperr.Validation(err.Error())
	}
	if !typ.IsManual() {
		return domain.Activity{}, apperr.Validation("stage_change activities are recorded by stage transitions")
	}

	subject := sanitize.Line(req.Subject)
	if subject == "" {
		return domain.Activity{}, apperr.Validation("subject is required")
	}
	if utf8.RuneCountInString(subject) > maxSubjectLength {
		return domain.Activity{}, apperr.Validation("subject must be at most 200 characters")
	}

	description := sanitize.Text(req.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return domain.Activity{}, apperr.Validation("description must be at most 5000 characters")
	}

	var outcome *domain.Outcome
	if req.Outcome != nil && strings.TrimSpace(*req.Outcome) != "" {
		parsed, err := domain.ParseOutcome(strings.TrimSpace(*req.Outcome))
		if err != nil {
			return domain.Activity{}, apperr.Validation(err.Error())
		}
		outcome = &parsed
	}

	actor := actorID
	return domain.Activity{
		ID:          uuid.New(),
		LeadID:      leadID,
		OwnerID:     ownerID,
		Type:        typ,
		Subject:     subject,
		Description: description,
		Outcome:     outcome,
		ActorID:     &actor,
		CreatedAt:   s.now().UTC(),
	}, nil
}
