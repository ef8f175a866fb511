// Package lifecycle applies stage transitions and reopens.
// Each change is committed with its stage_change activity as one unit.
package lifecycle

import (
	"context"
	"errors"
	"time"

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

// Repository defines the data access interface needed by the lifecycle service.
type Repository interface {
	GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (domain.Lead, error)
	ApplyStageChange(ctx context.Context, change repository.StageChange) (domain.Lead, error)
}

// Service moves leads through the pipeline.
type Service struct {
	repo  Repository
	model *scoring.Model
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// New creates a new lifecycle service.
func New(repo Repository, model *scoring.Model, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, model: model, bus: bus, log: log, now: time.Now}
}

// TransitionDetails is attached to InvalidTransition errors so clients can
// explain the rejection.
type TransitionDetails struct {
	CurrentStage   string `json:"currentStage"`
	AttemptedStage string `json:"attemptedStage"`
}

// Transition moves a lead to the requested stage. The write only succeeds if
// the lead is still in the stage it was read in; no retry is attempted.
func (s *Service) Transition(ctx context.Context, ownerID, leadID, actorID uuid.UUID, req transport.TransitionRequest) (transport.TransitionResponse, error) {
	target, err := domain.ParseStage(req.Stage)
	if err != nil {
		return transport.TransitionResponse{}, apperr.Validation(err.Error())
	}

	return s.change(ctx, ownerID, leadID, actorID, sanitize.Text(req.Note), false, func(lead domain.Lead, now time.Time) (domain.Lead, error) {
		return domain.ApplyTransition(lead, target, now)
	})
}

// Reopen moves a closed lead back to qualification and clears its close date.
func (s *Service) Reopen(ctx context.Context, ownerID, leadID, actorID uuid.UUID, req transport.ReopenRequest) (transport.TransitionResponse, error) {
	return s.change(ctx, ownerID, leadID, actorID, sanitize.Text(req.Note), true, domain.ApplyReopen)
}

func (s *Service) change(
	ctx context.Context,
	ownerID, leadID, actorID uuid.UUID,
	note string,
	reopen bool,
	apply func(lead domain.Lead, now time.Time) (domain.Lead, error),
) (transport.TransitionResponse, error) {
	lead, err := s.repo.GetLead(ctx, ownerID, leadID)
	if err != nil {
		return transport.TransitionResponse{}, mapStoreError(err)
	}

	now := s.now().UTC()
	next, err := apply(lead, now)
	if err != nil {
		return transport.TransitionResponse{}, mapTransitionError(err)
	}

	actor := actorID
	activity := domain.NewStageChangeActivity(next, lead.Stage, &actor, note, now)

	next, err = s.repo.ApplyStageChange(ctx, repository.StageChange{
		OwnerID:       ownerID,
		LeadID:        leadID,
		ExpectedStage: lead.Stage,
		Activity:      activity,
		Apply: func(locked domain.Lead) (domain.Lead, error) {
			moved, err := apply(locked, now)
			if err != nil {
				return domain.Lead{}, err
			}
			s.model.Apply(&moved, now)
			return moved, nil
		},
	})
	if err != nil {
		return transport.TransitionResponse{}, mapTransitionError(mapStoreError(err))
	}

	s.log.WithContext(ctx).StageChanged(next.ID.String(), next.OwnerID.String(), string(lead.Stage), string(next.Stage))
	s.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent:     events.NewBaseEventAt(now),
		LeadID:        next.ID,
		OwnerID:       next.OwnerID,
		ActorID:       &actor,
		ActivityID:    activity.ID,
		PreviousStage: string(lead.Stage),
		NewStage:      string(next.Stage),
		Reopened:      reopen,
		Note:          note,
	})

	return transport.TransitionResponse{
		Lead:     transport.ToLeadResponse(next, now),
		Activity: transport.ToActivityResponse(activity),
	}, nil
}

func mapTransitionError(err error) error {
	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		return apperr.Wrap(apperr.KindInvalidTransition, invalid.Error(), err).WithDetails(TransitionDetails{
			CurrentStage:   string(invalid.Current),
			AttemptedStage: string(invalid.Attempted),
		})
	}
	return err
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found")
	case errors.Is(err, repository.ErrStageConflict):
		return apperr.Wrap(apperr.KindConflict, "lead stage was changed by another request", err)
	default:
		return err
	}
}
