// Package scheduling sets and clears a lead's advisory follow-up date.
// Reminders are handed to the scheduler; the engine never enforces them.
package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"coaching_portal_backend/internal/events"
	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/repository"
	"coaching_portal_backend/internal/pipeline/transport"
	"coaching_portal_backend/internal/scheduler"
	"coaching_portal_backend/platform/apperr"
	"coaching_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the scheduling service.
type Repository interface {
	MutateLead(ctx context.Context, ownerID, leadID uuid.UUID, fn func(lead *domain.Lead) error) (domain.Lead, error)
}

// ReminderScheduler enqueues the follow-up-due task for a lead.
type ReminderScheduler interface {
	ScheduleFollowUpDue(ctx context.Context, payload scheduler.FollowUpDuePayload, runAt time.Time) error
}

// Service handles follow-up scheduling.
type Service struct {
	repo      Repository
	reminders ReminderScheduler
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new scheduling service. reminders may be nil when no task
// queue is configured.
func New(repo Repository, reminders ReminderScheduler, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, reminders: reminders, bus: bus, log: log, now: time.Now}
}

// ScheduleFollowUp sets the follow-up date, or clears it when date is nil.
// Dates before today and closed leads are rejected; clearing is always allowed.
func (s *Service) ScheduleFollowUp(ctx context.Context, ownerID, leadID uuid.UUID, date *time.Time) (transport.LeadResponse, error) {
	now := s.now().UTC()

	var followUp *time.Time
	if date != nil {
		// Postgres keeps microseconds; the reminder payload must match the stored value.
		d := date.UTC().Truncate(time.Microsecond)
		today := now.Truncate(24 * time.Hour)
		if d.Before(today) {
			return transport.LeadResponse{}, apperr.Validation("follow-up date cannot be in the past")
		}
		followUp = &d
	}

	lead, err := s.repo.MutateLead(ctx, ownerID, leadID, func(lead *domain.Lead) error {
		if followUp != nil && !lead.IsOpen() {
			return apperr.Validation("cannot schedule a follow-up on a closed lead")
		}
		lead.NextFollowUpDate = followUp
		lead.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}

	if followUp != nil && s.reminders != nil {
		payload := scheduler.FollowUpDuePayload{
			LeadID:     lead.ID.String(),
			OwnerID:    lead.OwnerID.String(),
			FollowUpAt: *followUp,
		}
		if err := s.reminders.ScheduleFollowUpDue(ctx, payload, *followUp); err != nil {
			s.log.WithContext(ctx).Warn("follow-up reminder enqueue failed",
				slog.String("lead_id", lead.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	s.bus.Publish(ctx, events.FollowUpScheduled{
		BaseEvent:  events.NewBaseEventAt(now),
		LeadID:     lead.ID,
		OwnerID:    lead.OwnerID,
		FollowUpAt: followUp,
	})

	return transport.ToLeadResponse(lead, now), nil
}
