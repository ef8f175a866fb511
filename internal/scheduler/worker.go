package scheduler

import (
	"context"
	"errors"
	"fmt"

	"coaching_portal_backend/internal/events"
	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/repository"
	"coaching_portal_backend/platform/config"
	"coaching_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// LeadReader loads a single lead for the reminder handler.
type LeadReader interface {
	GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (domain.Lead, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	leads  LeadReader
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, leads LeadReader, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(leads, bus, log)
	w.server = server

	return w, nil
}

func newWorker(leads LeadReader, bus events.Bus, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:   mux,
		leads: leads,
		bus:   bus,
		log:   log,
	}

	mux.HandleFunc(TaskFollowUpDue, w.handleFollowUpDue)

	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleFollowUpDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpDuePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	ownerID, err := uuid.Parse(payload.OwnerID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	lead, err := w.leads.GetLead(ctx, ownerID, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// The follow-up was cleared, moved or the lead closed after enqueueing.
	if !lead.IsOpen() || lead.NextFollowUpDate == nil || !lead.NextFollowUpDate.Equal(payload.FollowUpAt) {
		return nil
	}

	if w.bus == nil {
		return nil
	}

	w.bus.Publish(ctx, events.FollowUpDue{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		OwnerID:    lead.OwnerID,
		LeadName:   lead.Name,
		Stage:      lead.Stage.String(),
		FollowUpAt: *lead.NextFollowUpDate,
	})

	return nil
}
