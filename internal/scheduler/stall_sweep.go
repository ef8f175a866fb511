package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coaching_portal_backend/internal/events"
	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultStallSweepInterval = time.Hour
	stallSweepBatch           = 500
	stallAlertKeyPrefix       = "pipeline:stall-alert:"
	stallAlertTTL             = 90 * 24 * time.Hour
)

// StalledLeadSource lists open leads that entered their stage at or before
// cutoff, ordered by (stage_entered_at, id) and starting strictly after the
// given key.
type StalledLeadSource interface {
	ListStalledLeads(ctx context.Context, cutoff, afterEnteredAt time.Time, afterID uuid.UUID, limit int) ([]domain.Lead, error)
}

// AlertMarker records that a stall alert went out. Mark returns false when the
// key was already marked.
type AlertMarker interface {
	Mark(ctx context.Context, key string) (bool, error)
}

// RedisAlertMarker keeps stall alert markers in Redis so several scheduler
// replicas alert once between them.
type RedisAlertMarker struct {
	client *redis.Client
}

func NewRedisAlertMarker(client *redis.Client) *RedisAlertMarker {
	return &RedisAlertMarker{client: client}
}

func (m *RedisAlertMarker) Mark(ctx context.Context, key string) (bool, error) {
	return m.client.SetNX(ctx, stallAlertKeyPrefix+key, 1, stallAlertTTL).Result()
}

// MemoryAlertMarker is the single-process fallback when no Redis is configured.
type MemoryAlertMarker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryAlertMarker() *MemoryAlertMarker {
	return &MemoryAlertMarker{seen: make(map[string]struct{})}
}

func (m *MemoryAlertMarker) Mark(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = struct{}{}
	return true, nil
}

// StallSweep publishes LeadStalled once per lead and stage entry when an open
// lead has sat in its stage for more than thresholdDays.
type StallSweep struct {
	source        StalledLeadSource
	marker        AlertMarker
	bus           events.Bus
	log           *logger.Logger
	interval      time.Duration
	thresholdDays int
	now           func() time.Time
}

func NewStallSweep(source StalledLeadSource, marker AlertMarker, bus events.Bus, log *logger.Logger, interval time.Duration, thresholdDays int) *StallSweep {
	if interval <= 0 {
		interval = defaultStallSweepInterval
	}
	if marker == nil {
		marker = NewMemoryAlertMarker()
	}

	return &StallSweep{
		source:        source,
		marker:        marker,
		bus:           bus,
		log:           log,
		interval:      interval,
		thresholdDays: thresholdDays,
		now:           time.Now,
	}
}

func (s *StallSweep) Run(ctx context.Context) {
	if s == nil || s.source == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep returns the number of alerts published.
func (s *StallSweep) sweep(ctx context.Context) int {
	started := time.Now()
	now := s.now().UTC()
	// More than thresholdDays whole days in stage.
	cutoff := now.Add(-time.Duration(s.thresholdDays+1) * 24 * time.Hour)

	published := 0
	var afterEnteredAt time.Time
	afterID := uuid.Nil

	for {
		page, err := s.source.ListStalledLeads(ctx, cutoff, afterEnteredAt, afterID, stallSweepBatch)
		if err != nil {
			s.log.Warn("stall sweep query failed", "error", err)
			break
		}

		for _, lead := range page {
			if s.alert(ctx, lead, now) {
				published++
			}
		}

		if len(page) < stallSweepBatch {
			break
		}
		last := page[len(page)-1]
		afterEnteredAt, afterID = last.StageEnteredAt, last.ID
	}

	s.log.JobRun("stall_sweep", published, time.Since(started))
	return published
}

// alert publishes LeadStalled unless this stage entry was already alerted.
func (s *StallSweep) alert(ctx context.Context, lead domain.Lead, now time.Time) bool {
	key := fmt.Sprintf("%s:%d", lead.ID, lead.StageEnteredAt.UTC().Unix())
	fresh, err := s.marker.Mark(ctx, key)
	if err != nil {
		s.log.Warn("stall alert marker failed", "lead_id", lead.ID.String(), "error", err)
		return false
	}
	if !fresh {
		return false
	}

	s.bus.Publish(ctx, events.LeadStalled{
		BaseEvent:          events.NewBaseEventAt(now),
		LeadID:             lead.ID,
		OwnerID:            lead.OwnerID,
		LeadName:           lead.Name,
		Stage:              lead.Stage.String(),
		DaysInCurrentStage: domain.DaysInCurrentStage(lead, now),
	})
	return true
}
