package scheduler

import (
	"context"
	"time"

	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/scoring"
	"coaching_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultScoreRefreshInterval = 6 * time.Hour
	scoreRefreshPageSize        = 200
)

// ScoreStore is the slice of the pipeline repository the score refresh needs.
type ScoreStore interface {
	ListOpenLeadsPage(ctx context.Context, afterID uuid.UUID, limit int) ([]domain.Lead, error)
	UpdateScore(ctx context.Context, read domain.Lead, total int, category domain.ScoreCategory) (bool, error)
}

// ScoreRefresh periodically recomputes cached lead scores so engagement
// recency decay shows up in lists without waiting for the next write.
type ScoreRefresh struct {
	store    ScoreStore
	model    *scoring.Model
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

func NewScoreRefresh(store ScoreStore, model *scoring.Model, log *logger.Logger, interval time.Duration) *ScoreRefresh {
	if interval <= 0 {
		interval = defaultScoreRefreshInterval
	}

	return &ScoreRefresh{
		store:    store,
		model:    model,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

func (r *ScoreRefresh) Run(ctx context.Context) {
	if r == nil || r.store == nil {
		return
	}

	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh walks every open lead once and returns how many scores changed.
func (r *ScoreRefresh) refresh(ctx context.Context) int {
	started := time.Now()
	asOf := r.now().UTC()
	changed := 0
	afterID := uuid.Nil

	for {
		page, err := r.store.ListOpenLeadsPage(ctx, afterID, scoreRefreshPageSize)
		if err != nil {
			r.log.Warn("score refresh page failed", "error", err)
			return changed
		}

		for _, lead := range page {
			result := r.model.Compute(lead.ScoreFactors, asOf)
			if result.Total == lead.TotalScore && result.Category == lead.ScoreCategory {
				continue
			}
			updated, err := r.store.UpdateScore(ctx, lead, result.Total, result.Category)
			if err != nil {
				r.log.Warn("score refresh update failed", "lead_id", lead.ID.String(), "error", err)
				continue
			}
			if updated {
				changed++
			}
		}

		if len(page) < scoreRefreshPageSize {
			break
		}
		afterID = page[len(page)-1].ID
	}

	r.log.JobRun("score_refresh", changed, time.Since(started))
	return changed
}
