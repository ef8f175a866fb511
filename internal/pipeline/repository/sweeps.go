package repository

import (
	"context"
	"time"

	"coaching_portal_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// ListOpenLeadsPage returns open leads across all owners ordered by id,
// starting after afterID. Background jobs page through the table with it.
func (r *Repository) ListOpenLeadsPage(ctx context.Context, afterID uuid.UUID, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE stage NOT IN ('closed_won', 'closed_lost') AND id > $1
		ORDER BY id ASC
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// ListStalledLeads returns open leads, across all owners, that entered their
// stage at or before cutoff. Rows are keyset-ordered by (stage_entered_at, id)
// and start strictly after (afterEnteredAt, afterID); pass zero values for
// the first page.
func (r *Repository) ListStalledLeads(ctx context.Context, cutoff, afterEnteredAt time.Time, afterID uuid.UUID, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE stage NOT IN ('closed_won', 'closed_lost')
			AND stage_entered_at <= $1
			AND (stage_entered_at, id) > ($2, $3)
		ORDER BY stage_entered_at ASC, id ASC
		LIMIT $4
	`, cutoff, afterEnteredAt, afterID, limit)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// UpdateScore stores a score recomputed from read, the lead as the caller
// loaded it. The write only lands while the lead is open, its score factors
// still equal those in read and the cached score differs. It reports whether
// a row changed.
func (r *Repository) UpdateScore(ctx context.Context, read domain.Lead, total int, category domain.ScoreCategory) (bool, error) {
	f := read.ScoreFactors
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET total_score = $3, score_category = $4
		WHERE id = $1 AND owner_id = $2
			AND stage NOT IN ('closed_won', 'closed_lost')
			AND last_engagement_at IS NOT DISTINCT FROM $5
			AND budget_confirmed = $6
			AND authority_confirmed = $7
			AND need_confirmed = $8
			AND timeline_urgency = $9
			AND (total_score <> $3 OR score_category <> $4)
	`, read.ID, read.OwnerID, total, string(category),
		f.LastEngagementAt, f.BudgetConfirmed, f.AuthorityConfirmed, f.NeedConfirmed, f.TimelineUrgency)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
