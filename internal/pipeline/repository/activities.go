package repository

import (
	"context"

	"coaching_portal_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const activityColumns = `
	id, lead_id, owner_id, type, subject, description, outcome,
	previous_stage, new_stage, actor_id, created_at`

func insertActivity(ctx context.Context, tx pgx.Tx, a domain.Activity) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO lead_activities (
			id, lead_id, owner_id, type, subject, description, outcome,
			previous_stage, new_stage, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		a.ID, a.LeadID, a.OwnerID, string(a.Type), a.Subject, a.Description,
		outcomeParam(a.Outcome), stageParam(a.PreviousStage), stageParam(a.NewStage),
		a.ActorID, a.CreatedAt,
	)
	return err
}

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a                  domain.Activity
		typ                string
		outcome            *string
		previous, newStage *string
	)
	if err := row.Scan(
		&a.ID, &a.LeadID, &a.OwnerID, &typ, &a.Subject, &a.Description, &outcome,
		&previous, &newStage, &a.ActorID, &a.CreatedAt,
	); err != nil {
		return domain.Activity{}, err
	}

	a.Type = domain.ActivityType(typ)
	if outcome != nil {
		o := domain.Outcome(*outcome)
		a.Outcome = &o
	}
	if previous != nil {
		s := domain.Stage(*previous)
		a.PreviousStage = &s
	}
	if newStage != nil {
		s := domain.Stage(*newStage)
		a.NewStage = &s
	}
	return a, nil
}

func collectActivities(rows pgx.Rows) ([]domain.Activity, error) {
	defer rows.Close()

	items := make([]domain.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// ListActivities returns a lead's activity log, newest first.
func (r *Repository) ListActivities(ctx context.Context, ownerID, leadID uuid.UUID, limit int) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM lead_activities
		WHERE lead_id = $1 AND owner_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, leadID, ownerID, limit)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

// ListOwnerActivities returns every activity across the owner's leads, used by
// the aggregator for stage history and weekly activity counts.
func (r *Repository) ListOwnerActivities(ctx context.Context, ownerID uuid.UUID) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM lead_activities
		WHERE owner_id = $1
		ORDER BY created_at ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func outcomeParam(o *domain.Outcome) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}

func stageParam(s *domain.Stage) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
