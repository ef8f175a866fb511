// Package repository is the Postgres store for pipeline leads and their
// activity log. Every query is scoped by owner_id.
package repository

import (
	"context"
	"errors"
	"fmt"

	"coaching_portal_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a lead does not exist for the owner.
	ErrNotFound = errors.New("lead not found")
	// ErrStageConflict is returned when a lead moved to another stage between
	// the caller's read and its transition write.
	ErrStageConflict = errors.New("lead stage changed concurrently")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, owner_id, name, contact_email, contact_phone, contact_company,
	stage, estimated_value_cents,
	last_engagement_at, budget_confirmed, authority_confirmed, need_confirmed, timeline_urgency,
	total_score, score_category,
	stage_entered_at, next_follow_up_date, created_at, updated_at, closed_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead                  domain.Lead
		email, phone, company *string
		stage, category       string
	)
	err := row.Scan(
		&lead.ID, &lead.OwnerID, &lead.Name, &email, &phone, &company,
		&stage, &lead.EstimatedValueCents,
		&lead.ScoreFactors.LastEngagementAt, &lead.ScoreFactors.BudgetConfirmed,
		&lead.ScoreFactors.AuthorityConfirmed, &lead.ScoreFactors.NeedConfirmed,
		&lead.ScoreFactors.TimelineUrgency,
		&lead.TotalScore, &category,
		&lead.StageEnteredAt, &lead.NextFollowUpDate, &lead.CreatedAt, &lead.UpdatedAt, &lead.ClosedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}

	lead.Contact = domain.ContactInfo{
		Email:   derefString(email),
		Phone:   derefString(phone),
		Company: derefString(company),
	}
	lead.Stage = domain.Stage(stage)
	lead.ScoreCategory = domain.ScoreCategory(category)
	return lead, nil
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

// CreateLead inserts a new lead. The caller has already computed its score.
func (r *Repository) CreateLead(ctx context.Context, lead domain.Lead) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leads (
			id, owner_id, name, contact_email, contact_phone, contact_company,
			stage, estimated_value_cents,
			last_engagement_at, budget_confirmed, authority_confirmed, need_confirmed, timeline_urgency,
			total_score, score_category,
			stage_entered_at, next_follow_up_date, created_at, updated_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		lead.ID, lead.OwnerID, lead.Name,
		nullIfEmpty(lead.Contact.Email), nullIfEmpty(lead.Contact.Phone), nullIfEmpty(lead.Contact.Company),
		string(lead.Stage), lead.EstimatedValueCents,
		lead.ScoreFactors.LastEngagementAt, lead.ScoreFactors.BudgetConfirmed,
		lead.ScoreFactors.AuthorityConfirmed, lead.ScoreFactors.NeedConfirmed,
		lead.ScoreFactors.TimelineUrgency,
		lead.TotalScore, string(lead.ScoreCategory),
		lead.StageEnteredAt, lead.NextFollowUpDate, lead.CreatedAt, lead.UpdatedAt, lead.ClosedAt,
	)
	return err
}

// GetLead returns one lead of the owner.
func (r *Repository) GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1 AND owner_id = $2`,
		leadID, ownerID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// ListAllLeads returns every lead of the owner, used by the aggregator.
func (r *Repository) ListAllLeads(ctx context.Context, ownerID uuid.UUID) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE owner_id = $1 ORDER BY created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// MutateLead locks one lead, lets fn change its descriptive, scoring and
// follow-up fields, and writes them back in the same transaction. The stage
// columns are never written here; see ApplyStageChange.
func (r *Repository) MutateLead(ctx context.Context, ownerID, leadID uuid.UUID, fn func(lead *domain.Lead) error) (domain.Lead, error) {
	var result domain.Lead
	err := r.withLeadLocked(ctx, ownerID, leadID, func(tx pgx.Tx, lead *domain.Lead) error {
		if err := fn(lead); err != nil {
			return err
		}
		if err := updateLeadFields(ctx, tx, *lead); err != nil {
			return err
		}
		result = *lead
		return nil
	})
	return result, err
}

// AppendActivity inserts an activity for a lead. Before the insert, fn may
// adjust the locked lead (engagement recency and score); the lead row and the
// activity are committed together.
func (r *Repository) AppendActivity(ctx context.Context, activity domain.Activity, fn func(lead *domain.Lead)) (domain.Lead, error) {
	var result domain.Lead
	err := r.withLeadLocked(ctx, activity.OwnerID, activity.LeadID, func(tx pgx.Tx, lead *domain.Lead) error {
		if fn != nil {
			fn(lead)
			if err := updateLeadFields(ctx, tx, *lead); err != nil {
				return err
			}
		}
		if err := insertActivity(ctx, tx, activity); err != nil {
			return err
		}
		result = *lead
		return nil
	})
	return result, err
}

// StageChange describes one transition. Apply receives the row as locked by
// the write transaction and returns it moved and rescored; only the stage,
// close and score columns of its result are stored, so factor and engagement
// edits committed after the caller's read survive.
type StageChange struct {
	OwnerID       uuid.UUID
	LeadID        uuid.UUID
	ExpectedStage domain.Stage
	Apply         func(lead domain.Lead) (domain.Lead, error)
	Activity      domain.Activity
}

// ApplyStageChange locks the lead, checks it is still in ExpectedStage and
// writes the transition and its activity in one transaction. A lead that
// moved meanwhile yields ErrStageConflict and nothing is written.
func (r *Repository) ApplyStageChange(ctx context.Context, change StageChange) (domain.Lead, error) {
	var result domain.Lead
	err := r.withLeadLocked(ctx, change.OwnerID, change.LeadID, func(tx pgx.Tx, lead *domain.Lead) error {
		if lead.Stage != change.ExpectedStage {
			return ErrStageConflict
		}
		next, err := change.Apply(*lead)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE leads
			SET stage = $3,
				stage_entered_at = $4,
				closed_at = $5,
				total_score = $6,
				score_category = $7,
				updated_at = $8
			WHERE id = $1 AND owner_id = $2
		`,
			lead.ID, lead.OwnerID,
			string(next.Stage), next.StageEnteredAt, next.ClosedAt,
			next.TotalScore, string(next.ScoreCategory), next.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update lead stage: %w", err)
		}

		if err := insertActivity(ctx, tx, change.Activity); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

func (r *Repository) withLeadLocked(ctx context.Context, ownerID, leadID uuid.UUID, fn func(tx pgx.Tx, lead *domain.Lead) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := scanLead(tx.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1 AND owner_id = $2 FOR UPDATE`,
		leadID, ownerID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := fn(tx, &lead); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func updateLeadFields(ctx context.Context, tx pgx.Tx, lead domain.Lead) error {
	tag, err := tx.Exec(ctx, `
		UPDATE leads
		SET name = $3,
			contact_email = $4,
			contact_phone = $5,
			contact_company = $6,
			estimated_value_cents = $7,
			last_engagement_at = $8,
			budget_confirmed = $9,
			authority_confirmed = $10,
			need_confirmed = $11,
			timeline_urgency = $12,
			total_score = $13,
			score_category = $14,
			next_follow_up_date = $15,
			updated_at = $16
		WHERE id = $1 AND owner_id = $2
	`,
		lead.ID, lead.OwnerID, lead.Name,
		nullIfEmpty(lead.Contact.Email), nullIfEmpty(lead.Contact.Phone), nullIfEmpty(lead.Contact.Company),
		lead.EstimatedValueCents,
		lead.ScoreFactors.LastEngagementAt, lead.ScoreFactors.BudgetConfirmed,
		lead.ScoreFactors.AuthorityConfirmed, lead.ScoreFactors.NeedConfirmed,
		lead.ScoreFactors.TimelineUrgency,
		lead.TotalScore, string(lead.ScoreCategory),
		lead.NextFollowUpDate, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
