package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coaching_portal_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// ListParams filters and pages an owner's leads.
type ListParams struct {
	OwnerID  uuid.UUID
	Stages   []domain.Stage
	Category *domain.ScoreCategory
	Search   string
	OpenOnly bool
	// OverdueAt keeps only open leads whose follow-up date is before it.
	OverdueAt *time.Time
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// ListLeads returns one page of the owner's leads and the total match count.
func (r *Repository) ListLeads(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn := mapLeadSortColumn(params.SortBy)
	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	leads, err := collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	// Owner is always the first filter
	whereClauses := []string{"owner_id = $1"}
	args := []interface{}{params.OwnerID}
	argIdx := 2

	if len(params.Stages) > 0 {
		stages := make([]string, 0, len(params.Stages))
		for _, s := range params.Stages {
			stages = append(stages, string(s))
		}
		whereClauses = append(whereClauses, fmt.Sprintf("stage = ANY($%d)", argIdx))
		args = append(args, stages)
		argIdx++
	}
	if params.Category != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("score_category = $%d", argIdx))
		args = append(args, string(*params.Category))
		argIdx++
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(name ILIKE $%d OR contact_email ILIKE $%d OR contact_company ILIKE $%d OR contact_phone ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx,
		))
		args = append(args, "%"+search+"%")
		argIdx++
	}
	if params.OpenOnly || params.OverdueAt != nil {
		whereClauses = append(whereClauses, "stage NOT IN ('closed_won', 'closed_lost')")
	}
	if params.OverdueAt != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("next_follow_up_date < $%d", argIdx))
		args = append(args, *params.OverdueAt)
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func mapLeadSortColumn(sortBy string) string {
	switch sortBy {
	case "name":
		return "name"
	case "score":
		return "total_score"
	case "value":
		return "estimated_value_cents"
	case "stageEnteredAt":
		return "stage_entered_at"
	case "nextFollowUpDate":
		return "next_follow_up_date"
	case "updatedAt":
		return "updated_at"
	default:
		return "created_at"
	}
}
