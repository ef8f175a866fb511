// Package management handles lead CRUD operations and score factor updates.
// This is a vertically sliced feature package; stage changes live in lifecycle.
package management

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
	"coaching_portal_backend/platform/phone"
	"coaching_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	maxNameLength   = 200
	defaultPageSize = 20
	msgLeadNotFound = "lead not found"
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	CreateLead(ctx context.Context, lead domain.Lead) error
	GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (domain.Lead, error)
	MutateLead(ctx context.Context, ownerID, leadID uuid.UUID, fn func(lead *domain.Lead) error) (domain.Lead, error)
	ListLeads(ctx context.Context, params repository.ListParams) ([]domain.Lead, int, error)
}

// Service handles lead management operations.
type Service struct {
	repo   Repository
	model  *scoring.Model
	phones phone.Normalizer
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

// New creates a new lead management service.
func New(repo Repository, model *scoring.Model, phones phone.Normalizer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, model: model, phones: phones, bus: bus, log: log, now: time.Now}
}

// Create adds a lead in the prospecting stage and scores it from whatever
// factors were supplied; missing factors count as their minimum.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if req.EstimatedValueCents < 0 {
		return transport.LeadResponse{}, apperr.Validation("estimated value must not be negative")
	}

	var factors domain.ScoreFactors
	if req.ScoreFactors != nil {
		factors = toScoreFactors(*req.ScoreFactors)
		if err := scoring.ValidateFactors(factors); err != nil {
			return transport.LeadResponse{}, apperr.Validation(err.Error())
		}
	}

	now := s.now().UTC()
	lead := domain.Lead{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    name,
		Contact: domain.ContactInfo{
			Email:   strings.TrimSpace(req.Contact.Email),
			Phone:   s.phones.E164(req.Contact.Phone),
			Company: sanitize.Line(req.Contact.Company),
		},
		Stage:               domain.StageProspecting,
		EstimatedValueCents: req.EstimatedValueCents,
		ScoreFactors:        factors,
		StageEnteredAt:      now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	result := s.model.Apply(&lead, now)

	if err := s.repo.CreateLead(ctx, lead); err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:           events.NewBaseEventAt(now),
		LeadID:              lead.ID,
		OwnerID:             lead.OwnerID,
		Name:                lead.Name,
		EstimatedValueCents: lead.EstimatedValueCents,
		TotalScore:          lead.TotalScore,
		ScoreCategory:       string(lead.ScoreCategory),
	})

	return transport.ToLeadResponseWithBreakdown(lead, result.Breakdown, now), nil
}

// Get returns one lead with its score breakdown as of now.
func (s *Service) Get(ctx context.Context, ownerID, leadID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetLead(ctx, ownerID, leadID)
	if err != nil {
		return transport.LeadResponse{}, mapStoreError(err)
	}

	now := s.now().UTC()
	result := s.model.Compute(lead.ScoreFactors, now)
	return transport.ToLeadResponseWithBreakdown(lead, result.Breakdown, now), nil
}

// Update changes descriptive fields. Plain edits are last-write-wins.
func (s *Service) Update(ctx context.Context, ownerID, leadID uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	var name string
	if req.Name != nil {
		normalized, err := normalizeName(*req.Name)
		if err != nil {
			return transport.LeadResponse{}, err
		}
		name = normalized
	}
	if req.EstimatedValueCents != nil && *req.EstimatedValueCents < 0 {
		return transport.LeadResponse{}, apperr.Validation("estimated value must not be negative")
	}

	now := s.now().UTC()
	lead, err := s.repo.MutateLead(ctx, ownerID, leadID, func(lead *domain.Lead) error {
		if req.Name != nil {
			lead.Name = name
		}
		if req.Email != nil {
			lead.Contact.Email = strings.TrimSpace(*req.Email)
		}
		if req.Phone != nil {
			lead.Contact.Phone = s.phones.E164(*req.Phone)
		}
		if req.Company != nil {
			lead.Contact.Company = sanitize.Line(*req.Company)
		}
		if req.EstimatedValueCents != nil {
			lead.EstimatedValueCents = *req.EstimatedValueCents
		}
		lead.UpdatedAt = now
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, mapStoreError(err)
	}

	return transport.ToLeadResponse(lead, now), nil
}

// UpdateScoreFactors replaces the caller-owned score factors and rescores the
// lead. Engagement recency is maintained from activities and is kept as is.
func (s *Service) UpdateScoreFactors(ctx context.Context, ownerID, leadID uuid.UUID, req transport.ScoreFactorsRequest) (transport.LeadResponse, error) {
	incoming := toScoreFactors(req)
	if err := scoring.ValidateFactors(incoming); err != nil {
		return transport.LeadResponse{}, apperr.Validation(err.Error())
	}

	now := s.now().UTC()
	var result scoring.Result
	lead, err := s.repo.MutateLead(ctx, ownerID, leadID, func(lead *domain.Lead) error {
		incoming.LastEngagementAt = lead.ScoreFactors.LastEngagementAt
		lead.ScoreFactors = incoming
		result = s.model.Apply(lead, now)
		lead.UpdatedAt = now
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, mapStoreError(err)
	}

	return transport.ToLeadResponseWithBreakdown(lead, result.Breakdown, now), nil
}

// List returns a filtered page of the owner's leads.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	now := s.now().UTC()

	params := repository.ListParams{
		OwnerID:   ownerID,
		Search:    req.Search,
		OpenOnly:  req.OpenOnly,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	for _, raw := range req.Stages {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			stage, err := domain.ParseStage(part)
			if err != nil {
				return transport.LeadListResponse{}, apperr.Validation(err.Error())
			}
			params.Stages = append(params.Stages, stage)
		}
	}

	if req.Category != "" {
		category := domain.ScoreCategory(req.Category)
		switch category {
		case domain.CategoryCold, domain.CategoryWarm, domain.CategoryHot:
			params.Category = &category
		default:
			return transport.LeadListResponse{}, apperr.Validation("unknown score category")
		}
	}

	if req.Overdue {
		params.OverdueAt = &now
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	params.Limit = pageSize
	params.Offset = (page - 1) * pageSize

	leads, total, err := s.repo.ListLeads(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return transport.LeadListResponse{
		Items:      transport.ToLeadResponses(leads, now),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func normalizeName(raw string) (string, error) {
	name := sanitize.Line(raw)
	if name == "" {
		return "", apperr.Validation("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", apperr.Validation("name must be at most 200 characters")
	}
	return name, nil
}

func toScoreFactors(req transport.ScoreFactorsRequest) domain.ScoreFactors {
	return domain.ScoreFactors{
		BudgetConfirmed:    req.BudgetConfirmed,
		AuthorityConfirmed: req.AuthorityConfirmed,
		NeedConfirmed:      req.NeedConfirmed,
		TimelineUrgency:    req.TimelineUrgency,
	}
}

func mapStoreError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgLeadNotFound)
	}
	return err
}
