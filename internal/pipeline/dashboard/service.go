// Package dashboard is the read model behind the pipeline dashboard.
// It loads one coach's leads and activities and aggregates them in memory.
package dashboard

import (
	"context"
	"time"

	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/metrics"
	"coaching_portal_backend/internal/pipeline/transport"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// listLimit caps each lead list on the dashboard.
const listLimit = 25

// Repository defines the data access interface needed by the dashboard service.
type Repository interface {
	ListAllLeads(ctx context.Context, ownerID uuid.UUID) ([]domain.Lead, error)
	ListOwnerActivities(ctx context.Context, ownerID uuid.UUID) ([]domain.Activity, error)
}

// Service builds metrics and dashboard snapshots.
type Service struct {
	repo Repository
	cfg  metrics.Config
	now  func() time.Time
}

// New creates a new dashboard service.
func New(repo Repository, cfg metrics.Config) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

type snapshot struct {
	leads      []domain.Lead
	activities []domain.Activity
	now        time.Time
}

func (s *Service) load(ctx context.Context, ownerID uuid.UUID) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		leads, err := s.repo.ListAllLeads(gctx, ownerID)
		snap.leads = leads
		return err
	})
	g.Go(func() error {
		activities, err := s.repo.ListOwnerActivities(gctx, ownerID)
		snap.activities = activities
		return err
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	snap.now = s.now().UTC()
	return snap, nil
}

// GetMetrics aggregates the owner's whole pipeline.
func (s *Service) GetMetrics(ctx context.Context, ownerID uuid.UUID) (transport.MetricsResponse, error) {
	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return transport.MetricsResponse{}, err
	}

	m := metrics.Aggregate(snap.leads, snap.activities, snap.now, s.cfg)
	return transport.ToMetricsResponse(m, s.cfg.Probabilities, snap.now), nil
}

// GetDashboard returns metrics plus the stalled, hot and overdue lead lists,
// all derived from the same snapshot.
func (s *Service) GetDashboard(ctx context.Context, ownerID uuid.UUID) (transport.DashboardResponse, error) {
	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return transport.DashboardResponse{}, err
	}

	m := metrics.Aggregate(snap.leads, snap.activities, snap.now, s.cfg)

	overdue := make([]domain.Lead, 0)
	for _, lead := range snap.leads {
		if domain.IsFollowUpOverdue(lead, snap.now) {
			overdue = append(overdue, lead)
		}
	}

	return transport.DashboardResponse{
		Metrics:          transport.ToMetricsResponse(m, s.cfg.Probabilities, snap.now),
		NeedingAttention: transport.ToLeadResponses(limit(metrics.NeedingAttention(snap.leads, snap.now, s.cfg.StallThresholdDays)), snap.now),
		HotLeads:         transport.ToLeadResponses(limit(metrics.HotLeads(snap.leads)), snap.now),
		OverdueFollowUps: transport.ToLeadResponses(limit(overdue), snap.now),
	}, nil
}

func limit(leads []domain.Lead) []domain.Lead {
	if len(leads) > listLimit {
		return leads[:listLimit]
	}
	return leads
}
