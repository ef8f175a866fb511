// Package pipeline provides the sales pipeline bounded context: lead stages,
// scoring, the activity log, follow-ups and pipeline metrics for one coach.
package pipeline

import (
	"coaching_portal_backend/internal/events"
	apphttp "coaching_portal_backend/internal/http"
	"coaching_portal_backend/internal/pipeline/activity"
	"coaching_portal_backend/internal/pipeline/dashboard"
	"coaching_portal_backend/internal/pipeline/handler"
	"coaching_portal_backend/internal/pipeline/lifecycle"
	"coaching_portal_backend/internal/pipeline/management"
	"coaching_portal_backend/internal/pipeline/scheduling"
	"coaching_portal_backend/internal/pipeline/tuning"
	"coaching_portal_backend/platform/logger"
	"coaching_portal_backend/platform/validator"
)

// Store is everything the pipeline services need from persistence.
// *repository.Repository satisfies it.
type Store interface {
	management.Repository
	lifecycle.Repository
	activity.Repository
	scheduling.Repository
	dashboard.Repository
}

// Module is the pipeline bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	management *management.Service
	lifecycle  *lifecycle.Service
	activity   *activity.Service
	scheduling *scheduling.Service
	dashboard  *dashboard.Service
}

// NewModule creates and initializes the pipeline module. reminders may be nil.
func NewModule(store Store, tun tuning.Tuning, reminders scheduling.ReminderScheduler, bus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	model, err := tun.Model()
	if err != nil {
		return nil, err
	}
	phones, err := tun.Phones()
	if err != nil {
		return nil, err
	}

	m := &Module{
		management: management.New(store, model, phones, bus, log),
		lifecycle:  lifecycle.New(store, model, bus, log),
		activity:   activity.New(store, model, bus, log),
		scheduling: scheduling.New(store, reminders, bus, log),
		dashboard:  dashboard.New(store, tun.MetricsConfig()),
	}
	m.handler = handler.New(handler.Services{
		Management: m.management,
		Lifecycle:  m.lifecycle,
		Activity:   m.activity,
		Scheduling: m.scheduling,
		Dashboard:  m.dashboard,
	}, val)

	return m, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// RegisterRoutes mounts pipeline routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/pipeline"))
}

// ManagementService returns the lead management service.
func (m *Module) ManagementService() *management.Service { return m.management }

// LifecycleService returns the stage transition service.
func (m *Module) LifecycleService() *lifecycle.Service { return m.lifecycle }
