// Package handler exposes the sales pipeline over HTTP.
package handler

import (
	"net/http"

	"coaching_portal_backend/internal/pipeline/activity"
	"coaching_portal_backend/internal/pipeline/dashboard"
	"coaching_portal_backend/internal/pipeline/lifecycle"
	"coaching_portal_backend/internal/pipeline/management"
	"coaching_portal_backend/internal/pipeline/scheduling"
	"coaching_portal_backend/internal/pipeline/transport"
	"coaching_portal_backend/platform/httpkit"
	"coaching_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for the pipeline.
type Handler struct {
	mgmt       *management.Service
	lifecycle  *lifecycle.Service
	activities *activity.Service
	scheduling *scheduling.Service
	dashboard  *dashboard.Service
	val        *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
	msgDateRequired     = "date is required; send null to clear the follow-up"
)

// Services groups the pipeline services a Handler dispatches to.
type Services struct {
	Management *management.Service
	Lifecycle  *lifecycle.Service
	Activity   *activity.Service
	Scheduling *scheduling.Service
	Dashboard  *dashboard.Service
}

// New creates a new pipeline handler.
func New(svcs Services, val *validator.Validator) *Handler {
	return &Handler{
		mgmt:       svcs.Management,
		lifecycle:  svcs.Lifecycle,
		activities: svcs.Activity,
		scheduling: svcs.Scheduling,
		dashboard:  svcs.Dashboard,
		val:        val,
	}
}

// RegisterRoutes mounts the pipeline routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads", h.ListLeads)
	rg.POST("/leads", h.CreateLead)
	rg.GET("/leads/:id", h.GetLead)
	rg.PATCH("/leads/:id", h.UpdateLead)
	rg.PUT("/leads/:id/score-factors", h.UpdateScoreFactors)
	rg.POST("/leads/:id/transition", h.Transition)
	rg.POST("/leads/:id/reopen", h.Reopen)
	rg.GET("/leads/:id/activities", h.ListActivities)
	rg.POST("/leads/:id/activities", h.RecordActivity)
	rg.PUT("/leads/:id/follow-up", h.ScheduleFollowUp)
	rg.GET("/metrics", h.GetMetrics)
	rg.GET("/dashboard", h.GetDashboard)
}

// ListLeads returns a filtered, paginated page of the caller's leads.
// GET /api/v1/pipeline/leads
func (h *Handler) ListLeads(c *gin.Context) {
	var req transport.ListLeadsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	result, err := h.mgmt.List(c.Request.Context(), ownerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateLead adds a lead in prospecting.
// POST /api/v1/pipeline/leads
func (h *Handler) CreateLead(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	result, err := h.mgmt.Create(c.Request.Context(), ownerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// GetLead returns one lead with its score breakdown.
// GET /api/v1/pipeline/leads/:id
func (h *Handler) GetLead(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	result, err := h.mgmt.Get(c.Request.Context(), ownerID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateLead changes descriptive fields.
// PATCH /api/v1/pipeline/leads/:id
func (h *Handler) UpdateLead(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.UpdateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	result, err := h.mgmt.Update(c.Request.Context(), ownerID, leadID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateScoreFactors replaces the qualification factors and rescores.
// PUT /api/v1/pipeline/leads/:id/score-factors
func (h *Handler) UpdateScoreFactors(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.ScoreFactorsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	result, err := h.mgmt.UpdateScoreFactors(c.Request.Context(), ownerID, leadID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Transition moves a lead to another stage.
// POST /api/v1/pipeline/leads/:id/transition
func (h *Handler) Transition(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	userID := ownerID
	result, err := h.lifecycle.Transition(c.Request.Context(), userID, leadID, userID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reopen brings a closed lead back to qualification.
// POST /api/v1/pipeline/leads/:id/reopen
func (h *Handler) Reopen(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.ReopenRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	userID := ownerID
	result, err := h.lifecycle.Reopen(c.Request.Context(), userID, leadID, userID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListActivities returns a lead's activity log, newest first.
// GET /api/v1/pipeline/leads/:id/activities
func (h *Handler) ListActivities(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.ListActivitiesRequest
	if !h.bindQuery(c, &req) {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	result, err := h.activities.List(c.Request.Context(), ownerID, leadID, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RecordActivity logs a manual activity against a lead.
// POST /api/v1/pipeline/leads/:id/activities
func (h *Handler) RecordActivity(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.RecordActivityRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	result, err := h.activities.Record(c.Request.Context(), ownerID, leadID, ownerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// ScheduleFollowUp sets or clears the next follow-up date.
// PUT /api/v1/pipeline/leads/:id/follow-up
func (h *Handler) ScheduleFollowUp(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.ScheduleFollowUpRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if !req.Date.Set {
		httpkit.Error(c, http.StatusBadRequest, msgDateRequired, nil)
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	result, err := h.scheduling.ScheduleFollowUp(c.Request.Context(), ownerID, leadID, req.Date.Value)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetMetrics returns the caller's pipeline metrics.
// GET /api/v1/pipeline/metrics
func (h *Handler) GetMetrics(c *gin.Context) {
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	result, err := h.dashboard.GetMetrics(c.Request.Context(), ownerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetDashboard returns metrics plus the attention, hot and overdue lists.
// GET /api/v1/pipeline/dashboard
func (h *Handler) GetDashboard(c *gin.Context) {
	ownerID, ok := httpkit.MustGetOwnerID(c)
	if !ok {
		return
	}

	result, err := h.dashboard.GetDashboard(c.Request.Context(), ownerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
