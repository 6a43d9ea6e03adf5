// Package handler exposes the pipeline engine over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"realty_pipeline_backend/internal/pipeline/domain"
	"realty_pipeline_backend/internal/pipeline/repository"
	"realty_pipeline_backend/internal/pipeline/service"
	"realty_pipeline_backend/internal/pipeline/transport"
	"realty_pipeline_backend/platform/httpkit"
	"realty_pipeline_backend/platform/validator"
)

const (
	msgInvalidRequest   = "Invalid request body"
	msgValidationFailed = "Validation failed"
	msgInvalidID        = "Invalid ID format"
)

// Handler handles HTTP requests for the pipeline module.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a pipeline handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// CreateAssignment hands a lead to a sales actor.
// POST /api/v1/assignments
func (h *Handler) CreateAssignment(c *gin.Context) {
	var req transport.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	actorID := identity.UserID()
	if req.ActorID != nil {
		actorID = *req.ActorID
	}

	result, err := h.svc.CreateAssignment(c.Request.Context(), repository.CreateAssignmentParams{
		LeadID:          req.LeadID,
		ActorID:         actorID,
		ExpectedCloseAt: req.ExpectedCloseAt,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewAssignmentResponse(result))
}

// GetAssignment returns an assignment with its stage history and activity
// log, decorated with lead and actor display fields.
// GET /api/v1/assignments/:id
func (h *Handler) GetAssignment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	detail, err := h.svc.GetAssignmentDetail(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewAssignmentDetailResponse(detail))
}

// InitializePipeline opens the first stage of an assignment's pipeline.
// POST /api/v1/assignments/:id/pipeline
func (h *Handler) InitializePipeline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	stage, err := h.svc.InitializePipeline(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewStageResponse(stage))
}

// MoveStage transitions an assignment to a new stage, or updates the open
// stage in place when the target equals the current stage.
// POST /api/v1/assignments/:id/pipeline/transitions
func (h *Handler) MoveStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.MoveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	update := domain.StageUpdate{
		Probability:         req.Probability,
		EstimatedValueCents: req.EstimatedValueCents,
		NextAction:          req.NextAction,
		NextActionAt:        req.NextActionAt,
		Notes:               req.Notes,
	}
	result, err := h.svc.MoveToStage(c.Request.Context(), id, domain.Stage(req.Stage), identity.UserID(), update)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewTransitionResponse(result))
}

// AddActivity appends an activity to the assignment's open stage and applies
// the auto-advancement rules unless the request opts out.
// POST /api/v1/assignments/:id/activities
func (h *Handler) AddActivity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.AddActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	autoAdvance := true
	if req.AutoAdvance != nil {
		autoAdvance = *req.AutoAdvance
	}

	result, err := h.svc.AddActivity(c.Request.Context(), service.AddActivityParams{
		AssignmentID: id,
		ActivityType: domain.ActivityType(req.ActivityType),
		Description:  req.Description,
		ActorID:      identity.UserID(),
		Outcome:      req.Outcome,
		ScheduledAt:  req.ScheduledAt,
		CompletedAt:  req.CompletedAt,
		AutoAdvance:  autoAdvance,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewActivityResultResponse(result))
}

// ListActivities returns the assignment's activity log, newest first.
// GET /api/v1/assignments/:id/activities
func (h *Handler) ListActivities(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	activities, err := h.svc.ListActivities(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewActivityListResponse(activities))
}

// GetMetrics returns the caller's pipeline analytics over a lookback window.
// GET /api/v1/pipeline/metrics?days=30
func (h *Handler) GetMetrics(c *gin.Context) {
	var query transport.MetricsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	metrics, err := h.svc.CalculateMetrics(c.Request.Context(), identity.UserID(), query.Days)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, metrics)
}

// GetUpcomingActions lists the caller's stages with a next action due within
// the horizon, ascending by due date.
// GET /api/v1/pipeline/upcoming-actions?days=7
func (h *Handler) GetUpcomingActions(c *gin.Context) {
	var query transport.MetricsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	actions, err := h.svc.UpcomingActions(c.Request.Context(), identity.UserID(), query.Days)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewUpcomingActionListResponse(actions))
}
