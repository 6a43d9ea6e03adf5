// Package handler exposes the actor and lead directory over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"realty_pipeline_backend/internal/directory/repository"
	"realty_pipeline_backend/internal/directory/transport"
	"realty_pipeline_backend/platform/httpkit"
	"realty_pipeline_backend/platform/validator"
)

const (
	msgInvalidRequest   = "Invalid request body"
	msgValidationFailed = "Validation failed"
	msgInvalidID        = "Invalid ID format"
)

// Handler handles HTTP requests for the directory module.
type Handler struct {
	repo *repository.Repo
	val  *validator.Validator
}

// New creates a directory handler.
func New(repo *repository.Repo, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

// CreateActor registers a sales actor.
// POST /api/v1/actors
func (h *Handler) CreateActor(c *gin.Context) {
	var req transport.CreateActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.Role == "" {
		req.Role = "agent"
	}

	actor, err := h.repo.CreateActor(c.Request.Context(), repository.CreateActorParams{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Role:  req.Role,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewActorResponse(actor))
}

// GetActor returns an actor by ID.
// GET /api/v1/actors/:id
func (h *Handler) GetActor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	actor, err := h.repo.GetActor(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewActorResponse(actor))
}

// CreateLead registers a lead.
// POST /api/v1/leads
func (h *Handler) CreateLead(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.ScoreCategory == "" {
		req.ScoreCategory = "COLD"
	}

	lead, err := h.repo.CreateLead(c.Request.Context(), repository.CreateLeadParams{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Score:         req.Score,
		ScoreCategory: req.ScoreCategory,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewLeadResponse(lead))
}

// GetLead returns a lead by ID.
// GET /api/v1/leads/:id
func (h *Handler) GetLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	lead, err := h.repo.GetLead(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewLeadResponse(lead))
}
