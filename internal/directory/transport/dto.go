// Package transport defines the request and response shapes of the
// directory HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"realty_pipeline_backend/internal/directory/repository"
)

// CreateActorRequest registers a sales actor.
type CreateActorRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"omitempty,max=30"`
	Role  string `json:"role" validate:"omitempty,oneof=agent manager"`
}

// CreateLeadRequest registers a lead with the score the acquisition system
// computed for it.
type CreateLeadRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=200"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Phone         string `json:"phone" validate:"omitempty,max=30"`
	Score         int    `json:"score" validate:"min=0,max=100"`
	ScoreCategory string `json:"scoreCategory" validate:"omitempty,oneof=HOT WARM COLD"`
}

// ActorResponse represents an actor in API responses.
type ActorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// LeadResponse represents a lead in API responses.
type LeadResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Score         int       `json:"score"`
	ScoreCategory string    `json:"scoreCategory"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewActorResponse maps a repository actor to its wire shape.
func NewActorResponse(a repository.Actor) ActorResponse {
	return ActorResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

// NewLeadResponse maps a repository lead to its wire shape.
func NewLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:            l.ID,
		Name:          l.Name,
		Email:         l.Email,
		Phone:         l.Phone,
		Score:         l.Score,
		ScoreCategory: l.ScoreCategory,
		CreatedAt:     l.CreatedAt,
	}
}
