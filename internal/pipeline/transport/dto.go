// Package transport defines the request and response shapes of the pipeline
// HTTP API. Mapping from the repository models lives here so handlers stay
// thin and the wire format is decoupled from storage.
package transport

import (
	"time"

	"github.com/google/uuid"

	"realty_pipeline_backend/internal/pipeline/repository"
	"realty_pipeline_backend/internal/pipeline/service"
)

// CreateAssignmentRequest hands a lead to a sales actor. ActorID defaults to
// the caller when omitted.
type CreateAssignmentRequest struct {
	LeadID          uuid.UUID  `json:"leadId" validate:"required"`
	ActorID         *uuid.UUID `json:"actorId,omitempty"`
	ExpectedCloseAt *time.Time `json:"expectedCloseAt,omitempty"`
}

// MoveStageRequest asks for a transition to Stage. The field pointers follow
// the merge contract of stage updates: absent means keep.
type MoveStageRequest struct {
	Stage               string     `json:"stage" validate:"required,min=1,max=50"`
	Probability         *int       `json:"probability,omitempty" validate:"omitempty,min=0,max=100"`
	EstimatedValueCents *int64     `json:"estimatedValueCents,omitempty" validate:"omitempty,min=0"`
	NextAction          *string    `json:"nextAction,omitempty" validate:"omitempty,max=500"`
	NextActionAt        *time.Time `json:"nextActionAt,omitempty"`
	Notes               *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AddActivityRequest logs a sales action. AutoAdvance defaults to true when
// omitted; an explicit false records the activity without touching the stage.
type AddActivityRequest struct {
	ActivityType string     `json:"activityType" validate:"required,min=1,max=50"`
	Description  string     `json:"description" validate:"required,min=1,max=2000"`
	Outcome      *string    `json:"outcome,omitempty" validate:"omitempty,max=500"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	AutoAdvance  *bool      `json:"autoAdvance,omitempty"`
}

// MetricsQuery selects the lookback window for the metrics endpoints.
type MetricsQuery struct {
	Days int `form:"days" validate:"omitempty,min=1,max=365"`
}

// AssignmentResponse represents an assignment in API responses.
type AssignmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	LeadID          uuid.UUID  `json:"leadId"`
	ActorID         uuid.UUID  `json:"actorId"`
	Status          string     `json:"status"`
	AssignedAt      time.Time  `json:"assignedAt"`
	ExpectedCloseAt *time.Time `json:"expectedCloseAt,omitempty"`
}

// StageResponse represents one stage interval in API responses.
type StageResponse struct {
	ID                  uuid.UUID  `json:"id"`
	AssignmentID        uuid.UUID  `json:"assignmentId"`
	Stage               string     `json:"stage"`
	EnteredAt           time.Time  `json:"enteredAt"`
	ExitedAt            *time.Time `json:"exitedAt,omitempty"`
	DurationHours       *int       `json:"durationHours,omitempty"`
	Probability         int        `json:"probability"`
	EstimatedValueCents *int64     `json:"estimatedValueCents,omitempty"`
	NextAction          *string    `json:"nextAction,omitempty"`
	NextActionAt        *time.Time `json:"nextActionAt,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
}

// ActivityResponse represents a logged activity in API responses.
type ActivityResponse struct {
	ID           uuid.UUID  `json:"id"`
	StageID      uuid.UUID  `json:"stageId"`
	ActivityType string     `json:"activityType"`
	Description  string     `json:"description"`
	Outcome      *string    `json:"outcome,omitempty"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedBy    uuid.UUID  `json:"createdBy"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// TransitionResponse reports the outcome of a stage move or initialization.
type TransitionResponse struct {
	Stage    StageResponse  `json:"stage"`
	Previous *StageResponse `json:"previous,omitempty"`
	Updated  bool           `json:"updated"`
}

// ActivityResultResponse reports a logged activity plus what the
// auto-advancement rule set did on top of it.
type ActivityResultResponse struct {
	Activity      ActivityResponse `json:"activity"`
	Stage         StageResponse    `json:"stage"`
	Previous      *StageResponse   `json:"previous,omitempty"`
	Advanced      bool             `json:"advanced"`
	SkippedTarget *string          `json:"skippedTarget,omitempty"`
}

// ActivityListResponse wraps the activity log of one assignment.
type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
	Total int                `json:"total"`
}

// AssignmentDetailResponse is an assignment with its full history and the
// directory display fields.
type AssignmentDetailResponse struct {
	Assignment AssignmentResponse `json:"assignment"`
	Lead       LeadSummary        `json:"lead"`
	Actor      ActorSummary       `json:"actor"`
	Stages     []StageResponse    `json:"stages"`
	Activities []ActivityResponse `json:"activities"`
}

// LeadSummary carries lead display fields on decorated responses.
type LeadSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Score         int       `json:"score"`
	ScoreCategory string    `json:"scoreCategory"`
}

// ActorSummary carries actor display fields on decorated responses.
type ActorSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// UpcomingActionResponse is an open stage with a next action due soon.
type UpcomingActionResponse struct {
	AssignmentID uuid.UUID     `json:"assignmentId"`
	LeadName     string        `json:"leadName"`
	LeadEmail    string        `json:"leadEmail"`
	Stage        StageResponse `json:"stage"`
}

// UpcomingActionListResponse wraps the upcoming action list.
type UpcomingActionListResponse struct {
	Items []UpcomingActionResponse `json:"items"`
	Total int                      `json:"total"`
}

// NewAssignmentResponse maps a repository assignment to its wire shape.
func NewAssignmentResponse(a repository.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:              a.ID,
		LeadID:          a.LeadID,
		ActorID:         a.ActorID,
		Status:          string(a.Status),
		AssignedAt:      a.AssignedAt,
		ExpectedCloseAt: a.ExpectedCloseAt,
	}
}

// NewStageResponse maps a repository stage to its wire shape.
func NewStageResponse(s repository.PipelineStage) StageResponse {
	return StageResponse{
		ID:                  s.ID,
		AssignmentID:        s.AssignmentID,
		Stage:               string(s.Stage),
		EnteredAt:           s.EnteredAt,
		ExitedAt:            s.ExitedAt,
		DurationHours:       s.DurationHours,
		Probability:         s.Probability,
		EstimatedValueCents: s.EstimatedValueCents,
		NextAction:          s.NextAction,
		NextActionAt:        s.NextActionAt,
		Notes:               s.Notes,
	}
}

func newOptionalStageResponse(s *repository.PipelineStage) *StageResponse {
	if s == nil {
		return nil
	}
	resp := NewStageResponse(*s)
	return &resp
}

// NewActivityResponse maps a repository activity to its wire shape.
func NewActivityResponse(a repository.PipelineActivity) ActivityResponse {
	return ActivityResponse{
		ID:           a.ID,
		StageID:      a.StageID,
		ActivityType: string(a.ActivityType),
		Description:  a.Description,
		Outcome:      a.Outcome,
		ScheduledAt:  a.ScheduledAt,
		CompletedAt:  a.CompletedAt,
		CreatedBy:    a.CreatedBy,
		CreatedAt:    a.CreatedAt,
	}
}

// NewTransitionResponse maps a service transition result to its wire shape.
func NewTransitionResponse(r service.TransitionResult) TransitionResponse {
	return TransitionResponse{
		Stage:    NewStageResponse(r.Stage),
		Previous: newOptionalStageResponse(r.Previous),
		Updated:  r.Updated,
	}
}

// NewActivityResultResponse maps a service activity result to its wire shape.
func NewActivityResultResponse(r service.ActivityResult) ActivityResultResponse {
	resp := ActivityResultResponse{
		Activity: NewActivityResponse(r.Activity),
		Stage:    NewStageResponse(r.Stage),
		Previous: newOptionalStageResponse(r.Previous),
		Advanced: r.Advanced,
	}
	if r.SkippedTarget != nil {
		skipped := string(*r.SkippedTarget)
		resp.SkippedTarget = &skipped
	}
	return resp
}

// NewActivityListResponse maps an activity log to its wire shape.
func NewActivityListResponse(activities []repository.PipelineActivity) ActivityListResponse {
	items := make([]ActivityResponse, 0, len(activities))
	for _, a := range activities {
		items = append(items, NewActivityResponse(a))
	}
	return ActivityListResponse{Items: items, Total: len(items)}
}

// NewAssignmentDetailResponse maps an assignment detail to its wire shape.
func NewAssignmentDetailResponse(d service.AssignmentDetail) AssignmentDetailResponse {
	stages := make([]StageResponse, 0, len(d.Stages))
	for _, s := range d.Stages {
		stages = append(stages, NewStageResponse(s))
	}
	resp := AssignmentDetailResponse{
		Assignment: NewAssignmentResponse(d.Assignment),
		Lead: LeadSummary{
			ID:            d.Lead.ID,
			Name:          d.Lead.Name,
			Email:         d.Lead.Email,
			Phone:         d.Lead.Phone,
			Score:         d.Lead.Score,
			ScoreCategory: d.Lead.ScoreCategory,
		},
		Actor: ActorSummary{
			ID:    d.Actor.ID,
			Name:  d.Actor.Name,
			Email: d.Actor.Email,
		},
		Stages: stages,
	}
	resp.Activities = NewActivityListResponse(d.Activities).Items
	return resp
}

// NewUpcomingActionListResponse maps upcoming actions to their wire shape.
func NewUpcomingActionListResponse(actions []service.UpcomingAction) UpcomingActionListResponse {
	items := make([]UpcomingActionResponse, 0, len(actions))
	for _, a := range actions {
		items = append(items, UpcomingActionResponse{
			AssignmentID: a.AssignmentID,
			LeadName:     a.LeadName,
			LeadEmail:    a.LeadEmail,
			Stage:        NewStageResponse(a.Stage),
		})
	}
	return UpcomingActionListResponse{Items: items, Total: len(items)}
}
