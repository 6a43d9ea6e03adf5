// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"realty_pipeline_backend/internal/pipeline/domain"
	"realty_pipeline_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// StageTransitioned is published after a stage transition commits: the
// previous stage (if any) closed and a new stage opened.
type StageTransitioned struct {
	BaseEvent
	AssignmentID uuid.UUID     `json:"assignmentId"`
	LeadID       uuid.UUID     `json:"leadId"`
	ActorID      uuid.UUID     `json:"actorId"`
	StageID      uuid.UUID     `json:"stageId"`
	FromStage    *domain.Stage `json:"fromStage,omitempty"`
	ToStage      domain.Stage  `json:"toStage"`
	NextAction   *string       `json:"nextAction,omitempty"`
	NextActionAt *time.Time    `json:"nextActionAt,omitempty"`
}

func (e StageTransitioned) EventName() string { return "pipeline.stage.transitioned" }

// StageUpdated is published after an in-place update of the open stage's
// mutable fields. No stage record was opened or closed.
type StageUpdated struct {
	BaseEvent
	AssignmentID uuid.UUID    `json:"assignmentId"`
	ActorID      uuid.UUID    `json:"actorId"`
	StageID      uuid.UUID    `json:"stageId"`
	Stage        domain.Stage `json:"stage"`
	NextAction   *string      `json:"nextAction,omitempty"`
	NextActionAt *time.Time   `json:"nextActionAt,omitempty"`
}

func (e StageUpdated) EventName() string { return "pipeline.stage.updated" }

// ActivityLogged is published after a sales activity is appended to the log.
type ActivityLogged struct {
	BaseEvent
	AssignmentID uuid.UUID           `json:"assignmentId"`
	StageID      uuid.UUID           `json:"stageId"`
	ActivityID   uuid.UUID           `json:"activityId"`
	ActivityType domain.ActivityType `json:"activityType"`
	ActorID      uuid.UUID           `json:"actorId"`
	Advanced     bool                `json:"advanced"`
}

func (e ActivityLogged) EventName() string { return "pipeline.activity.logged" }

// AssignmentClosed is published when an assignment reaches a terminal stage.
type AssignmentClosed struct {
	BaseEvent
	AssignmentID uuid.UUID               `json:"assignmentId"`
	LeadID       uuid.UUID               `json:"leadId"`
	ActorID      uuid.UUID               `json:"actorId"`
	Status       domain.AssignmentStatus `json:"status"`
	Won          bool                    `json:"won"`
}

func (e AssignmentClosed) EventName() string { return "pipeline.assignment.closed" }

// NextActionReminderDue is published by the reminder worker when a planned
// next action has come due and the actor was notified.
type NextActionReminderDue struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	StageID      uuid.UUID `json:"stageId"`
	LeadID       uuid.UUID `json:"leadId"`
	ActorID      uuid.UUID `json:"actorId"`
	NextAction   string    `json:"nextAction"`
	NextActionAt time.Time `json:"nextActionAt"`
}

func (e NextActionReminderDue) EventName() string { return "pipeline.next_action.reminder_due" }
