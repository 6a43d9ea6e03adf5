package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"realty_pipeline_backend/internal/pipeline/domain"
)

// Assignment binds one lead to one responsible sales actor. Rows are never
// deleted; only the status moves.
type Assignment struct {
	ID              uuid.UUID               `db:"id"`
	LeadID          uuid.UUID               `db:"lead_id"`
	ActorID         uuid.UUID               `db:"actor_id"`
	Status          domain.AssignmentStatus `db:"status"`
	AssignedAt      time.Time               `db:"assigned_at"`
	ExpectedCloseAt *time.Time              `db:"expected_close_at"`
}

// PipelineStage is one interval during which an assignment sat in a stage.
// ExitedAt is null while the stage is open; DurationHours is set at exit.
type PipelineStage struct {
	ID                  uuid.UUID    `db:"id"`
	AssignmentID        uuid.UUID    `db:"assignment_id"`
	Stage               domain.Stage `db:"stage"`
	EnteredAt           time.Time    `db:"entered_at"`
	ExitedAt            *time.Time   `db:"exited_at"`
	DurationHours       *int         `db:"duration_hours"`
	Probability         int          `db:"probability"`
	EstimatedValueCents *int64       `db:"estimated_value_cents"`
	NextAction          *string      `db:"next_action"`
	NextActionAt        *time.Time   `db:"next_action_at"`
	Notes               *string      `db:"notes"`
	CreatedBy           uuid.UUID    `db:"created_by"`
}

// Open reports whether the stage interval has not been exited yet.
func (s PipelineStage) Open() bool {
	return s.ExitedAt == nil
}

// Fields returns the mutable fields of the stage for merge operations.
func (s PipelineStage) Fields() domain.StageFields {
	return domain.StageFields{
		Probability:         s.Probability,
		EstimatedValueCents: s.EstimatedValueCents,
		NextAction:          s.NextAction,
		NextActionAt:        s.NextActionAt,
		Notes:               s.Notes,
	}
}

// PipelineActivity is a single logged sales action, attached to the stage
// that was open when it was recorded. Append-only.
type PipelineActivity struct {
	ID           uuid.UUID           `db:"id"`
	StageID      uuid.UUID           `db:"stage_id"`
	ActivityType domain.ActivityType `db:"activity_type"`
	Description  string              `db:"description"`
	Outcome      *string             `db:"outcome"`
	ScheduledAt  *time.Time          `db:"scheduled_at"`
	CompletedAt  *time.Time          `db:"completed_at"`
	CreatedBy    uuid.UUID           `db:"created_by"`
	CreatedAt    time.Time           `db:"created_at"`
}

// CreateAssignmentParams contains parameters for creating an assignment.
type CreateAssignmentParams struct {
	LeadID          uuid.UUID
	ActorID         uuid.UUID
	ExpectedCloseAt *time.Time
}

// NewStageParams contains parameters for opening a stage record.
type NewStageParams struct {
	AssignmentID uuid.UUID
	Stage        domain.Stage
	EnteredAt    time.Time
	Fields       domain.StageFields
	CreatedBy    uuid.UUID
}

// NewActivityParams contains parameters for appending an activity.
type NewActivityParams struct {
	StageID      uuid.UUID
	ActivityType domain.ActivityType
	Description  string
	Outcome      *string
	ScheduledAt  *time.Time
	CompletedAt  *time.Time
	CreatedBy    uuid.UUID
}

// TxStore is the view of the store inside a pipeline transition transaction.
// All operations are scoped to the assignment the transaction was opened for,
// whose row is locked for the duration of the transaction.
type TxStore interface {
	// Assignment returns the locked assignment row.
	Assignment(ctx context.Context) (Assignment, error)
	// OpenStage returns the currently open stage, if any.
	OpenStage(ctx context.Context) (PipelineStage, bool, error)
	// InsertStage opens a new stage record.
	InsertStage(ctx context.Context, params NewStageParams) (PipelineStage, error)
	// CloseStage sets the exit timestamp and duration of an open stage.
	// Returns a conflict error if the stage was already closed.
	CloseStage(ctx context.Context, stageID uuid.UUID, exitedAt time.Time, durationHours int) error
	// UpdateStageFields overwrites the mutable fields of an open stage.
	UpdateStageFields(ctx context.Context, stageID uuid.UUID, fields domain.StageFields) (PipelineStage, error)
	// InsertActivity appends an activity under a stage.
	InsertActivity(ctx context.Context, params NewActivityParams) (PipelineActivity, error)
	// SetAssignmentStatus updates the aggregate status of the assignment.
	SetAssignmentStatus(ctx context.Context, status domain.AssignmentStatus) error
}

// UpcomingAction is a stage with a pending next action for an actor.
type UpcomingAction struct {
	Stage        PipelineStage
	AssignmentID uuid.UUID
	LeadID       uuid.UUID
}

// Store is the transactional pipeline store. The state machine and the
// metrics engine depend on this interface, never on a concrete database,
// so they can be exercised against an in-memory fake.
type Store interface {
	// InTransition runs fn inside a transaction holding a row lock on the
	// assignment, serializing concurrent transitions per assignment.
	InTransition(ctx context.Context, assignmentID uuid.UUID, fn func(ctx context.Context, tx TxStore) error) error

	CreateAssignment(ctx context.Context, params CreateAssignmentParams) (Assignment, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (Assignment, error)
	ListStages(ctx context.Context, assignmentID uuid.UUID) ([]PipelineStage, error)
	ListActivities(ctx context.Context, assignmentID uuid.UUID) ([]PipelineActivity, error)

	// StagesForActorSince returns all stage rows of the actor's assignments
	// entered on or after since, for metrics aggregation.
	StagesForActorSince(ctx context.Context, actorID uuid.UUID, since time.Time) ([]PipelineStage, error)
	// FirstStageEntries returns the NEW_LEAD entry time per assignment, for
	// cycle-time computation. Assignments without a NEW_LEAD stage are absent
	// from the result.
	FirstStageEntries(ctx context.Context, assignmentIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)
	// UpcomingActions returns open stages of the actor's assignments whose
	// next action falls due before the deadline, ascending by due date.
	UpcomingActions(ctx context.Context, actorID uuid.UUID, before time.Time) ([]UpcomingAction, error)
}
