package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"realty_pipeline_backend/internal/events"
	"realty_pipeline_backend/internal/pipeline/domain"
	"realty_pipeline_backend/internal/pipeline/repository"
	"realty_pipeline_backend/platform/apperr"
)

// AddActivityParams contains parameters for logging a sales activity.
type AddActivityParams struct {
	AssignmentID uuid.UUID
	ActivityType domain.ActivityType
	Description  string
	ActorID      uuid.UUID
	Outcome      *string
	ScheduledAt  *time.Time
	CompletedAt  *time.Time
	// AutoAdvance applies the auto-advancement rule set after logging.
	AutoAdvance bool
}

// ActivityResult describes the outcome of logging an activity. The activity
// is always recorded; Advanced and SkippedTarget report what the
// auto-advancement rule set did on top of that.
type ActivityResult struct {
	Activity repository.PipelineActivity
	// Stage is the open stage after the call (the new stage when advanced).
	Stage repository.PipelineStage
	// Previous is the stage closed by an auto-advancement, nil otherwise.
	Previous *repository.PipelineStage
	// Advanced is true when the candidate stage was applied.
	Advanced bool
	// SkippedTarget is set when the activity proposed a stage the transition
	// graph rejected from the current state. The activity is still recorded.
	SkippedTarget *domain.Stage
}

// AddActivity appends a PipelineActivity under the assignment's open stage,
// initializing the pipeline first when it has no stage history. The activity
// insert and any auto-advancement run in the same transaction as the open
// stage lookup, so an activity can never attach to a stage that a concurrent
// transition already closed.
func (s *Service) AddActivity(ctx context.Context, params AddActivityParams) (ActivityResult, error) {
	if !params.ActivityType.Known() {
		return ActivityResult{}, apperr.Validation(fmt.Sprintf("unknown activity type %q", params.ActivityType))
	}

	var result ActivityResult
	err := s.withConflictRetry(func() error {
		var err error
		result, err = s.addActivity(ctx, params)
		return err
	})
	return result, err
}

func (s *Service) addActivity(ctx context.Context, params AddActivityParams) (ActivityResult, error) {
	var result ActivityResult
	var published []events.Event

	err := s.store.InTransition(ctx, params.AssignmentID, func(ctx context.Context, tx repository.TxStore) error {
		published = published[:0]
		result = ActivityResult{}

		assignment, err := tx.Assignment(ctx)
		if err != nil {
			return err
		}

		open, ok, err := tx.OpenStage(ctx)
		if err != nil {
			return err
		}
		if !ok {
			open, err = s.openFirstStage(ctx, tx, assignment, params.ActorID)
			if err != nil {
				return err
			}
			published = append(published, events.StageTransitioned{
				BaseEvent:    events.NewBaseEvent(),
				AssignmentID: assignment.ID,
				LeadID:       assignment.LeadID,
				ActorID:      params.ActorID,
				StageID:      open.ID,
				ToStage:      open.Stage,
			})
		}

		// The activity always belongs to the stage that was open when the
		// action happened, even if it advances the pipeline right after.
		activity, err := tx.InsertActivity(ctx, repository.NewActivityParams{
			StageID:      open.ID,
			ActivityType: params.ActivityType,
			Description:  params.Description,
			Outcome:      params.Outcome,
			ScheduledAt:  params.ScheduledAt,
			CompletedAt:  params.CompletedAt,
			CreatedBy:    params.ActorID,
		})
		if err != nil {
			return err
		}
		result.Activity = activity
		result.Stage = open

		if params.AutoAdvance {
			if err := s.applyAutoAdvance(ctx, tx, assignment, open, params.ActorID, &result, &published); err != nil {
				return err
			}
		}

		published = append(published, events.ActivityLogged{
			BaseEvent:    events.NewBaseEvent(),
			AssignmentID: assignment.ID,
			StageID:      activity.StageID,
			ActivityID:   activity.ID,
			ActivityType: activity.ActivityType,
			ActorID:      params.ActorID,
			Advanced:     result.Advanced,
		})
		return nil
	})
	if err != nil {
		return ActivityResult{}, err
	}

	for _, e := range published {
		s.publish(ctx, e)
	}
	return result, nil
}

// applyAutoAdvance applies the candidate stage proposed by the activity type,
// if any, and only when the transition graph accepts it. Rejection is a
// normal outcome, not an error.
func (s *Service) applyAutoAdvance(ctx context.Context, tx repository.TxStore, assignment repository.Assignment, open repository.PipelineStage, actorID uuid.UUID, result *ActivityResult, published *[]events.Event) error {
	target, ok := domain.AutoAdvanceTarget(result.Activity.ActivityType)
	if !ok || target == open.Stage {
		return nil
	}

	if !domain.CanTransition(open.Stage, target) {
		skipped := target
		result.SkippedTarget = &skipped
		if s.log != nil {
			s.log.Info("auto-advancement skipped",
				"assignment_id", assignment.ID,
				"activity_type", result.Activity.ActivityType,
				"current_stage", open.Stage,
				"candidate_stage", target,
			)
		}
		return nil
	}

	next, err := s.advance(ctx, tx, assignment, open, target, actorID, domain.StageUpdate{})
	if err != nil {
		return err
	}

	previous := open
	result.Previous = &previous
	result.Stage = next
	result.Advanced = true
	*published = append(*published, transitionEvents(assignment, previous, next, actorID)...)
	return nil
}
