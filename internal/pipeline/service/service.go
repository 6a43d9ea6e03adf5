// Package service implements the sales pipeline engine: the stage state
// machine, the activity log with auto-advancement, and the read-only
// metrics aggregation. All writes go through the injected transactional
// store; this package holds no state of its own.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"realty_pipeline_backend/internal/events"
	"realty_pipeline_backend/internal/pipeline/domain"
	"realty_pipeline_backend/internal/pipeline/ports"
	"realty_pipeline_backend/internal/pipeline/repository"
	"realty_pipeline_backend/platform/apperr"
	"realty_pipeline_backend/platform/logger"
)

// Service is the pipeline engine.
type Service struct {
	store  repository.Store
	leads  ports.LeadReader
	actors ports.ActorReader
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

// New creates the pipeline service.
func New(store repository.Store, leads ports.LeadReader, actors ports.ActorReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		leads:  leads,
		actors: actors,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
}

// TransitionResult describes the outcome of a stage move.
type TransitionResult struct {
	// Stage is the open stage after the operation.
	Stage repository.PipelineStage
	// Previous is the stage that was closed, nil on initialization or
	// in-place update.
	Previous *repository.PipelineStage
	// Updated is true when the request was a same-stage in-place update.
	Updated bool
}

// CreateAssignment hands a lead to a sales actor. The pipeline itself starts
// with InitializePipeline or the first logged activity.
func (s *Service) CreateAssignment(ctx context.Context, params repository.CreateAssignmentParams) (repository.Assignment, error) {
	return s.store.CreateAssignment(ctx, params)
}

// InitializePipeline opens the NEW_LEAD stage for an assignment. Idempotent:
// if any stage is already open the existing one is returned unchanged.
func (s *Service) InitializePipeline(ctx context.Context, assignmentID, actorID uuid.UUID) (repository.PipelineStage, error) {
	var out repository.PipelineStage
	var created bool
	var assignment repository.Assignment

	err := s.store.InTransition(ctx, assignmentID, func(ctx context.Context, tx repository.TxStore) error {
		var err error
		assignment, err = tx.Assignment(ctx)
		if err != nil {
			return err
		}

		open, ok, err := tx.OpenStage(ctx)
		if err != nil {
			return err
		}
		if ok {
			out = open
			return nil
		}

		out, err = s.openFirstStage(ctx, tx, assignment, actorID)
		created = err == nil
		return err
	})
	if err != nil {
		return repository.PipelineStage{}, err
	}

	if created {
		s.publish(ctx, events.StageTransitioned{
			BaseEvent:    events.NewBaseEvent(),
			AssignmentID: assignment.ID,
			LeadID:       assignment.LeadID,
			ActorID:      actorID,
			StageID:      out.ID,
			ToStage:      out.Stage,
		})
	}
	return out, nil
}

// MoveToStage drives the state machine: same-stage requests merge the
// supplied fields into the open stage, different stages close the current
// record and open a new one after the transition graph accepts the move.
// With no open stage the pipeline is initialized at NEW_LEAD first and the
// requested move is then validated from there. A conflicting concurrent
// transition is retried once.
func (s *Service) MoveToStage(ctx context.Context, assignmentID uuid.UUID, target domain.Stage, actorID uuid.UUID, update domain.StageUpdate) (TransitionResult, error) {
	if !target.Known() {
		return TransitionResult{}, apperr.Validation(fmt.Sprintf("unknown stage %q", target))
	}

	var result TransitionResult
	err := s.withConflictRetry(func() error {
		var err error
		result, err = s.moveToStage(ctx, assignmentID, target, actorID, update)
		return err
	})
	return result, err
}

func (s *Service) moveToStage(ctx context.Context, assignmentID uuid.UUID, target domain.Stage, actorID uuid.UUID, update domain.StageUpdate) (TransitionResult, error) {
	var result TransitionResult
	var published []events.Event

	err := s.store.InTransition(ctx, assignmentID, func(ctx context.Context, tx repository.TxStore) error {
		published = published[:0]

		assignment, err := tx.Assignment(ctx)
		if err != nil {
			return err
		}

		open, ok, err := tx.OpenStage(ctx)
		if err != nil {
			return err
		}

		if !ok {
			// No history yet: force NEW_LEAD first so every pipeline starts
			// at the top of the funnel, then validate the requested move.
			open, err = s.openFirstStage(ctx, tx, assignment, actorID)
			if err != nil {
				return err
			}
			published = append(published, events.StageTransitioned{
				BaseEvent:    events.NewBaseEvent(),
				AssignmentID: assignment.ID,
				LeadID:       assignment.LeadID,
				ActorID:      actorID,
				StageID:      open.ID,
				ToStage:      open.Stage,
			})
			if target == domain.StageNewLead {
				result = TransitionResult{Stage: open}
				return nil
			}
		}

		if target == open.Stage {
			merged := domain.Merge(open.Fields(), update)
			updated, err := tx.UpdateStageFields(ctx, open.ID, merged)
			if err != nil {
				return err
			}
			note := fmt.Sprintf("Updated details for stage %s", open.Stage)
			if _, err := s.insertAuditNote(ctx, tx, updated.ID, note, actorID); err != nil {
				return err
			}
			result = TransitionResult{Stage: updated, Updated: true}
			published = append(published, events.StageUpdated{
				BaseEvent:    events.NewBaseEvent(),
				AssignmentID: assignment.ID,
				ActorID:      actorID,
				StageID:      updated.ID,
				Stage:        updated.Stage,
				NextAction:   updated.NextAction,
				NextActionAt: updated.NextActionAt,
			})
			return nil
		}

		next, err := s.advance(ctx, tx, assignment, open, target, actorID, update)
		if err != nil {
			return err
		}
		previous := open
		result = TransitionResult{Stage: next, Previous: &previous}
		published = append(published, transitionEvents(assignment, previous, next, actorID)...)
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	for _, e := range published {
		s.publish(ctx, e)
	}
	return result, nil
}

// advance closes the open stage and opens target, after checking the
// transition graph. Both records carry the same timestamp so stage history
// is gapless.
func (s *Service) advance(ctx context.Context, tx repository.TxStore, assignment repository.Assignment, open repository.PipelineStage, target domain.Stage, actorID uuid.UUID, update domain.StageUpdate) (repository.PipelineStage, error) {
	if !domain.CanTransition(open.Stage, target) {
		return repository.PipelineStage{}, apperr.Wrap(
			apperr.KindConflict,
			fmt.Sprintf("cannot move from %s to %s", open.Stage, target),
			domain.ErrInvalidTransition,
		)
	}

	now := s.now()
	if err := tx.CloseStage(ctx, open.ID, now, domain.DurationHours(open.EnteredAt, now)); err != nil {
		return repository.PipelineStage{}, err
	}

	next, err := tx.InsertStage(ctx, repository.NewStageParams{
		AssignmentID: assignment.ID,
		Stage:        target,
		EnteredAt:    now,
		Fields:       domain.OpeningFields(target, update),
		CreatedBy:    actorID,
	})
	if err != nil {
		return repository.PipelineStage{}, err
	}

	note := fmt.Sprintf("Stage changed from %s to %s", open.Stage, target)
	if _, err := s.insertAuditNote(ctx, tx, next.ID, note, actorID); err != nil {
		return repository.PipelineStage{}, err
	}

	if err := tx.SetAssignmentStatus(ctx, domain.StatusFor(target)); err != nil {
		return repository.PipelineStage{}, err
	}
	return next, nil
}

// openFirstStage creates the NEW_LEAD stage with its default probability and
// the audit note, and derives the assignment status.
func (s *Service) openFirstStage(ctx context.Context, tx repository.TxStore, assignment repository.Assignment, actorID uuid.UUID) (repository.PipelineStage, error) {
	stage, err := tx.InsertStage(ctx, repository.NewStageParams{
		AssignmentID: assignment.ID,
		Stage:        domain.StageNewLead,
		EnteredAt:    s.now(),
		Fields:       domain.OpeningFields(domain.StageNewLead, domain.StageUpdate{}),
		CreatedBy:    actorID,
	})
	if err != nil {
		return repository.PipelineStage{}, err
	}

	if _, err := s.insertAuditNote(ctx, tx, stage.ID, "Lead assigned to pipeline", actorID); err != nil {
		return repository.PipelineStage{}, err
	}

	if err := tx.SetAssignmentStatus(ctx, domain.StatusFor(domain.StageNewLead)); err != nil {
		return repository.PipelineStage{}, err
	}
	return stage, nil
}

func (s *Service) insertAuditNote(ctx context.Context, tx repository.TxStore, stageID uuid.UUID, description string, actorID uuid.UUID) (repository.PipelineActivity, error) {
	now := s.now()
	return tx.InsertActivity(ctx, repository.NewActivityParams{
		StageID:      stageID,
		ActivityType: domain.ActivityNoteAdded,
		Description:  description,
		CompletedAt:  &now,
		CreatedBy:    actorID,
	})
}

func transitionEvents(assignment repository.Assignment, previous, next repository.PipelineStage, actorID uuid.UUID) []events.Event {
	from := previous.Stage
	out := []events.Event{events.StageTransitioned{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: assignment.ID,
		LeadID:       assignment.LeadID,
		ActorID:      actorID,
		StageID:      next.ID,
		FromStage:    &from,
		ToStage:      next.Stage,
		NextAction:   next.NextAction,
		NextActionAt: next.NextActionAt,
	}}

	if next.Stage.Terminal() {
		out = append(out, events.AssignmentClosed{
			BaseEvent:    events.NewBaseEvent(),
			AssignmentID: assignment.ID,
			LeadID:       assignment.LeadID,
			ActorID:      actorID,
			Status:       domain.StatusFor(next.Stage),
			Won:          next.Stage == domain.StageWon,
		})
	}
	return out
}

// withConflictRetry retries op once when it failed on a concurrency
// conflict. Invalid transitions also surface as conflicts but are
// deterministic, so they are never retried.
func (s *Service) withConflictRetry(op func() error) error {
	err := op()
	if err == nil || !apperr.Is(err, apperr.KindConflict) || errors.Is(err, domain.ErrInvalidTransition) {
		return err
	}
	if s.log != nil {
		s.log.Warn("pipeline transition conflict, retrying once", "error", err)
	}
	return op()
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}
