package reminders

import (
	"context"
	"time"

	"realty_pipeline_backend/internal/events"
	"realty_pipeline_backend/platform/logger"
)

// Subscriber schedules a reminder task whenever a stage transition or
// in-place update sets a next-action date.
type Subscriber struct {
	scheduler Scheduler
	leadTime  time.Duration
	log       *logger.Logger
}

// NewSubscriber creates the event subscriber. leadTime is how far before
// the next-action date the reminder fires.
func NewSubscriber(scheduler Scheduler, leadTime time.Duration, log *logger.Logger) *Subscriber {
	return &Subscriber{scheduler: scheduler, leadTime: leadTime, log: log}
}

// RegisterHandlers subscribes to the pipeline events that carry a
// next-action date.
func (s *Subscriber) RegisterHandlers(bus events.Bus) {
	bus.Subscribe("pipeline.stage.transitioned", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		event, ok := e.(events.StageTransitioned)
		if !ok || event.NextActionAt == nil {
			return nil
		}
		return s.schedule(ctx, event.AssignmentID.String(), event.StageID.String(), *event.NextActionAt)
	}))

	bus.Subscribe("pipeline.stage.updated", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		event, ok := e.(events.StageUpdated)
		if !ok || event.NextActionAt == nil {
			return nil
		}
		return s.schedule(ctx, event.AssignmentID.String(), event.StageID.String(), *event.NextActionAt)
	}))
}

func (s *Subscriber) schedule(ctx context.Context, assignmentID, stageID string, dueAt time.Time) error {
	if s.scheduler == nil {
		return nil
	}

	runAt := dueAt.Add(-s.leadTime)
	if runAt.Before(time.Now()) {
		runAt = time.Now()
	}

	err := s.scheduler.ScheduleNextActionReminder(ctx, NextActionReminderPayload{
		AssignmentID: assignmentID,
		StageID:      stageID,
	}, runAt)
	if err != nil {
		s.log.Error("failed to schedule next-action reminder",
			"assignment_id", assignmentID, "stage_id", stageID, "error", err)
		return err
	}

	s.log.Debug("next-action reminder scheduled",
		"assignment_id", assignmentID, "stage_id", stageID, "run_at", runAt)
	return nil
}
