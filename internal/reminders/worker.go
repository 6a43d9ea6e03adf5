package reminders

import (
	"context"
	"fmt"

	"realty_pipeline_backend/internal/directory/repository"
	"realty_pipeline_backend/internal/email"
	"realty_pipeline_backend/internal/events"
	pipelinerepo "realty_pipeline_backend/internal/pipeline/repository"
	"realty_pipeline_backend/platform/config"
	"realty_pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Worker consumes reminder tasks and notifies the responsible actor.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	store     pipelinerepo.Store
	directory *repository.Repo
	sender    email.Sender
	bus       events.Bus
	log       *logger.Logger
}

func NewWorker(cfg config.WorkerConfig, pool *pgxpool.Pool, sender email.Sender, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetWorkerQueue()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetWorkerConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		store:     pipelinerepo.New(pool),
		directory: repository.New(pool),
		sender:    sender,
		bus:       bus,
		log:       log,
	}

	mux.HandleFunc(TaskNextActionReminder, w.handleNextActionReminder)

	return w, nil
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("reminder worker stopped", "error", err)
	}
}

// handleNextActionReminder delivers a reminder if the stage is still open
// and still carries a next action. Stale reminders (the stage advanced or
// the action was cleared) are dropped without error.
func (w *Worker) handleNextActionReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNextActionReminderPayload(task)
	if err != nil {
		return err
	}

	assignmentID, err := uuid.Parse(payload.AssignmentID)
	if err != nil {
		return err
	}
	stageID, err := uuid.Parse(payload.StageID)
	if err != nil {
		return err
	}

	assignment, err := w.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}

	stages, err := w.store.ListStages(ctx, assignmentID)
	if err != nil {
		return err
	}

	var stage *pipelinerepo.PipelineStage
	for i := range stages {
		if stages[i].ID == stageID {
			stage = &stages[i]
			break
		}
	}
	if stage == nil || !stage.Open() || stage.NextAction == nil || stage.NextActionAt == nil {
		return nil
	}

	actor, err := w.directory.GetActor(ctx, assignment.ActorID)
	if err != nil {
		return err
	}
	lead, err := w.directory.GetLead(ctx, assignment.LeadID)
	if err != nil {
		return err
	}

	if err := w.sender.SendNextActionReminderEmail(ctx, actor.Email, actor.Name, lead.Name,
		string(stage.Stage), *stage.NextAction, *stage.NextActionAt); err != nil {
		return err
	}

	if w.bus != nil {
		w.bus.Publish(ctx, events.NextActionReminderDue{
			BaseEvent:    events.NewBaseEvent(),
			AssignmentID: assignment.ID,
			StageID:      stage.ID,
			LeadID:       assignment.LeadID,
			ActorID:      assignment.ActorID,
			NextAction:   *stage.NextAction,
			NextActionAt: *stage.NextActionAt,
		})
	}

	w.log.Info("next-action reminder delivered",
		"assignment_id", assignment.ID, "stage_id", stage.ID, "actor_email", actor.Email)
	return nil
}
