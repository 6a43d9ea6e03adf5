package reminders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"realty_pipeline_backend/internal/events"
	platformevents "realty_pipeline_backend/platform/events"
	"realty_pipeline_backend/platform/logger"
)

type fakeScheduler struct {
	mu       sync.Mutex
	payloads []NextActionReminderPayload
	runAts   []time.Time
}

func (f *fakeScheduler) ScheduleNextActionReminder(_ context.Context, payload NextActionReminderPayload, runAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	f.runAts = append(f.runAts, runAt)
	return nil
}

func TestScheduleNextActionReminderEnqueues(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}

	client := &Client{client: asynq.NewClient(opt), queue: "pipeline"}
	defer client.Close()

	payload := NextActionReminderPayload{
		AssignmentID: uuid.NewString(),
		StageID:      uuid.NewString(),
	}
	runAt := time.Now().Add(2 * time.Hour)
	if err := client.ScheduleNextActionReminder(context.Background(), payload, runAt); err != nil {
		t.Fatalf("ScheduleNextActionReminder() error = %v", err)
	}

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	tasks, err := inspector.ListScheduledTasks("pipeline")
	if err != nil {
		t.Fatalf("ListScheduledTasks() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d scheduled tasks, want 1", len(tasks))
	}
	if tasks[0].Type != TaskNextActionReminder {
		t.Errorf("task type = %q, want %q", tasks[0].Type, TaskNextActionReminder)
	}

	parsed, err := ParseNextActionReminderPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("ParseNextActionReminderPayload() error = %v", err)
	}
	if parsed != payload {
		t.Errorf("payload = %+v, want %+v", parsed, payload)
	}
}

func TestSubscriberSchedulesOnTransitionWithNextAction(t *testing.T) {
	scheduler := &fakeScheduler{}
	log := logger.New("development")
	sub := NewSubscriber(scheduler, time.Hour, log)

	bus := platformevents.NewInMemoryBus(log)
	sub.RegisterHandlers(bus)

	dueAt := time.Now().Add(48 * time.Hour)
	action := "Call about the viewing"
	event := events.StageTransitioned{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: uuid.New(),
		LeadID:       uuid.New(),
		ActorID:      uuid.New(),
		StageID:      uuid.New(),
		ToStage:      "PROPERTY_VIEWING",
		NextAction:   &action,
		NextActionAt: &dueAt,
	}
	if err := bus.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}

	if len(scheduler.payloads) != 1 {
		t.Fatalf("got %d scheduled reminders, want 1", len(scheduler.payloads))
	}
	if scheduler.payloads[0].AssignmentID != event.AssignmentID.String() {
		t.Errorf("assignment = %s, want %s", scheduler.payloads[0].AssignmentID, event.AssignmentID)
	}
	// The reminder fires one lead-time before the due date.
	want := dueAt.Add(-time.Hour)
	if diff := scheduler.runAts[0].Sub(want); diff < -time.Second || diff > time.Second {
		t.Errorf("runAt = %v, want about %v", scheduler.runAts[0], want)
	}
}

func TestSubscriberIgnoresTransitionsWithoutNextAction(t *testing.T) {
	scheduler := &fakeScheduler{}
	log := logger.New("development")
	sub := NewSubscriber(scheduler, time.Hour, log)

	bus := platformevents.NewInMemoryBus(log)
	sub.RegisterHandlers(bus)

	if err := bus.PublishSync(context.Background(), events.StageTransitioned{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: uuid.New(),
		StageID:      uuid.New(),
		ToStage:      "CONTACTED",
	}); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}

	if len(scheduler.payloads) != 0 {
		t.Fatalf("got %d scheduled reminders, want 0", len(scheduler.payloads))
	}
}

func TestSubscriberSchedulesOnStageUpdate(t *testing.T) {
	scheduler := &fakeScheduler{}
	log := logger.New("development")
	sub := NewSubscriber(scheduler, 30*time.Minute, log)

	bus := platformevents.NewInMemoryBus(log)
	sub.RegisterHandlers(bus)

	dueAt := time.Now().Add(24 * time.Hour)
	action := "Send updated brochure"
	if err := bus.PublishSync(context.Background(), events.StageUpdated{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: uuid.New(),
		ActorID:      uuid.New(),
		StageID:      uuid.New(),
		Stage:        "PROPOSAL_SENT",
		NextAction:   &action,
		NextActionAt: &dueAt,
	}); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}

	if len(scheduler.payloads) != 1 {
		t.Fatalf("got %d scheduled reminders, want 1", len(scheduler.payloads))
	}
}
