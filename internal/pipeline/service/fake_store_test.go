package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"realty_pipeline_backend/internal/pipeline/domain"
	"realty_pipeline_backend/internal/pipeline/repository"
	"realty_pipeline_backend/platform/apperr"
)

// fakeStore is an in-memory repository.Store for unit tests. InTransition
// serializes on a mutex the way the real store serializes on the assignment
// row lock. It does not roll back partial writes; tests that exercise
// failures fail before the first write.
type fakeStore struct {
	mu          sync.Mutex
	assignments map[uuid.UUID]*repository.Assignment
	stages      []*repository.PipelineStage
	activities  []*repository.PipelineActivity

	// failCloseOnce makes the next CloseStage fail with a conflict, to
	// exercise the single-retry behavior.
	failCloseOnce bool
	closeAttempts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{assignments: make(map[uuid.UUID]*repository.Assignment)}
}

var _ repository.Store = (*fakeStore)(nil)

func (f *fakeStore) addAssignment(leadID, actorID uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.assignments[id] = &repository.Assignment{
		ID:         id,
		LeadID:     leadID,
		ActorID:    actorID,
		Status:     domain.AssignmentActive,
		AssignedAt: time.Now(),
	}
	return id
}

func (f *fakeStore) addStage(s repository.PipelineStage) *repository.PipelineStage {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	stored := s
	f.stages = append(f.stages, &stored)
	return &stored
}

func (f *fakeStore) openStageFor(assignmentID uuid.UUID) *repository.PipelineStage {
	for _, s := range f.stages {
		if s.AssignmentID == assignmentID && s.ExitedAt == nil {
			return s
		}
	}
	return nil
}

func (f *fakeStore) openStageCount(assignmentID uuid.UUID) int {
	count := 0
	for _, s := range f.stages {
		if s.AssignmentID == assignmentID && s.ExitedAt == nil {
			count++
		}
	}
	return count
}

func (f *fakeStore) stagesFor(assignmentID uuid.UUID) []*repository.PipelineStage {
	var out []*repository.PipelineStage
	for _, s := range f.stages {
		if s.AssignmentID == assignmentID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnteredAt.Before(out[j].EnteredAt) })
	return out
}

func (f *fakeStore) InTransition(_ context.Context, assignmentID uuid.UUID, fn func(ctx context.Context, tx repository.TxStore) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	assignment, ok := f.assignments[assignmentID]
	if !ok {
		return apperr.NotFound("assignment not found")
	}
	return fn(context.Background(), &fakeTx{store: f, assignment: assignment})
}

func (f *fakeStore) CreateAssignment(_ context.Context, params repository.CreateAssignmentParams) (repository.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a := repository.Assignment{
		ID:              uuid.New(),
		LeadID:          params.LeadID,
		ActorID:         params.ActorID,
		Status:          domain.AssignmentActive,
		AssignedAt:      time.Now(),
		ExpectedCloseAt: params.ExpectedCloseAt,
	}
	f.assignments[a.ID] = &a
	return a, nil
}

func (f *fakeStore) GetAssignment(_ context.Context, id uuid.UUID) (repository.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.assignments[id]
	if !ok {
		return repository.Assignment{}, apperr.NotFound("assignment not found")
	}
	return *a, nil
}

func (f *fakeStore) ListStages(_ context.Context, assignmentID uuid.UUID) ([]repository.PipelineStage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []repository.PipelineStage
	for _, s := range f.stagesFor(assignmentID) {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeStore) ListActivities(_ context.Context, assignmentID uuid.UUID) ([]repository.PipelineActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stageIDs := make(map[uuid.UUID]struct{})
	for _, s := range f.stages {
		if s.AssignmentID == assignmentID {
			stageIDs[s.ID] = struct{}{}
		}
	}

	var out []repository.PipelineActivity
	for _, a := range f.activities {
		if _, ok := stageIDs[a.StageID]; ok {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) StagesForActorSince(_ context.Context, actorID uuid.UUID, since time.Time) ([]repository.PipelineStage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []repository.PipelineStage
	for _, s := range f.stages {
		assignment, ok := f.assignments[s.AssignmentID]
		if !ok || assignment.ActorID != actorID {
			continue
		}
		if s.EnteredAt.Before(since) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnteredAt.Before(out[j].EnteredAt) })
	return out, nil
}

func (f *fakeStore) FirstStageEntries(_ context.Context, assignmentIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wanted := make(map[uuid.UUID]struct{}, len(assignmentIDs))
	for _, id := range assignmentIDs {
		wanted[id] = struct{}{}
	}

	out := make(map[uuid.UUID]time.Time)
	for _, s := range f.stages {
		if s.Stage != domain.StageNewLead {
			continue
		}
		if _, ok := wanted[s.AssignmentID]; !ok {
			continue
		}
		if existing, ok := out[s.AssignmentID]; !ok || s.EnteredAt.Before(existing) {
			out[s.AssignmentID] = s.EnteredAt
		}
	}
	return out, nil
}

func (f *fakeStore) UpcomingActions(_ context.Context, actorID uuid.UUID, before time.Time) ([]repository.UpcomingAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []repository.UpcomingAction
	for _, s := range f.stages {
		assignment, ok := f.assignments[s.AssignmentID]
		if !ok || assignment.ActorID != actorID {
			continue
		}
		if s.ExitedAt != nil || s.NextActionAt == nil || s.NextActionAt.After(before) {
			continue
		}
		out = append(out, repository.UpcomingAction{
			Stage:        *s,
			AssignmentID: s.AssignmentID,
			LeadID:       assignment.LeadID,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Stage.NextActionAt.Before(*out[j].Stage.NextActionAt)
	})
	return out, nil
}

// fakeTx implements repository.TxStore against the fake store. The caller
// already holds the store mutex.
type fakeTx struct {
	store      *fakeStore
	assignment *repository.Assignment
}

var _ repository.TxStore = (*fakeTx)(nil)

func (t *fakeTx) Assignment(_ context.Context) (repository.Assignment, error) {
	return *t.assignment, nil
}

func (t *fakeTx) OpenStage(_ context.Context) (repository.PipelineStage, bool, error) {
	if open := t.store.openStageFor(t.assignment.ID); open != nil {
		return *open, true, nil
	}
	return repository.PipelineStage{}, false, nil
}

func (t *fakeTx) InsertStage(_ context.Context, params repository.NewStageParams) (repository.PipelineStage, error) {
	if t.store.openStageFor(params.AssignmentID) != nil {
		return repository.PipelineStage{}, apperr.Conflict("assignment already has an open stage")
	}
	stage := t.store.addStage(repository.PipelineStage{
		AssignmentID:        params.AssignmentID,
		Stage:               params.Stage,
		EnteredAt:           params.EnteredAt,
		Probability:         params.Fields.Probability,
		EstimatedValueCents: params.Fields.EstimatedValueCents,
		NextAction:          params.Fields.NextAction,
		NextActionAt:        params.Fields.NextActionAt,
		Notes:               params.Fields.Notes,
		CreatedBy:           params.CreatedBy,
	})
	return *stage, nil
}

func (t *fakeTx) CloseStage(_ context.Context, stageID uuid.UUID, exitedAt time.Time, durationHours int) error {
	t.store.closeAttempts++
	if t.store.failCloseOnce {
		t.store.failCloseOnce = false
		return apperr.Conflict("stage was closed by a concurrent transition")
	}
	for _, s := range t.store.stages {
		if s.ID == stageID {
			if s.ExitedAt != nil {
				return apperr.Conflict("stage was closed by a concurrent transition")
			}
			exit := exitedAt
			duration := durationHours
			s.ExitedAt = &exit
			s.DurationHours = &duration
			return nil
		}
	}
	return apperr.NotFound("stage not found")
}

func (t *fakeTx) UpdateStageFields(_ context.Context, stageID uuid.UUID, fields domain.StageFields) (repository.PipelineStage, error) {
	for _, s := range t.store.stages {
		if s.ID == stageID {
			if s.ExitedAt != nil {
				return repository.PipelineStage{}, apperr.Conflict("stage was closed by a concurrent transition")
			}
			s.Probability = fields.Probability
			s.EstimatedValueCents = fields.EstimatedValueCents
			s.NextAction = fields.NextAction
			s.NextActionAt = fields.NextActionAt
			s.Notes = fields.Notes
			return *s, nil
		}
	}
	return repository.PipelineStage{}, apperr.NotFound("stage not found")
}

func (t *fakeTx) InsertActivity(_ context.Context, params repository.NewActivityParams) (repository.PipelineActivity, error) {
	activity := repository.PipelineActivity{
		ID:           uuid.New(),
		StageID:      params.StageID,
		ActivityType: params.ActivityType,
		Description:  params.Description,
		Outcome:      params.Outcome,
		ScheduledAt:  params.ScheduledAt,
		CompletedAt:  params.CompletedAt,
		CreatedBy:    params.CreatedBy,
		CreatedAt:    time.Now(),
	}
	t.store.activities = append(t.store.activities, &activity)
	return activity, nil
}

func (t *fakeTx) SetAssignmentStatus(_ context.Context, status domain.AssignmentStatus) error {
	t.assignment.Status = status
	return nil
}

func intPtr(v int) *int             { return &v }
func int64Ptr(v int64) *int64       { return &v }
func strPtr(v string) *string       { return &v }
func timePtr(v time.Time) *time.Time { return &v }
