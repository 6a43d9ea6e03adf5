package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"realty_pipeline_backend/internal/pipeline/domain"
	"realty_pipeline_backend/internal/pipeline/ports"
	"realty_pipeline_backend/internal/pipeline/repository"
)

type fakeLeadReader struct {
	leads map[uuid.UUID]ports.LeadSummary
}

func (f *fakeLeadReader) GetLeadSummary(_ context.Context, id uuid.UUID) (ports.LeadSummary, error) {
	return f.leads[id], nil
}

// seedClosedStage inserts a finished stage interval directly, bypassing the
// state machine, so metrics tests can shape history precisely.
func seedClosedStage(store *fakeStore, assignmentID uuid.UUID, stage domain.Stage, enteredAt time.Time, hours int, valueCents *int64, probability int) {
	exitedAt := enteredAt.Add(time.Duration(hours) * time.Hour)
	store.addStage(repository.PipelineStage{
		AssignmentID:        assignmentID,
		Stage:               stage,
		EnteredAt:           enteredAt,
		ExitedAt:            &exitedAt,
		DurationHours:       &hours,
		Probability:         probability,
		EstimatedValueCents: valueCents,
	})
}

func seedOpenStage(store *fakeStore, assignmentID uuid.UUID, stage domain.Stage, enteredAt time.Time, valueCents *int64, probability int) *repository.PipelineStage {
	return store.addStage(repository.PipelineStage{
		AssignmentID:        assignmentID,
		Stage:               stage,
		EnteredAt:           enteredAt,
		Probability:         probability,
		EstimatedValueCents: valueCents,
	})
}

func TestCalculateMetrics(t *testing.T) {
	store := newFakeStore()
	actorID := uuid.New()

	now := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	svc := New(store, nil, nil, nil, nil)
	svc.now = func() time.Time { return now }

	// Deal A: won after NEW_LEAD -> CONTACTED -> ... -> WON, 100k value.
	dealA := store.addAssignment(uuid.New(), actorID)
	start := now.AddDate(0, 0, -10)
	seedClosedStage(store, dealA, domain.StageNewLead, start, 24, nil, 10)
	seedClosedStage(store, dealA, domain.StageContacted, start.Add(24*time.Hour), 48, nil, 20)
	wonEntry := start.Add(72 * time.Hour)
	store.addStage(repository.PipelineStage{
		AssignmentID:        dealA,
		Stage:               domain.StageWon,
		EnteredAt:           wonEntry,
		Probability:         100,
		EstimatedValueCents: int64Ptr(100_000_00),
	})

	// Deal B: lost.
	dealB := store.addAssignment(uuid.New(), actorID)
	seedClosedStage(store, dealB, domain.StageNewLead, now.AddDate(0, 0, -5), 12, nil, 10)
	seedOpenStage(store, dealB, domain.StageLost, now.AddDate(0, 0, -4), nil, 0)

	// Deal C: open in NEGOTIATION at 60%, 50k value.
	dealC := store.addAssignment(uuid.New(), actorID)
	seedOpenStage(store, dealC, domain.StageNegotiation, now.AddDate(0, 0, -2), int64Ptr(50_000_00), 60)

	// Another actor's deal is invisible.
	other := store.addAssignment(uuid.New(), uuid.New())
	seedOpenStage(store, other, domain.StageQualified, now.AddDate(0, 0, -1), int64Ptr(999_999_00), 30)

	m, err := svc.CalculateMetrics(context.Background(), actorID, 30)
	if err != nil {
		t.Fatalf("CalculateMetrics() error = %v", err)
	}

	if m.WindowDays != 30 {
		t.Errorf("window = %d, want 30", m.WindowDays)
	}
	if m.OpenDeals != 1 {
		t.Errorf("open deals = %d, want 1", m.OpenDeals)
	}
	if m.TotalValueCents != 50_000_00 {
		t.Errorf("total value = %d, want 5000000", m.TotalValueCents)
	}
	if m.WeightedValueCents != 30_000_00 {
		t.Errorf("weighted value = %d, want 3000000", m.WeightedValueCents)
	}
	if m.WonCount != 1 || m.LostCount != 1 {
		t.Errorf("won=%d lost=%d, want 1 and 1", m.WonCount, m.LostCount)
	}
	if m.ConversionRate != 50 {
		t.Errorf("conversion rate = %v, want 50", m.ConversionRate)
	}
	if m.AverageDealSizeCents != 100_000_00 {
		t.Errorf("average deal size = %d, want 10000000", m.AverageDealSizeCents)
	}
	if got := m.StageDistribution[domain.StageNewLead]; got != 2 {
		t.Errorf("NEW_LEAD distribution = %d, want 2", got)
	}
	// NEW_LEAD durations 24h and 12h average to 18h.
	if got := m.VelocityByStage[domain.StageNewLead]; got != 18 {
		t.Errorf("NEW_LEAD velocity = %d, want 18", got)
	}
	if got := m.VelocityByStage[domain.StageContacted]; got != 48 {
		t.Errorf("CONTACTED velocity = %d, want 48", got)
	}
	// Deal A entered NEW_LEAD and won 72h later: 3 days.
	if m.AverageCycleTimeDays != 3 {
		t.Errorf("cycle time = %v, want 3", m.AverageCycleTimeDays)
	}
}

func TestCalculateMetricsEmptyWindow(t *testing.T) {
	store := newFakeStore()
	actorID := uuid.New()
	svc := New(store, nil, nil, nil, nil)

	m, err := svc.CalculateMetrics(context.Background(), actorID, 0)
	if err != nil {
		t.Fatalf("CalculateMetrics() error = %v", err)
	}
	if m.WindowDays != defaultMetricsWindowDays {
		t.Errorf("window = %d, want default %d", m.WindowDays, defaultMetricsWindowDays)
	}
	if m.ConversionRate != 0 || m.AverageDealSizeCents != 0 || m.AverageCycleTimeDays != 0 {
		t.Errorf("empty window should produce zero rates, got %+v", m)
	}
	if m.OpenDeals != 0 || m.TotalValueCents != 0 {
		t.Errorf("empty window: open=%d total=%d, want zero", m.OpenDeals, m.TotalValueCents)
	}
}

func TestCalculateMetricsExcludesOldStages(t *testing.T) {
	store := newFakeStore()
	actorID := uuid.New()

	now := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	svc := New(store, nil, nil, nil, nil)
	svc.now = func() time.Time { return now }

	deal := store.addAssignment(uuid.New(), actorID)
	seedOpenStage(store, deal, domain.StageWon, now.AddDate(0, 0, -60), int64Ptr(75_000_00), 100)

	m, err := svc.CalculateMetrics(context.Background(), actorID, 30)
	if err != nil {
		t.Fatalf("CalculateMetrics() error = %v", err)
	}
	if m.WonCount != 0 {
		t.Errorf("won count = %d, want 0 for a stage outside the window", m.WonCount)
	}
}

func TestCalculateMetricsIsIdempotent(t *testing.T) {
	svc, _, clock, assignmentID, actorID := newTestService(t)
	ctx := context.Background()

	if _, err := svc.InitializePipeline(ctx, assignmentID, actorID); err != nil {
		t.Fatalf("InitializePipeline() error = %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := svc.MoveToStage(ctx, assignmentID, domain.StageContacted, actorID, domain.StageUpdate{
		EstimatedValueCents: int64Ptr(30_000_00),
	}); err != nil {
		t.Fatalf("MoveToStage() error = %v", err)
	}

	first, err := svc.CalculateMetrics(ctx, actorID, 30)
	if err != nil {
		t.Fatalf("first CalculateMetrics() error = %v", err)
	}
	second, err := svc.CalculateMetrics(ctx, actorID, 30)
	if err != nil {
		t.Fatalf("second CalculateMetrics() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("metrics changed between reads:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestUpcomingActions(t *testing.T) {
	store := newFakeStore()
	actorID := uuid.New()

	now := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)

	leadID := uuid.New()
	leads := &fakeLeadReader{leads: map[uuid.UUID]ports.LeadSummary{
		leadID: {ID: leadID, Name: "Jordan Vermeer", Email: "jordan@example.com"},
	}}

	svc := New(store, leads, nil, nil, nil)
	svc.now = func() time.Time { return now }

	deal := store.addAssignment(leadID, actorID)
	stage := seedOpenStage(store, deal, domain.StageProposalSent, now.AddDate(0, 0, -1), nil, 40)
	stage.NextAction = strPtr("Chase the proposal")
	stage.NextActionAt = timePtr(now.Add(48 * time.Hour))

	// Due beyond the horizon, excluded.
	farDeal := store.addAssignment(uuid.New(), actorID)
	farStage := seedOpenStage(store, farDeal, domain.StageContacted, now.AddDate(0, 0, -1), nil, 20)
	farStage.NextActionAt = timePtr(now.Add(30 * 24 * time.Hour))

	actions, err := svc.UpcomingActions(context.Background(), actorID, 7)
	if err != nil {
		t.Fatalf("UpcomingActions() error = %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	if actions[0].AssignmentID != deal {
		t.Errorf("assignment = %s, want %s", actions[0].AssignmentID, deal)
	}
	if actions[0].LeadName != "Jordan Vermeer" || actions[0].LeadEmail != "jordan@example.com" {
		t.Errorf("lead = %q <%s>, want decorated summary", actions[0].LeadName, actions[0].LeadEmail)
	}
	if actions[0].Stage.NextAction == nil || *actions[0].Stage.NextAction != "Chase the proposal" {
		t.Errorf("next action = %v", actions[0].Stage.NextAction)
	}
}

func TestUpcomingActionsOrdering(t *testing.T) {
	store := newFakeStore()
	actorID := uuid.New()
	now := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)

	svc := New(store, nil, nil, nil, nil)
	svc.now = func() time.Time { return now }

	later := store.addAssignment(uuid.New(), actorID)
	s1 := seedOpenStage(store, later, domain.StageContacted, now.AddDate(0, 0, -3), nil, 20)
	s1.NextActionAt = timePtr(now.Add(72 * time.Hour))

	sooner := store.addAssignment(uuid.New(), actorID)
	s2 := seedOpenStage(store, sooner, domain.StageQualified, now.AddDate(0, 0, -2), nil, 30)
	s2.NextActionAt = timePtr(now.Add(2 * time.Hour))

	actions, err := svc.UpcomingActions(context.Background(), actorID, 7)
	if err != nil {
		t.Fatalf("UpcomingActions() error = %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(actions))
	}
	if actions[0].AssignmentID != sooner || actions[1].AssignmentID != later {
		t.Errorf("actions out of order: %s then %s", actions[0].AssignmentID, actions[1].AssignmentID)
	}
}
