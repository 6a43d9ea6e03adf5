package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"realty_pipeline_backend/internal/pipeline/domain"
	"realty_pipeline_backend/internal/pipeline/repository"
)

const defaultMetricsWindowDays = 30

// Metrics is the portfolio-level sales analytics for one actor over a
// lookback window. Money values are in cents.
type Metrics struct {
	ActorID    uuid.UUID `json:"actorId"`
	WindowDays int       `json:"windowDays"`

	// TotalValueCents sums the estimated value of currently open deals.
	TotalValueCents int64 `json:"totalValueCents"`
	// WeightedValueCents additionally weights each open deal by its
	// probability of closing.
	WeightedValueCents int64 `json:"weightedValueCents"`
	// AverageDealSizeCents is the mean estimated value of won deals.
	AverageDealSizeCents int64 `json:"averageDealSizeCents"`
	// ConversionRate is won / (won + lost), in percent.
	ConversionRate float64 `json:"conversionRate"`

	OpenDeals int `json:"openDeals"`
	WonCount  int `json:"wonCount"`
	LostCount int `json:"lostCount"`

	// StageDistribution counts stage rows in the window per stage name.
	StageDistribution map[domain.Stage]int `json:"stageDistribution"`
	// VelocityByStage is the mean hours spent in each stage, rounded to the
	// nearest whole hour, over stages with a recorded duration.
	VelocityByStage map[domain.Stage]int `json:"velocityByStage"`
	// AverageCycleTimeDays is the mean days from first pipeline entry to the
	// win, over assignments won in the window.
	AverageCycleTimeDays float64 `json:"averageCycleTimeDays"`
}

// CalculateMetrics aggregates the actor's stage history entered within the
// last windowDays. Read-only; repeated calls with no intervening writes
// return identical results.
func (s *Service) CalculateMetrics(ctx context.Context, actorID uuid.UUID, windowDays int) (Metrics, error) {
	if windowDays <= 0 {
		windowDays = defaultMetricsWindowDays
	}
	since := s.now().AddDate(0, 0, -windowDays)

	stages, err := s.store.StagesForActorSince(ctx, actorID, since)
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		ActorID:           actorID,
		WindowDays:        windowDays,
		StageDistribution: make(map[domain.Stage]int),
		VelocityByStage:   make(map[domain.Stage]int),
	}

	var (
		wonValueSum   int64
		wonValueCount int
		durationSums  = make(map[domain.Stage]int)
		durationCount = make(map[domain.Stage]int)
		wonStages     []repository.PipelineStage
	)

	for _, stage := range stages {
		m.StageDistribution[stage.Stage]++

		if stage.DurationHours != nil {
			durationSums[stage.Stage] += *stage.DurationHours
			durationCount[stage.Stage]++
		}

		switch stage.Stage {
		case domain.StageWon:
			m.WonCount++
			wonStages = append(wonStages, stage)
			if stage.EstimatedValueCents != nil {
				wonValueSum += *stage.EstimatedValueCents
				wonValueCount++
			}
		case domain.StageLost:
			m.LostCount++
		}

		if stage.Open() && !stage.Stage.Terminal() {
			m.OpenDeals++
			if stage.EstimatedValueCents != nil {
				value := *stage.EstimatedValueCents
				m.TotalValueCents += value
				m.WeightedValueCents += value * int64(stage.Probability) / 100
			}
		}
	}

	if wonValueCount > 0 {
		m.AverageDealSizeCents = wonValueSum / int64(wonValueCount)
	}
	if closed := m.WonCount + m.LostCount; closed > 0 {
		m.ConversionRate = float64(m.WonCount) / float64(closed) * 100
	}
	for stage, sum := range durationSums {
		m.VelocityByStage[stage] = int(math.Round(float64(sum) / float64(durationCount[stage])))
	}

	cycle, err := s.averageCycleTime(ctx, wonStages)
	if err != nil {
		return Metrics{}, err
	}
	m.AverageCycleTimeDays = cycle

	return m, nil
}

// averageCycleTime computes the mean days between each won assignment's
// NEW_LEAD entry and its WON entry. Assignments that never passed through
// NEW_LEAD do not contribute.
func (s *Service) averageCycleTime(ctx context.Context, wonStages []repository.PipelineStage) (float64, error) {
	if len(wonStages) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(wonStages))
	for _, stage := range wonStages {
		ids = append(ids, stage.AssignmentID)
	}

	entries, err := s.store.FirstStageEntries(ctx, ids)
	if err != nil {
		return 0, err
	}

	var totalDays, count int
	for _, won := range wonStages {
		enteredAt, ok := entries[won.AssignmentID]
		if !ok {
			continue
		}
		totalDays += domain.CycleDays(enteredAt, won.EnteredAt)
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return float64(totalDays) / float64(count), nil
}

// UpcomingAction is an open stage with a next action due inside the
// requested horizon, decorated with the lead it concerns.
type UpcomingAction struct {
	Stage        repository.PipelineStage
	AssignmentID uuid.UUID
	LeadName     string
	LeadEmail    string
}

const defaultUpcomingActionDays = 7

// UpcomingActions lists the actor's stages with a next action due within
// the given number of days, ascending by due date.
func (s *Service) UpcomingActions(ctx context.Context, actorID uuid.UUID, days int) ([]UpcomingAction, error) {
	if days <= 0 {
		days = defaultUpcomingActionDays
	}
	before := s.now().Add(time.Duration(days) * 24 * time.Hour)

	rows, err := s.store.UpcomingActions(ctx, actorID, before)
	if err != nil {
		return nil, err
	}

	leadNames := make(map[uuid.UUID]struct {
		name  string
		email string
	})
	out := make([]UpcomingAction, 0, len(rows))
	for _, row := range rows {
		action := UpcomingAction{Stage: row.Stage, AssignmentID: row.AssignmentID}
		if s.leads != nil {
			cached, ok := leadNames[row.LeadID]
			if !ok {
				summary, err := s.leads.GetLeadSummary(ctx, row.LeadID)
				if err != nil {
					return nil, err
				}
				cached = struct {
					name  string
					email string
				}{summary.Name, summary.Email}
				leadNames[row.LeadID] = cached
			}
			action.LeadName = cached.name
			action.LeadEmail = cached.email
		}
		out = append(out, action)
	}
	return out, nil
}
