package domain

import (
	"testing"
	"time"
)

func TestCanTransitionMatchesSalesCycleGraph(t *testing.T) {
	cases := []struct {
		from Stage
		to   Stage
		want bool
	}{
		{StageNewLead, StageContacted, true},
		{StageNewLead, StageQualified, true},
		{StageNewLead, StageLost, true},
		{StageNewLead, StageClosing, false},
		{StageNewLead, StageWon, false},
		{StageContacted, StagePropertyViewing, true},
		{StageContacted, StageOnHold, true},
		{StageContacted, StageClosing, false},
		{StageQualified, StageNegotiation, true},
		{StageQualified, StageOnHold, false},
		{StageProposalSent, StageApplication, true},
		{StageNegotiation, StageProposalSent, true},
		{StagePropertyViewing, StageQualified, true},
		{StageApplication, StageClosing, true},
		{StageApplication, StageWon, false},
		{StageClosing, StageWon, true},
		{StageClosing, StageNewLead, false},
		{StageOnHold, StageNegotiation, true},
		{StageWon, StageLost, false},
		{StageLost, StageContacted, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStagesHaveNoOutgoingEdges(t *testing.T) {
	all := []Stage{
		StageNewLead, StageContacted, StageQualified, StageProposalSent,
		StageNegotiation, StagePropertyViewing, StageApplication,
		StageClosing, StageOnHold, StageWon, StageLost,
	}

	for _, terminal := range []Stage{StageWon, StageLost} {
		if !terminal.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", terminal)
		}
		for _, to := range all {
			if CanTransition(terminal, to) {
				t.Errorf("terminal stage %s has outgoing edge to %s", terminal, to)
			}
		}
	}

	for _, s := range all {
		if s.Terminal() && s != StageWon && s != StageLost {
			t.Errorf("unexpected terminal stage %s", s)
		}
	}
}

func TestDefaultProbabilities(t *testing.T) {
	want := map[Stage]int{
		StageNewLead:         10,
		StageContacted:       20,
		StageQualified:       35,
		StageProposalSent:    50,
		StageNegotiation:     65,
		StagePropertyViewing: 60,
		StageApplication:     80,
		StageClosing:         90,
		StageOnHold:          25,
		StageWon:             100,
		StageLost:            0,
	}

	for stage, p := range want {
		if got := stage.DefaultProbability(); got != p {
			t.Errorf("%s.DefaultProbability() = %d, want %d", stage, got, p)
		}
	}
}

func TestStatusForDerivation(t *testing.T) {
	cases := []struct {
		stage Stage
		want  AssignmentStatus
	}{
		{StageWon, AssignmentCompleted},
		{StageLost, AssignmentCancelled},
		{StageOnHold, AssignmentOnHold},
		{StageNewLead, AssignmentActive},
		{StageContacted, AssignmentActive},
		{StageQualified, AssignmentActive},
		{StageProposalSent, AssignmentActive},
		{StageNegotiation, AssignmentActive},
		{StagePropertyViewing, AssignmentActive},
		{StageApplication, AssignmentActive},
		{StageClosing, AssignmentActive},
	}

	for _, tc := range cases {
		if got := StatusFor(tc.stage); got != tc.want {
			t.Errorf("StatusFor(%s) = %s, want %s", tc.stage, got, tc.want)
		}
	}
}

func TestKnownRejectsUnknownStage(t *testing.T) {
	if Stage("ARCHIVED").Known() {
		t.Error("ARCHIVED should not be a known stage")
	}
	if !StagePropertyViewing.Known() {
		t.Error("PROPERTY_VIEWING should be a known stage")
	}
}

func TestDurationHoursRoundsUp(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		delta time.Duration
		want  int
	}{
		{0, 0},
		{-time.Hour, 0},
		{time.Second, 1},
		{time.Hour, 1},
		{time.Hour + time.Minute, 2},
		{26*time.Hour + 30*time.Minute, 27},
	}

	for _, tc := range cases {
		if got := DurationHours(base, base.Add(tc.delta)); got != tc.want {
			t.Errorf("DurationHours(+%s) = %d, want %d", tc.delta, got, tc.want)
		}
	}
}

func TestCycleDaysRoundsUp(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		delta time.Duration
		want  int
	}{
		{0, 0},
		{time.Hour, 1},
		{24 * time.Hour, 1},
		{25 * time.Hour, 2},
		{14 * 24 * time.Hour, 14},
	}

	for _, tc := range cases {
		if got := CycleDays(base, base.Add(tc.delta)); got != tc.want {
			t.Errorf("CycleDays(+%s) = %d, want %d", tc.delta, got, tc.want)
		}
	}
}
