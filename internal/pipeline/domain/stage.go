// Package domain defines the sales pipeline vocabulary: the closed stage and
// activity type sets, the transition graph, and the pure derivation rules the
// state machine is built on. Nothing in this package touches storage.
package domain

import "time"

// Stage is a named phase of the real-estate sales cycle. The set is closed;
// values outside the declared constants are rejected at the boundary.
type Stage string

const (
	StageNewLead         Stage = "NEW_LEAD"
	StageContacted       Stage = "CONTACTED"
	StageQualified       Stage = "QUALIFIED"
	StageProposalSent    Stage = "PROPOSAL_SENT"
	StageNegotiation     Stage = "NEGOTIATION"
	StagePropertyViewing Stage = "PROPERTY_VIEWING"
	StageApplication     Stage = "APPLICATION"
	StageClosing         Stage = "CLOSING"
	StageOnHold          Stage = "ON_HOLD"
	StageWon             Stage = "WON"
	StageLost            Stage = "LOST"
)

// stageTransitions is the fixed adjacency graph of the sales cycle.
// WON and LOST have no outgoing edges.
var stageTransitions = map[Stage][]Stage{
	StageNewLead:         {StageContacted, StageQualified, StageLost},
	StageContacted:       {StageQualified, StageProposalSent, StagePropertyViewing, StageLost, StageOnHold},
	StageQualified:       {StageProposalSent, StagePropertyViewing, StageNegotiation, StageLost},
	StageProposalSent:    {StageNegotiation, StagePropertyViewing, StageApplication, StageLost, StageOnHold},
	StageNegotiation:     {StageApplication, StageClosing, StageProposalSent, StageLost},
	StagePropertyViewing: {StageApplication, StageNegotiation, StageQualified, StageLost},
	StageApplication:     {StageClosing, StageNegotiation, StageLost},
	StageClosing:         {StageWon, StageLost, StageOnHold},
	StageOnHold:          {StageContacted, StageQualified, StageNegotiation, StageLost},
	StageWon:             {},
	StageLost:            {},
}

// defaultProbabilities is the probability-of-closing applied when a stage is
// opened without an explicit value.
var defaultProbabilities = map[Stage]int{
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

// Known reports whether s is part of the fixed stage set.
func (s Stage) Known() bool {
	_, ok := stageTransitions[s]
	return ok
}

// Terminal reports whether s has no outgoing transitions.
func (s Stage) Terminal() bool {
	return s == StageWon || s == StageLost
}

// DefaultProbability returns the default probability-of-closing for s.
func (s Stage) DefaultProbability() int {
	return defaultProbabilities[s]
}

// CanTransition reports whether the edge from→to exists in the sales-cycle
// graph. Same-stage requests are an in-place update, not a transition, and
// must be handled by the caller before consulting the graph.
func CanTransition(from, to Stage) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AssignmentStatus is the aggregate status of a lead assignment, derived from
// its currently open stage.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "ACTIVE"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
	AssignmentOnHold    AssignmentStatus = "ON_HOLD"
)

// StatusFor derives the assignment status implied by entering stage s.
func StatusFor(s Stage) AssignmentStatus {
	switch s {
	case StageWon:
		return AssignmentCompleted
	case StageLost:
		return AssignmentCancelled
	case StageOnHold:
		return AssignmentOnHold
	default:
		return AssignmentActive
	}
}

// DurationHours returns the occupancy of a closed stage in whole hours,
// rounded up. A zero or negative interval counts as zero hours.
func DurationHours(enteredAt, exitedAt time.Time) int {
	delta := exitedAt.Sub(enteredAt)
	if delta <= 0 {
		return 0
	}
	hours := int(delta / time.Hour)
	if delta%time.Hour != 0 {
		hours++
	}
	return hours
}

// CycleDays returns the whole days, rounded up, between first pipeline entry
// and the win that ended it.
func CycleDays(newLeadEnteredAt, wonEnteredAt time.Time) int {
	delta := wonEnteredAt.Sub(newLeadEnteredAt)
	if delta <= 0 {
		return 0
	}
	days := int(delta / (24 * time.Hour))
	if delta%(24*time.Hour) != 0 {
		days++
	}
	return days
}
