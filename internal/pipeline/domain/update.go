package domain

import "time"

// StageFields are the mutable fields of an open pipeline stage. Everything
// else on a stage record is fixed at open time.
type StageFields struct {
	Probability         int
	EstimatedValueCents *int64
	NextAction          *string
	NextActionAt        *time.Time
	Notes               *string
}

// StageUpdate is a partial update to an open stage. Nil fields keep the
// current value.
type StageUpdate struct {
	Probability         *int
	EstimatedValueCents *int64
	NextAction          *string
	NextActionAt        *time.Time
	Notes               *string
}

// IsZero reports whether the update carries no field at all.
func (u StageUpdate) IsZero() bool {
	return u.Probability == nil &&
		u.EstimatedValueCents == nil &&
		u.NextAction == nil &&
		u.NextActionAt == nil &&
		u.Notes == nil
}

// Merge applies u on top of current and returns the result. This is the one
// place the "absent means keep" contract lives.
func Merge(current StageFields, u StageUpdate) StageFields {
	merged := current
	if u.Probability != nil {
		merged.Probability = *u.Probability
	}
	if u.EstimatedValueCents != nil {
		merged.EstimatedValueCents = u.EstimatedValueCents
	}
	if u.NextAction != nil {
		merged.NextAction = u.NextAction
	}
	if u.NextActionAt != nil {
		merged.NextActionAt = u.NextActionAt
	}
	if u.Notes != nil {
		merged.Notes = u.Notes
	}
	return merged
}

// OpeningFields resolves the fields of a newly opened stage: explicit values
// from u win, the stage default probability fills the gap, and everything
// else starts empty.
func OpeningFields(stage Stage, u StageUpdate) StageFields {
	return Merge(StageFields{Probability: stage.DefaultProbability()}, u)
}
