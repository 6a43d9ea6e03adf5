// Package ports declares the capabilities the pipeline module consumes from
// other modules, so the engine depends on narrow interfaces instead of
// concrete implementations.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// LeadSummary carries the display fields used to decorate pipeline responses.
// The score and its category are computed elsewhere; the pipeline only reads
// them.
type LeadSummary struct {
	ID            uuid.UUID
	Name          string
	Email         string
	Phone         string
	Score         int
	ScoreCategory string
}

// ActorSummary carries the display fields of a sales actor.
type ActorSummary struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// LeadReader resolves lead display data.
type LeadReader interface {
	GetLeadSummary(ctx context.Context, id uuid.UUID) (LeadSummary, error)
}

// ActorReader resolves actor display data.
type ActorReader interface {
	GetActorSummary(ctx context.Context, id uuid.UUID) (ActorSummary, error)
}
