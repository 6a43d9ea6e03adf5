// Package repository provides data access for the actor and lead directory.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"realty_pipeline_backend/internal/pipeline/ports"
	"realty_pipeline_backend/platform/apperr"
	"realty_pipeline_backend/platform/phone"
)

// Repo provides directory lookups backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a directory repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var (
	_ ports.LeadReader  = (*Repo)(nil)
	_ ports.ActorReader = (*Repo)(nil)
)

// Actor is a sales actor working assignments.
type Actor struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// Lead is a prospective buyer or tenant. The score and its category are
// computed by the acquisition system; this service only reads them.
type Lead struct {
	ID            uuid.UUID `db:"id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	Phone         string    `db:"phone"`
	Score         int       `db:"score"`
	ScoreCategory string    `db:"score_category"`
	CreatedAt     time.Time `db:"created_at"`
}

// CreateActorParams contains parameters for registering an actor.
type CreateActorParams struct {
	Name  string
	Email string
	Phone string
	Role  string
}

// CreateLeadParams contains parameters for registering a lead.
type CreateLeadParams struct {
	Name          string
	Email         string
	Phone         string
	Score         int
	ScoreCategory string
}

// CreateActor registers a sales actor. The phone number is normalized
// to E.164 before storage.
func (r *Repo) CreateActor(ctx context.Context, params CreateActorParams) (Actor, error) {
	var actor Actor
	err := r.pool.QueryRow(ctx, `
		INSERT INTO actors (name, email, phone, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, phone, role, created_at`,
		params.Name, params.Email, phone.NormalizeE164(params.Phone), params.Role,
	).Scan(&actor.ID, &actor.Name, &actor.Email, &actor.Phone, &actor.Role, &actor.CreatedAt)
	if err != nil {
		return Actor{}, fmt.Errorf("create actor: %w", err)
	}
	return actor, nil
}

// CreateLead registers a lead with its precomputed score.
func (r *Repo) CreateLead(ctx context.Context, params CreateLeadParams) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (name, email, phone, score, score_category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, email, phone, score, score_category, created_at`,
		params.Name, params.Email, phone.NormalizeE164(params.Phone), params.Score, params.ScoreCategory,
	).Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.Score, &lead.ScoreCategory, &lead.CreatedAt)
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return lead, nil
}

// GetActor loads an actor by ID.
func (r *Repo) GetActor(ctx context.Context, id uuid.UUID) (Actor, error) {
	var actor Actor
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, role, created_at
		FROM actors WHERE id = $1`, id,
	).Scan(&actor.ID, &actor.Name, &actor.Email, &actor.Phone, &actor.Role, &actor.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Actor{}, apperr.NotFound("actor not found")
	}
	if err != nil {
		return Actor{}, fmt.Errorf("get actor: %w", err)
	}
	return actor, nil
}

// GetLead loads a lead by ID.
func (r *Repo) GetLead(ctx context.Context, id uuid.UUID) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, score, score_category, created_at
		FROM leads WHERE id = $1`, id,
	).Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.Score, &lead.ScoreCategory, &lead.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// GetLeadSummary implements ports.LeadReader.
func (r *Repo) GetLeadSummary(ctx context.Context, id uuid.UUID) (ports.LeadSummary, error) {
	lead, err := r.GetLead(ctx, id)
	if err != nil {
		return ports.LeadSummary{}, err
	}
	return ports.LeadSummary{
		ID:            lead.ID,
		Name:          lead.Name,
		Email:         lead.Email,
		Phone:         lead.Phone,
		Score:         lead.Score,
		ScoreCategory: lead.ScoreCategory,
	}, nil
}

// GetActorSummary implements ports.ActorReader.
func (r *Repo) GetActorSummary(ctx context.Context, id uuid.UUID) (ports.ActorSummary, error) {
	actor, err := r.GetActor(ctx, id)
	if err != nil {
		return ports.ActorSummary{}, err
	}
	return ports.ActorSummary{
		ID:    actor.ID,
		Name:  actor.Name,
		Email: actor.Email,
	}, nil
}
