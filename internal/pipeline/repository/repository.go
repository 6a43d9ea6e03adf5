package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"realty_pipeline_backend/internal/pipeline/domain"
	"realty_pipeline_backend/platform/apperr"
)

const (
	assignmentNotFoundMessage = "assignment not found"
	stageClosedMessage        = "stage was closed by a concurrent transition"

	stageColumns = `id, assignment_id, stage, entered_at, exited_at, duration_hours,
		probability, estimated_value_cents, next_action, next_action_at, notes, created_by`
	activityColumns = `id, stage_id, activity_type, description, outcome,
		scheduled_at, completed_at, created_by, created_at`
)

// Repo implements Store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new pipeline repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Store.
var _ Store = (*Repo)(nil)

// InTransition locks the assignment row and runs fn in a single transaction.
// The row lock serializes concurrent transitions per assignment; the partial
// unique index on open stages backstops the at-most-one-open-stage invariant.
func (r *Repo) InTransition(ctx context.Context, assignmentID uuid.UUID, fn func(ctx context.Context, tx TxStore) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin pipeline transition: %w", err)
	}
	defer tx.Rollback(ctx)

	assignment, err := lockAssignment(ctx, tx, assignmentID)
	if err != nil {
		return err
	}

	if err := fn(ctx, &txStore{tx: tx, assignment: assignment}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit pipeline transition: %w", err)
	}
	return nil
}

func lockAssignment(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Assignment, error) {
	query := `
		SELECT id, lead_id, actor_id, status, assigned_at, expected_close_at
		FROM assignments
		WHERE id = $1
		FOR UPDATE`

	var a Assignment
	err := tx.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.LeadID, &a.ActorID, &a.Status, &a.AssignedAt, &a.ExpectedCloseAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, apperr.NotFound(assignmentNotFoundMessage)
		}
		return Assignment{}, fmt.Errorf("lock assignment: %w", err)
	}
	return a, nil
}

// txStore is the TxStore implementation bound to one open transaction.
type txStore struct {
	tx         pgx.Tx
	assignment Assignment
}

var _ TxStore = (*txStore)(nil)

func (t *txStore) Assignment(_ context.Context) (Assignment, error) {
	return t.assignment, nil
}

func (t *txStore) OpenStage(ctx context.Context) (PipelineStage, bool, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM pipeline_stages
		WHERE assignment_id = $1 AND exited_at IS NULL`

	stage, err := scanStage(t.tx.QueryRow(ctx, query, t.assignment.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PipelineStage{}, false, nil
		}
		return PipelineStage{}, false, fmt.Errorf("get open stage: %w", err)
	}
	return stage, true, nil
}

func (t *txStore) InsertStage(ctx context.Context, params NewStageParams) (PipelineStage, error) {
	query := `
		INSERT INTO pipeline_stages (
			id, assignment_id, stage, entered_at,
			probability, estimated_value_cents, next_action, next_action_at, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + stageColumns

	stage, err := scanStage(t.tx.QueryRow(ctx, query,
		uuid.New(), params.AssignmentID, params.Stage, params.EnteredAt,
		params.Fields.Probability, params.Fields.EstimatedValueCents,
		params.Fields.NextAction, params.Fields.NextActionAt, params.Fields.Notes,
		params.CreatedBy,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return PipelineStage{}, apperr.Conflict("assignment already has an open stage")
		}
		return PipelineStage{}, fmt.Errorf("insert stage: %w", err)
	}
	return stage, nil
}

func (t *txStore) CloseStage(ctx context.Context, stageID uuid.UUID, exitedAt time.Time, durationHours int) error {
	query := `
		UPDATE pipeline_stages
		SET exited_at = $2, duration_hours = $3
		WHERE id = $1 AND exited_at IS NULL`

	result, err := t.tx.Exec(ctx, query, stageID, exitedAt, durationHours)
	if err != nil {
		return fmt.Errorf("close stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict(stageClosedMessage)
	}
	return nil
}

func (t *txStore) UpdateStageFields(ctx context.Context, stageID uuid.UUID, fields domain.StageFields) (PipelineStage, error) {
	query := `
		UPDATE pipeline_stages
		SET probability = $2, estimated_value_cents = $3,
			next_action = $4, next_action_at = $5, notes = $6
		WHERE id = $1 AND exited_at IS NULL
		RETURNING ` + stageColumns

	stage, err := scanStage(t.tx.QueryRow(ctx, query,
		stageID, fields.Probability, fields.EstimatedValueCents,
		fields.NextAction, fields.NextActionAt, fields.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PipelineStage{}, apperr.Conflict(stageClosedMessage)
		}
		return PipelineStage{}, fmt.Errorf("update stage fields: %w", err)
	}
	return stage, nil
}

func (t *txStore) InsertActivity(ctx context.Context, params NewActivityParams) (PipelineActivity, error) {
	query := `
		INSERT INTO pipeline_activities (
			id, stage_id, activity_type, description, outcome,
			scheduled_at, completed_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + activityColumns

	activity, err := scanActivity(t.tx.QueryRow(ctx, query,
		uuid.New(), params.StageID, params.ActivityType, params.Description,
		params.Outcome, params.ScheduledAt, params.CompletedAt, params.CreatedBy,
	))
	if err != nil {
		return PipelineActivity{}, fmt.Errorf("insert activity: %w", err)
	}
	return activity, nil
}

func (t *txStore) SetAssignmentStatus(ctx context.Context, status domain.AssignmentStatus) error {
	query := `UPDATE assignments SET status = $2 WHERE id = $1`

	if _, err := t.tx.Exec(ctx, query, t.assignment.ID, status); err != nil {
		return fmt.Errorf("set assignment status: %w", err)
	}
	return nil
}

// CreateAssignment creates an assignment in status ACTIVE.
func (r *Repo) CreateAssignment(ctx context.Context, params CreateAssignmentParams) (Assignment, error) {
	query := `
		INSERT INTO assignments (id, lead_id, actor_id, status, expected_close_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, lead_id, actor_id, status, assigned_at, expected_close_at`

	var a Assignment
	err := r.pool.QueryRow(ctx, query,
		uuid.New(), params.LeadID, params.ActorID, domain.AssignmentActive, params.ExpectedCloseAt,
	).Scan(&a.ID, &a.LeadID, &a.ActorID, &a.Status, &a.AssignedAt, &a.ExpectedCloseAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Assignment{}, apperr.Validation("lead or actor does not exist")
		}
		return Assignment{}, fmt.Errorf("create assignment: %w", err)
	}
	return a, nil
}

// GetAssignment retrieves an assignment by ID.
func (r *Repo) GetAssignment(ctx context.Context, id uuid.UUID) (Assignment, error) {
	query := `
		SELECT id, lead_id, actor_id, status, assigned_at, expected_close_at
		FROM assignments
		WHERE id = $1`

	var a Assignment
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.LeadID, &a.ActorID, &a.Status, &a.AssignedAt, &a.ExpectedCloseAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, apperr.NotFound(assignmentNotFoundMessage)
		}
		return Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// ListStages returns the full stage history of an assignment, oldest first.
func (r *Repo) ListStages(ctx context.Context, assignmentID uuid.UUID) ([]PipelineStage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM pipeline_stages
		WHERE assignment_id = $1
		ORDER BY entered_at ASC`

	rows, err := r.pool.Query(ctx, query, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	return scanStages(rows)
}

// ListActivities returns the activity log of an assignment, newest first.
func (r *Repo) ListActivities(ctx context.Context, assignmentID uuid.UUID) ([]PipelineActivity, error) {
	query := `
		SELECT a.id, a.stage_id, a.activity_type, a.description, a.outcome,
			a.scheduled_at, a.completed_at, a.created_by, a.created_at
		FROM pipeline_activities a
		JOIN pipeline_stages s ON s.id = a.stage_id
		WHERE s.assignment_id = $1
		ORDER BY a.created_at DESC`

	rows, err := r.pool.Query(ctx, query, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var results []PipelineActivity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		results = append(results, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return results, nil
}

// StagesForActorSince returns all stage rows of the actor's assignments
// entered on or after since.
func (r *Repo) StagesForActorSince(ctx context.Context, actorID uuid.UUID, since time.Time) ([]PipelineStage, error) {
	query := `
		SELECT s.id, s.assignment_id, s.stage, s.entered_at, s.exited_at, s.duration_hours,
			s.probability, s.estimated_value_cents, s.next_action, s.next_action_at, s.notes, s.created_by
		FROM pipeline_stages s
		JOIN assignments a ON a.id = s.assignment_id
		WHERE a.actor_id = $1 AND s.entered_at >= $2
		ORDER BY s.entered_at ASC`

	rows, err := r.pool.Query(ctx, query, actorID, since)
	if err != nil {
		return nil, fmt.Errorf("list stages for actor: %w", err)
	}
	defer rows.Close()

	return scanStages(rows)
}

// FirstStageEntries returns the NEW_LEAD entry time per assignment.
func (r *Repo) FirstStageEntries(ctx context.Context, assignmentIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	if len(assignmentIDs) == 0 {
		return map[uuid.UUID]time.Time{}, nil
	}

	query := `
		SELECT assignment_id, MIN(entered_at)
		FROM pipeline_stages
		WHERE assignment_id = ANY($1) AND stage = $2
		GROUP BY assignment_id`

	rows, err := r.pool.Query(ctx, query, assignmentIDs, domain.StageNewLead)
	if err != nil {
		return nil, fmt.Errorf("first stage entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[uuid.UUID]time.Time, len(assignmentIDs))
	for rows.Next() {
		var id uuid.UUID
		var enteredAt time.Time
		if err := rows.Scan(&id, &enteredAt); err != nil {
			return nil, fmt.Errorf("scan first stage entry: %w", err)
		}
		entries[id] = enteredAt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate first stage entries: %w", err)
	}
	return entries, nil
}

// UpcomingActions returns open stages with a next action due before the
// deadline for the actor's assignments, ascending by due date.
func (r *Repo) UpcomingActions(ctx context.Context, actorID uuid.UUID, before time.Time) ([]UpcomingAction, error) {
	query := `
		SELECT s.id, s.assignment_id, s.stage, s.entered_at, s.exited_at, s.duration_hours,
			s.probability, s.estimated_value_cents, s.next_action, s.next_action_at, s.notes, s.created_by,
			a.lead_id
		FROM pipeline_stages s
		JOIN assignments a ON a.id = s.assignment_id
		WHERE a.actor_id = $1
			AND s.exited_at IS NULL
			AND s.next_action_at IS NOT NULL
			AND s.next_action_at <= $2
		ORDER BY s.next_action_at ASC`

	rows, err := r.pool.Query(ctx, query, actorID, before)
	if err != nil {
		return nil, fmt.Errorf("list upcoming actions: %w", err)
	}
	defer rows.Close()

	var results []UpcomingAction
	for rows.Next() {
		var s PipelineStage
		var leadID uuid.UUID
		err := rows.Scan(
			&s.ID, &s.AssignmentID, &s.Stage, &s.EnteredAt, &s.ExitedAt, &s.DurationHours,
			&s.Probability, &s.EstimatedValueCents, &s.NextAction, &s.NextActionAt, &s.Notes, &s.CreatedBy,
			&leadID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan upcoming action: %w", err)
		}
		results = append(results, UpcomingAction{Stage: s, AssignmentID: s.AssignmentID, LeadID: leadID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upcoming actions: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStage(row rowScanner) (PipelineStage, error) {
	var s PipelineStage
	err := row.Scan(
		&s.ID, &s.AssignmentID, &s.Stage, &s.EnteredAt, &s.ExitedAt, &s.DurationHours,
		&s.Probability, &s.EstimatedValueCents, &s.NextAction, &s.NextActionAt, &s.Notes, &s.CreatedBy,
	)
	return s, err
}

func scanStages(rows pgx.Rows) ([]PipelineStage, error) {
	var results []PipelineStage
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		results = append(results, stage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return results, nil
}

func scanActivity(row rowScanner) (PipelineActivity, error) {
	var a PipelineActivity
	err := row.Scan(
		&a.ID, &a.StageID, &a.ActivityType, &a.Description, &a.Outcome,
		&a.ScheduledAt, &a.CompletedAt, &a.CreatedBy, &a.CreatedAt,
	)
	return a, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
