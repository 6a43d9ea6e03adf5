package service

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"realty_pipeline_backend/internal/pipeline/ports"
	"realty_pipeline_backend/internal/pipeline/repository"
)

// AssignmentDetail is an assignment with its full stage history, activity
// log, and the lead/actor display fields.
type AssignmentDetail struct {
	Assignment repository.Assignment
	Lead       ports.LeadSummary
	Actor      ports.ActorSummary
	Stages     []repository.PipelineStage
	Activities []repository.PipelineActivity
}

// GetAssignmentDetail loads the assignment and fans out the history and
// directory lookups concurrently.
func (s *Service) GetAssignmentDetail(ctx context.Context, assignmentID uuid.UUID) (AssignmentDetail, error) {
	assignment, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return AssignmentDetail{}, err
	}

	detail := AssignmentDetail{Assignment: assignment}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stages, err := s.store.ListStages(gctx, assignment.ID)
		if err != nil {
			return err
		}
		detail.Stages = stages
		return nil
	})
	g.Go(func() error {
		activities, err := s.store.ListActivities(gctx, assignment.ID)
		if err != nil {
			return err
		}
		detail.Activities = activities
		return nil
	})
	if s.leads != nil {
		g.Go(func() error {
			lead, err := s.leads.GetLeadSummary(gctx, assignment.LeadID)
			if err != nil {
				return err
			}
			detail.Lead = lead
			return nil
		})
	}
	if s.actors != nil {
		g.Go(func() error {
			actor, err := s.actors.GetActorSummary(gctx, assignment.ActorID)
			if err != nil {
				return err
			}
			detail.Actor = actor
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return AssignmentDetail{}, err
	}
	return detail, nil
}

// ListActivities returns the assignment's activity log, newest first.
func (s *Service) ListActivities(ctx context.Context, assignmentID uuid.UUID) ([]repository.PipelineActivity, error) {
	if _, err := s.store.GetAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}
	return s.store.ListActivities(ctx, assignmentID)
}
