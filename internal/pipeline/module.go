// Package pipeline provides the sales pipeline bounded context module.
// It owns the per-assignment stage state machine, the append-only activity
// log with auto-advancement, and the actor-level metrics aggregation.
package pipeline

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"realty_pipeline_backend/internal/events"
	apphttp "realty_pipeline_backend/internal/http"
	"realty_pipeline_backend/internal/pipeline/handler"
	"realty_pipeline_backend/internal/pipeline/ports"
	"realty_pipeline_backend/internal/pipeline/repository"
	"realty_pipeline_backend/internal/pipeline/service"
	"realty_pipeline_backend/platform/logger"
	"realty_pipeline_backend/platform/validator"
)

// Module is the pipeline bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates and initializes the pipeline module with all its
// dependencies. The lead and actor readers come from the directory module.
func NewModule(pool *pgxpool.Pool, leads ports.LeadReader, actors ports.ActorReader, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leads, actors, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts pipeline routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	assignments := ctx.Protected.Group("/assignments")
	assignments.POST("", m.handler.CreateAssignment)
	assignments.GET("/:id", m.handler.GetAssignment)
	assignments.POST("/:id/pipeline", m.handler.InitializePipeline)
	assignments.POST("/:id/pipeline/transitions", m.handler.MoveStage)
	assignments.POST("/:id/activities", m.handler.AddActivity)
	assignments.GET("/:id/activities", m.handler.ListActivities)

	pipeline := ctx.Protected.Group("/pipeline")
	pipeline.GET("/metrics", m.handler.GetMetrics)
	pipeline.GET("/upcoming-actions", m.handler.GetUpcomingActions)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
