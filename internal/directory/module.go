// Package directory provides the actor and lead directory module. The
// pipeline module consumes it through narrow reader ports to decorate its
// responses; the write paths exist for registering actors and leads handed
// over by the acquisition system.
package directory

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"realty_pipeline_backend/internal/directory/handler"
	"realty_pipeline_backend/internal/directory/repository"
	apphttp "realty_pipeline_backend/internal/http"
	"realty_pipeline_backend/platform/validator"
)

// Module is the directory module implementing http.Module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repo
}

// NewModule creates and initializes the directory module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	h := handler.New(repo, val)

	return &Module{
		handler: h,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "directory"
}

// Repository returns the directory repository, which satisfies the pipeline
// module's LeadReader and ActorReader ports.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

// RegisterRoutes mounts directory routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/actors", m.handler.CreateActor)
	ctx.Protected.GET("/actors/:id", m.handler.GetActor)
	ctx.Protected.POST("/leads", m.handler.CreateLead)
	ctx.Protected.GET("/leads/:id", m.handler.GetLead)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
