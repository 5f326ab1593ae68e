package api

import (
	"github.com/ignite/audience-estimator/internal/audience"
	"github.com/ignite/audience-estimator/internal/estimation"
	"github.com/ignite/audience-estimator/internal/queryparser"
)

// Handlers contains HTTP handlers
type Handlers struct {
	engine    *estimation.Engine
	builder   *queryparser.Builder
	audiences *audience.Service
	orgs      *OrgResolver
	health    *HealthChecker
}

// NewHandlers creates a new handlers instance. audiences may be nil, in which
// case the saved-audience routes are not mounted.
func NewHandlers(engine *estimation.Engine, builder *queryparser.Builder, audiences *audience.Service, health *HealthChecker) *Handlers {
	if health == nil {
		health = NewHealthChecker(nil, nil, builder.Parser().Name())
	}
	return &Handlers{
		engine:    engine,
		builder:   builder,
		audiences: audiences,
		orgs:      NewOrgResolver(),
		health:    health,
	}
}
