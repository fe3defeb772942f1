package aggregates

import (
	"time"

	"github.com/yungbote/reforest-backend/internal/data/repos"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
)

type InterventionAggregateDeps struct {
	Base BaseDeps

	Interventions repos.InterventionRepo
	Species       repos.InterventionSpeciesRepo
	Trees         repos.TreeRepo

	Sites   domainagg.SiteDirectory
	Catalog domainagg.SpeciesCatalog
	Members domainagg.ProjectMembership
	Users   domainagg.UserDirectory

	IDs   IDGenerator
	Clock func() time.Time
}

type interventionAggregate struct {
	deps      InterventionAggregateDeps
	integrity IntegrityEnforcer
}

func NewInterventionAggregate(deps InterventionAggregateDeps) domainagg.InterventionAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.IDs == nil {
		deps.IDs = defaultIDGenerator()
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &interventionAggregate{
		deps: deps,
		integrity: IntegrityEnforcer{
			Interventions: deps.Interventions,
			Species:       deps.Species,
			Trees:         deps.Trees,
			CAS:           deps.Base.CASGuard,
			Now:           deps.Clock,
		},
	}
}

func (a *interventionAggregate) now() time.Time { return a.deps.Clock().UTC() }

func (a *interventionAggregate) reposConfigured() bool {
	return a.deps.Interventions != nil && a.deps.Species != nil && a.deps.Trees != nil
}
