package domain

import (
	"github.com/yungbote/reforest-backend/internal/domain/catalog"
	"github.com/yungbote/reforest-backend/internal/domain/interventions"
	"github.com/yungbote/reforest-backend/internal/domain/user"
)

type InterventionType = interventions.InterventionType
type InterventionStatus = interventions.Status
type TreeStatus = interventions.TreeStatus

const (
	TypeSingleTreeRegistration = interventions.TypeSingleTreeRegistration
	TypeMultiTreeRegistration  = interventions.TypeMultiTreeRegistration
	TypeDirectSeeding          = interventions.TypeDirectSeeding
	TypeEnrichmentPlanting     = interventions.TypeEnrichmentPlanting
	TypeSampleTreeRegistration = interventions.TypeSampleTreeRegistration

	StatusPlanned   = interventions.StatusPlanned
	StatusActive    = interventions.StatusActive
	StatusCompleted = interventions.StatusCompleted
	StatusFailed    = interventions.StatusFailed
	StatusOnHold    = interventions.StatusOnHold
	StatusCancelled = interventions.StatusCancelled
)

type Intervention = interventions.Intervention
type InterventionSpecies = interventions.InterventionSpecies
type Tree = interventions.Tree

type ScientificSpecies = catalog.ScientificSpecies
type Project = catalog.Project
type Site = catalog.Site

type User = user.User
type ProjectMember = user.ProjectMember

// Models returns every persisted model in migration order.
func Models() []any {
	return []any{
		&User{},
		&Project{},
		&ProjectMember{},
		&Site{},
		&ScientificSpecies{},
		&Intervention{},
		&InterventionSpecies{},
		&Tree{},
	}
}
