package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/reforest-backend/internal/data/repos"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type Repos struct {
	User          repos.UserRepo
	ProjectMember repos.ProjectMemberRepo

	Project           repos.ProjectRepo
	Site              repos.SiteRepo
	ScientificSpecies repos.ScientificSpeciesRepo

	Intervention        repos.InterventionRepo
	InterventionSpecies repos.InterventionSpeciesRepo
	Tree                repos.TreeRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:                repos.NewUserRepo(db, log),
		ProjectMember:       repos.NewProjectMemberRepo(db, log),
		Project:             repos.NewProjectRepo(db, log),
		Site:                repos.NewSiteRepo(db, log),
		ScientificSpecies:   repos.NewScientificSpeciesRepo(db, log),
		Intervention:        repos.NewInterventionRepo(db, log),
		InterventionSpecies: repos.NewInterventionSpeciesRepo(db, log),
		Tree:                repos.NewTreeRepo(db, log),
	}
}
