package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/reforest-backend/internal/data/repos/catalog"
	"github.com/yungbote/reforest-backend/internal/data/repos/interventions"
	"github.com/yungbote/reforest-backend/internal/data/repos/user"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo
type ProjectMemberRepo = user.ProjectMemberRepo

type ProjectRepo = catalog.ProjectRepo
type SiteRepo = catalog.SiteRepo
type ScientificSpeciesRepo = catalog.ScientificSpeciesRepo

type InterventionRepo = interventions.InterventionRepo
type InterventionSpeciesRepo = interventions.InterventionSpeciesRepo
type TreeRepo = interventions.TreeRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewProjectMemberRepo(db *gorm.DB, baseLog *logger.Logger) ProjectMemberRepo {
	return user.NewProjectMemberRepo(db, baseLog)
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return catalog.NewProjectRepo(db, baseLog)
}
func NewSiteRepo(db *gorm.DB, baseLog *logger.Logger) SiteRepo { return catalog.NewSiteRepo(db, baseLog) }
func NewScientificSpeciesRepo(db *gorm.DB, baseLog *logger.Logger) ScientificSpeciesRepo {
	return catalog.NewScientificSpeciesRepo(db, baseLog)
}

func NewInterventionRepo(db *gorm.DB, baseLog *logger.Logger) InterventionRepo {
	return interventions.NewInterventionRepo(db, baseLog)
}
func NewInterventionSpeciesRepo(db *gorm.DB, baseLog *logger.Logger) InterventionSpeciesRepo {
	return interventions.NewInterventionSpeciesRepo(db, baseLog)
}
func NewTreeRepo(db *gorm.DB, baseLog *logger.Logger) TreeRepo {
	return interventions.NewTreeRepo(db, baseLog)
}
