package catalog

import (
	"gorm.io/gorm"

	types "github.com/yungbote/reforest-backend/internal/domain"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type ProjectRepo interface {
	Create(dbc dbctx.Context, rows []*types.Project) ([]*types.Project, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Project, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (r *projectRepo) Create(dbc dbctx.Context, rows []*types.Project) ([]*types.Project, error) {
	if len(rows) == 0 {
		return []*types.Project{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *projectRepo) GetByID(dbc dbctx.Context, id int64) (*types.Project, error) {
	var out types.Project
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}
