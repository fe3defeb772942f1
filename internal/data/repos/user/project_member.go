package user

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/reforest-backend/internal/domain"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type ProjectMemberRepo interface {
	Upsert(dbc dbctx.Context, member *types.ProjectMember) error
	ListByProject(dbc dbctx.Context, projectID int64) ([]*types.ProjectMember, error)
	// GetRole returns "" when the user is not a member of the project.
	GetRole(ctx context.Context, projectID, userID int64) (string, error)
}

type projectMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectMemberRepo(db *gorm.DB, baseLog *logger.Logger) ProjectMemberRepo {
	return &projectMemberRepo{db: db, log: baseLog.With("repo", "ProjectMemberRepo")}
}

func (r *projectMemberRepo) Upsert(dbc dbctx.Context, member *types.ProjectMember) error {
	if member == nil {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"project_role", "updated_at"}),
		}).
		Create(member).Error
}

func (r *projectMemberRepo) ListByProject(dbc dbctx.Context, projectID int64) ([]*types.ProjectMember, error) {
	var out []*types.ProjectMember
	if err := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectMemberRepo) GetRole(ctx context.Context, projectID, userID int64) (string, error) {
	var roles []string
	if err := r.db.WithContext(ctx).
		Model(&types.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Limit(1).
		Pluck("project_role", &roles).Error; err != nil {
		return "", err
	}
	if len(roles) == 0 {
		return "", nil
	}
	return roles[0], nil
}
