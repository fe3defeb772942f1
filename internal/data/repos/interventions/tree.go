package interventions

import (
	"gorm.io/gorm"

	types "github.com/yungbote/reforest-backend/internal/domain"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type TreeRepo interface {
	Create(dbc dbctx.Context, rows []*types.Tree) ([]*types.Tree, error)
	ListBySpecies(dbc dbctx.Context, speciesID int64) ([]*types.Tree, error)
	ListByIntervention(dbc dbctx.Context, interventionID int64) ([]*types.Tree, error)
	CountByIntervention(dbc dbctx.Context, interventionID int64) (int, error)
	UpdateBySpecies(dbc dbctx.Context, speciesID int64, updates map[string]interface{}) (int64, error)
	UpdateByIntervention(dbc dbctx.Context, interventionID int64, updates map[string]interface{}) (int64, error)
}

type treeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTreeRepo(db *gorm.DB, baseLog *logger.Logger) TreeRepo {
	return &treeRepo{db: db, log: baseLog.With("repo", "TreeRepo")}
}

func (r *treeRepo) Create(dbc dbctx.Context, rows []*types.Tree) ([]*types.Tree, error) {
	if len(rows) == 0 {
		return []*types.Tree{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListBySpecies returns live trees tracked against a species line, oldest first.
func (r *treeRepo) ListBySpecies(dbc dbctx.Context, speciesID int64) ([]*types.Tree, error) {
	var out []*types.Tree
	if err := dbc.DB(r.db).
		Where("intervention_species_id = ?", speciesID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *treeRepo) ListByIntervention(dbc dbctx.Context, interventionID int64) ([]*types.Tree, error) {
	var out []*types.Tree
	if err := dbc.DB(r.db).
		Where("intervention_id = ?", interventionID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *treeRepo) CountByIntervention(dbc dbctx.Context, interventionID int64) (int, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.Tree{}).
		Where("intervention_id = ?", interventionID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *treeRepo) UpdateBySpecies(dbc dbctx.Context, speciesID int64, updates map[string]interface{}) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Model(&types.Tree{}).
		Where("intervention_species_id = ?", speciesID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *treeRepo) UpdateByIntervention(dbc dbctx.Context, interventionID int64, updates map[string]interface{}) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Model(&types.Tree{}).
		Where("intervention_id = ?", interventionID).
		Updates(updates)
	return res.RowsAffected, res.Error
}
