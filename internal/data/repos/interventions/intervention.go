package interventions

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/reforest-backend/internal/domain"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type InterventionRepo interface {
	Create(dbc dbctx.Context, rows []*types.Intervention) ([]*types.Intervention, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Intervention, error)
	GetByUID(dbc dbctx.Context, uid string) (*types.Intervention, error)
	GetByUIDs(dbc dbctx.Context, uids []string) ([]*types.Intervention, error)
	GetByIdempotencyKey(dbc dbctx.Context, projectID int64, key string) (*types.Intervention, error)
	UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error
	PurgeByIDs(dbc dbctx.Context, ids []int64) error
}

type interventionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInterventionRepo(db *gorm.DB, baseLog *logger.Logger) InterventionRepo {
	return &interventionRepo{db: db, log: baseLog.With("repo", "InterventionRepo")}
}

// Create inserts rows in one statement. Species are written separately.
func (r *interventionRepo) Create(dbc dbctx.Context, rows []*types.Intervention) ([]*types.Intervention, error) {
	if len(rows) == 0 {
		return []*types.Intervention{}, nil
	}
	if err := dbc.DB(r.db).Omit(clause.Associations).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *interventionRepo) GetByID(dbc dbctx.Context, id int64) (*types.Intervention, error) {
	if id <= 0 {
		return nil, nil
	}
	var out types.Intervention
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}

func (r *interventionRepo) GetByUID(dbc dbctx.Context, uid string) (*types.Intervention, error) {
	if uid == "" {
		return nil, nil
	}
	var out types.Intervention
	if err := dbc.DB(r.db).Where("uid = ?", uid).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}

func (r *interventionRepo) GetByUIDs(dbc dbctx.Context, uids []string) ([]*types.Intervention, error) {
	var out []*types.Intervention
	if len(uids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("uid IN ?", uids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interventionRepo) GetByIdempotencyKey(dbc dbctx.Context, projectID int64, key string) (*types.Intervention, error) {
	if key == "" {
		return nil, nil
	}
	var out types.Intervention
	err := dbc.DB(r.db).
		Where("project_id = ? AND idempotency_key = ?", projectID, key).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}

func (r *interventionRepo) UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error {
	if id <= 0 || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.Intervention{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// PurgeByIDs hard-deletes interventions with their species lines and trees,
// releasing their uid, hid and idempotency_key for reuse. Only for rows that
// were never reported as persisted.
func (r *interventionRepo) PurgeByIDs(dbc dbctx.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		tx = tx.Unscoped()
		if err := tx.Where("intervention_id IN ?", ids).Delete(&types.Tree{}).Error; err != nil {
			return err
		}
		if err := tx.Where("intervention_id IN ?", ids).Delete(&types.InterventionSpecies{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&types.Intervention{}).Error
	})
}
