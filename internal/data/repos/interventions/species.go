package interventions

import (
	"gorm.io/gorm"

	types "github.com/yungbote/reforest-backend/internal/domain"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type InterventionSpeciesRepo interface {
	Create(dbc dbctx.Context, rows []*types.InterventionSpecies) ([]*types.InterventionSpecies, error)
	GetByUID(dbc dbctx.Context, interventionID int64, uid string) (*types.InterventionSpecies, error)
	ListByIntervention(dbc dbctx.Context, interventionID int64) ([]*types.InterventionSpecies, error)
	SumCounts(dbc dbctx.Context, interventionID int64) (int, error)
}

type interventionSpeciesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInterventionSpeciesRepo(db *gorm.DB, baseLog *logger.Logger) InterventionSpeciesRepo {
	return &interventionSpeciesRepo{db: db, log: baseLog.With("repo", "InterventionSpeciesRepo")}
}

func (r *interventionSpeciesRepo) Create(dbc dbctx.Context, rows []*types.InterventionSpecies) ([]*types.InterventionSpecies, error) {
	if len(rows) == 0 {
		return []*types.InterventionSpecies{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByUID scopes the lookup to one intervention so a species UID from another
// intervention reads as missing.
func (r *interventionSpeciesRepo) GetByUID(dbc dbctx.Context, interventionID int64, uid string) (*types.InterventionSpecies, error) {
	if uid == "" || interventionID <= 0 {
		return nil, nil
	}
	var out types.InterventionSpecies
	err := dbc.DB(r.db).
		Where("intervention_id = ? AND uid = ?", interventionID, uid).
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

func (r *interventionSpeciesRepo) ListByIntervention(dbc dbctx.Context, interventionID int64) ([]*types.InterventionSpecies, error) {
	var out []*types.InterventionSpecies
	if err := dbc.DB(r.db).
		Where("intervention_id = ?", interventionID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interventionSpeciesRepo) SumCounts(dbc dbctx.Context, interventionID int64) (int, error) {
	var sum int64
	if err := dbc.DB(r.db).
		Model(&types.InterventionSpecies{}).
		Where("intervention_id = ?", interventionID).
		Select("COALESCE(SUM(species_count), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return int(sum), nil
}
