package catalog

import (
	"context"

	"gorm.io/gorm"

	types "github.com/yungbote/reforest-backend/internal/domain"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

// ScientificSpeciesRepo backs the species catalog lookups.
type ScientificSpeciesRepo interface {
	Create(dbc dbctx.Context, rows []*types.ScientificSpecies) ([]*types.ScientificSpecies, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.ScientificSpecies, error)
	Missing(ctx context.Context, ids []int64) ([]int64, error)
	Get(ctx context.Context, id int64) (*types.ScientificSpecies, error)
}

type scientificSpeciesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScientificSpeciesRepo(db *gorm.DB, baseLog *logger.Logger) ScientificSpeciesRepo {
	return &scientificSpeciesRepo{db: db, log: baseLog.With("repo", "ScientificSpeciesRepo")}
}

func (r *scientificSpeciesRepo) Create(dbc dbctx.Context, rows []*types.ScientificSpecies) ([]*types.ScientificSpecies, error) {
	if len(rows) == 0 {
		return []*types.ScientificSpecies{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *scientificSpeciesRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.ScientificSpecies, error) {
	var out []*types.ScientificSpecies
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Missing reports which ids are absent or soft-deleted, preserving input order.
func (r *scientificSpeciesRepo) Missing(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []int64
	if err := r.db.WithContext(ctx).
		Model(&types.ScientificSpecies{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	have := make(map[int64]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	var missing []int64
	seen := map[int64]struct{}{}
	for _, id := range ids {
		if _, ok := have[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	if len(missing) > 0 {
		r.log.Debug("Unknown species referenced", "missing", missing)
	}
	return missing, nil
}

func (r *scientificSpeciesRepo) Get(ctx context.Context, id int64) (*types.ScientificSpecies, error) {
	rows, err := r.GetByIDs(dbctx.Context{Ctx: ctx}, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
