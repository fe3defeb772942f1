package catalog

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type SiteRepo interface {
	Create(dbc dbctx.Context, rows []*types.Site) ([]*types.Site, error)
	GetByUID(dbc dbctx.Context, projectID int64, uid string) (*types.Site, error)
	// ResolveSite returns a CodeNotFound aggregate error for unknown sites.
	ResolveSite(ctx context.Context, projectID int64, uid string) (int64, error)
}

type siteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSiteRepo(db *gorm.DB, baseLog *logger.Logger) SiteRepo {
	return &siteRepo{db: db, log: baseLog.With("repo", "SiteRepo")}
}

func (r *siteRepo) Create(dbc dbctx.Context, rows []*types.Site) ([]*types.Site, error) {
	if len(rows) == 0 {
		return []*types.Site{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *siteRepo) GetByUID(dbc dbctx.Context, projectID int64, uid string) (*types.Site, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, nil
	}
	var out types.Site
	if err := dbc.DB(r.db).
		Where("project_id = ? AND uid = ?", projectID, uid).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}

func (r *siteRepo) ResolveSite(ctx context.Context, projectID int64, uid string) (int64, error) {
	const op = "SiteDirectory.ResolveSite"
	site, err := r.GetByUID(dbctx.Context{Ctx: ctx}, projectID, uid)
	if err != nil {
		return 0, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if site == nil {
		return 0, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("site %q not found", uid), nil)
	}
	return site.ID, nil
}
