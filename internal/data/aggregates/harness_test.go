package aggregates_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/reforest-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/reforest-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/reforest-backend/internal/data/repos"
	repotestutil "github.com/yungbote/reforest-backend/internal/data/repos/testutil"
	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type harness struct {
	ctx     context.Context
	runner  aggregates.TxRunner
	log     *logger.Logger
	db      *gorm.DB
	hooks   *aggtestutil.HooksRecorder
	agg     domainagg.InterventionAggregate
	repos   harnessRepos
	owner   *types.User
	project *types.Project
	site    *types.Site
}

type harnessRepos struct {
	interventions repos.InterventionRepo
	species       repos.InterventionSpeciesRepo
	trees         repos.TreeRepo
}

func newHarness(t *testing.T, runner aggregates.TxRunner) *harness {
	t.Helper()
	ctx := context.Background()
	db := repotestutil.DB(t)
	log := repotestutil.Logger(t)

	owner := repotestutil.SeedUser(t, ctx, db, "owner@example.com")
	project := repotestutil.SeedProject(t, ctx, db, owner.ID)
	site := repotestutil.SeedSite(t, ctx, db, project.ID)

	h := &harness{
		ctx:     ctx,
		runner:  runner,
		log:     log,
		db:      db,
		hooks:   &aggtestutil.HooksRecorder{},
		owner:   owner,
		project: project,
		site:    site,
		repos: harnessRepos{
			interventions: repos.NewInterventionRepo(db, log),
			species:       repos.NewInterventionSpeciesRepo(db, log),
			trees:         repos.NewTreeRepo(db, log),
		},
	}
	h.rewire()
	return h
}

// rewire rebuilds the aggregate over the current h.repos.
func (h *harness) rewire() {
	log := h.log
	h.agg = aggregates.NewInterventionAggregate(aggregates.InterventionAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:     h.db,
			Log:    log,
			Runner: h.runner,
			Hooks:  h.hooks,
		},
		Interventions: h.repos.interventions,
		Species:       h.repos.species,
		Trees:         h.repos.trees,
		Sites:         repos.NewSiteRepo(h.db, log),
		Catalog:       repos.NewScientificSpeciesRepo(h.db, log),
		Members:       repos.NewProjectMemberRepo(h.db, log),
		Users:         repos.NewUserRepo(h.db, log),
	})
}

func (h *harness) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := h.db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func pointFeature(lon, lat float64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[%v,%v]}}`, lon, lat))
}

func polygon() json.RawMessage {
	return json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}`)
}

func ptr[T any](v T) *T { return &v }
