package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/normalization"
	"github.com/yungbote/reforest-backend/internal/observability"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
)

const (
	StageValidation    = "validation"
	StageInterventions = "interventions"
	StageSpecies       = "species"
	StageTrees         = "trees"
)

// bulkRow tracks one submitted record through the ingest stages.
type bulkRow struct {
	index int
	uid   string
	draft *recordDraft
	err   string
}

func (r *bulkRow) fail(stage string, err error) {
	if r.err != "" {
		return
	}
	msg := ErrorMessage(err)
	if stage != StageValidation && stage != StageInterventions {
		msg = fmt.Sprintf("%s insert failed: %s", stage, msg)
	}
	r.err = msg
}

// sharedLookups holds the results of the once-per-batch preconditions.
type sharedLookups struct {
	siteID  *int64
	missing map[int64]struct{}
	names   map[int64]string
}

// BulkIngest never wraps the batch in one transaction. Each stage inserts in
// one statement and falls back to per-row inserts; later stages only see rows
// whose earlier stages succeeded. Interventions that lose a species line or
// their tree are soft-deleted and reported as failed.
func (a *interventionAggregate) BulkIngest(ctx context.Context, in domainagg.BulkIngestInput) (domainagg.BulkIngestResult, error) {
	const op = "Interventions.BulkIngest"
	var out domainagg.BulkIngestResult
	if len(in.Records) == 0 {
		return out, nil
	}
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "intervention repositories not configured", nil)
	}
	if in.ProjectID <= 0 || in.UserID <= 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "project_id and user_id are required", nil)
	}

	start := time.Now()
	hooks := a.deps.Base.Hooks
	ctx, span := observability.StartSpan(ctx, op, attribute.Int("bulk.records", len(in.Records)))
	defer span.End()

	shared, err := a.bulkPreconditions(ctx, op, in)
	if err != nil {
		status := aggregateErrorStatus(err)
		observability.FailSpan(span, err, status)
		hooks.ObserveOperation(op, status, time.Since(start))
		return out, err
	}

	rows := a.prevalidate(op, in, shared)
	pending := make([]*bulkRow, 0, len(rows))
	for _, r := range rows {
		if r.err == "" {
			pending = append(pending, r)
		}
	}
	hooks.ObserveBatch(StageValidation, len(pending), len(rows)-len(pending), false)

	passed, usedFallback := a.writeStages(ctx, op, pending)
	out.UsedFallback = usedFallback

	for _, r := range rows {
		if r.err != "" {
			out.FailedInterventionUID = append(out.FailedInterventionUID, domainagg.BulkFailure{UID: r.uid, Error: r.err})
			continue
		}
		if passed[r] {
			out.SuccessfulInterventions = append(out.SuccessfulInterventions, r.uid)
		}
	}
	out.TotalProcessed = len(rows)
	out.Passed = len(out.SuccessfulInterventions)
	out.Failed = len(out.FailedInterventionUID)

	span.SetAttributes(
		attribute.Int("bulk.passed", out.Passed),
		attribute.Int("bulk.failed", out.Failed),
		attribute.Bool("bulk.used_fallback", out.UsedFallback),
	)
	status := "success"
	if out.Failed > 0 {
		status = "partial"
	}
	hooks.ObserveOperation(op, status, time.Since(start))
	a.deps.Base.Log.Info("Bulk ingest finished",
		"project_id", in.ProjectID,
		"total", out.TotalProcessed,
		"passed", out.Passed,
		"failed", out.Failed,
		"used_fallback", out.UsedFallback,
	)
	return out, nil
}

// bulkPreconditions resolves the site and checks every referenced catalog id
// once for the whole batch.
func (a *interventionAggregate) bulkPreconditions(ctx context.Context, op string, in domainagg.BulkIngestInput) (sharedLookups, error) {
	shared := sharedLookups{missing: map[int64]struct{}{}, names: map[int64]string{}}
	g, gctx := errgroup.WithContext(ctx)

	if uid := strings.TrimSpace(in.SiteUID); uid != "" {
		if a.deps.Sites == nil {
			return shared, domainagg.NewError(domainagg.CodeInternal, op, "site directory not configured", nil)
		}
		g.Go(func() error {
			id, err := a.deps.Sites.ResolveSite(gctx, in.ProjectID, uid)
			if err != nil {
				return err
			}
			shared.siteID = &id
			return nil
		})
	}

	groups := make([][]domainagg.SpeciesLineInput, 0, len(in.Records))
	for _, rec := range in.Records {
		groups = append(groups, normalization.NormalizeSpeciesLines(rec.Species))
	}
	ids := normalization.ReferencedSpeciesIDs(groups...)
	if len(ids) > 0 {
		if a.deps.Catalog == nil {
			return shared, domainagg.NewError(domainagg.CodeInternal, op, "species catalog not configured", nil)
		}
		g.Go(func() error {
			missing, err := a.deps.Catalog.Missing(gctx, ids)
			if err != nil {
				return MapError(op, err)
			}
			for _, id := range missing {
				shared.missing[id] = struct{}{}
			}
			for _, id := range ids {
				if _, gone := shared.missing[id]; gone {
					continue
				}
				sp, err := a.deps.Catalog.Get(gctx, id)
				if err != nil {
					return MapError(op, err)
				}
				if sp == nil {
					shared.missing[id] = struct{}{}
					continue
				}
				shared.names[id] = sp.ScientificName
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return shared, err
	}
	return shared, nil
}

// prevalidate drafts every record and fails the ones that cannot be written.
// The type is left to the row hook so a bad type fails its insert.
func (a *interventionAggregate) prevalidate(op string, in domainagg.BulkIngestInput, shared sharedLookups) []*bulkRow {
	rows := make([]*bulkRow, 0, len(in.Records))
	seen := make(map[string]struct{}, len(in.Records))
	for i, rec := range in.Records {
		r := &bulkRow{index: i, uid: strings.TrimSpace(rec.UID)}
		if r.uid == "" {
			r.uid = a.deps.IDs.UID(PrefixIntervention)
		}
		rows = append(rows, r)

		if _, dup := seen[r.uid]; dup {
			r.fail(StageValidation, domainagg.NewError(domainagg.CodeValidation, op, "duplicate uid in batch", nil))
			continue
		}
		seen[r.uid] = struct{}{}

		d, err := a.draft(op, draftInput{
			UID:            r.uid,
			Type:           rec.Type,
			ProjectID:      in.ProjectID,
			UserID:         in.UserID,
			SiteID:         shared.siteID,
			StartDate:      rec.StartDate,
			EndDate:        rec.EndDate,
			Geometry:       rec.Geometry,
			TotalTreeCount: rec.TotalTreeCount,
			Species:        rec.Species,
			Description:    rec.Description,
		})
		if err != nil {
			r.fail(StageValidation, err)
			continue
		}

		var missing []int64
		for _, id := range normalization.ReferencedSpeciesIDs(d.lines()) {
			if _, gone := shared.missing[id]; gone {
				missing = append(missing, id)
			}
		}
		if err := normalization.UnknownSpeciesError(missing); err != nil {
			r.fail(StageValidation, err)
			continue
		}
		d.applySpeciesNames(shared.names)
		r.draft = d
	}
	return rows
}

// writeStages runs the three insert stages and returns the rows that ended up
// fully persisted.
func (a *interventionAggregate) writeStages(ctx context.Context, op string, pending []*bulkRow) (map[*bulkRow]bool, bool) {
	passed := map[*bulkRow]bool{}
	if len(pending) == 0 {
		return passed, false
	}
	dbc := dbctx.Context{Ctx: ctx}
	log := a.deps.Base.Log.With("op", op)
	usedFallback := false

	// Interventions.
	invWriter := BatchWriter[*bulkRow]{
		Stage: StageInterventions,
		WriteBatch: func(ctx context.Context, items []*bulkRow) error {
			batch := make([]*types.Intervention, 0, len(items))
			for _, r := range items {
				batch = append(batch, r.draft.Intervention)
			}
			_, err := a.deps.Interventions.Create(dbctx.Context{Ctx: ctx}, batch)
			return err
		},
		Reset: func(r *bulkRow) {
			r.draft.Intervention.ID = 0
			r.draft.Intervention.CreatedAt = time.Time{}
			r.draft.Intervention.UpdatedAt = time.Time{}
		},
		Hooks: a.deps.Base.Hooks,
		Log:   log,
	}
	invRes := invWriter.WriteAll(ctx, pending)
	usedFallback = usedFallback || invRes.UsedFallback
	for _, f := range invRes.Failed {
		f.Item.fail(StageInterventions, MapError(op, f.Err))
	}

	// Species lines of confirmed interventions.
	owner := map[*types.InterventionSpecies]*bulkRow{}
	var lines []*types.InterventionSpecies
	for _, r := range invRes.Succeeded {
		r.draft.bindIntervention(r.draft.Intervention.ID)
		for _, sp := range r.draft.Species {
			owner[sp] = r
			lines = append(lines, sp)
		}
	}
	spWriter := BatchWriter[*types.InterventionSpecies]{
		Stage: StageSpecies,
		WriteBatch: func(ctx context.Context, items []*types.InterventionSpecies) error {
			_, err := a.deps.Species.Create(dbctx.Context{Ctx: ctx}, items)
			return err
		},
		Reset: func(sp *types.InterventionSpecies) {
			sp.ID = 0
			sp.CreatedAt = time.Time{}
			sp.UpdatedAt = time.Time{}
		},
		Hooks: a.deps.Base.Hooks,
		Log:   log,
	}
	spRes := spWriter.WriteAll(ctx, lines)
	usedFallback = usedFallback || spRes.UsedFallback
	for _, f := range spRes.Failed {
		owner[f.Item].fail(StageSpecies, MapError(op, f.Err))
	}

	// Trees of single-tree interventions whose species lines all landed.
	treeOwner := map[*types.Tree]*bulkRow{}
	var trees []*types.Tree
	for _, r := range invRes.Succeeded {
		if r.err != "" || r.draft.Tree == nil {
			continue
		}
		r.draft.bindTreeSpecies()
		treeOwner[r.draft.Tree] = r
		trees = append(trees, r.draft.Tree)
	}
	treeWriter := BatchWriter[*types.Tree]{
		Stage: StageTrees,
		WriteBatch: func(ctx context.Context, items []*types.Tree) error {
			_, err := a.deps.Trees.Create(dbctx.Context{Ctx: ctx}, items)
			return err
		},
		Reset: func(t *types.Tree) {
			t.ID = 0
			t.CreatedAt = time.Time{}
			t.UpdatedAt = time.Time{}
		},
		Hooks: a.deps.Base.Hooks,
		Log:   log,
	}
	treeRes := treeWriter.WriteAll(ctx, trees)
	usedFallback = usedFallback || treeRes.UsedFallback
	for _, f := range treeRes.Failed {
		treeOwner[f.Item].fail(StageTrees, MapError(op, f.Err))
	}

	// Interventions left without their full composition are purged so the
	// caller can resubmit the same uid.
	var orphaned []int64
	for _, r := range invRes.Succeeded {
		if r.err != "" {
			orphaned = append(orphaned, r.draft.Intervention.ID)
			continue
		}
		passed[r] = true
	}
	if len(orphaned) > 0 {
		if err := a.deps.Interventions.PurgeByIDs(dbc, orphaned); err != nil {
			log.Error("Failed to purge partially ingested interventions", "ids", orphaned, "error", err)
		}
	}
	return passed, usedFallback
}
