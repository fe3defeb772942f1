package aggregates

import (
	"context"
	"strings"

	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/normalization"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
)

// Create validates and normalizes the whole record before touching storage,
// then writes intervention, species lines and tree in that order in one
// transaction.
func (a *interventionAggregate) Create(ctx context.Context, in domainagg.CreateInterventionInput) (domainagg.CreateInterventionResult, error) {
	const op = "Interventions.Create"
	var out domainagg.CreateInterventionResult
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "intervention repositories not configured", nil)
	}
	if in.ProjectID <= 0 || in.UserID <= 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "project_id and user_id are required", nil)
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		replayed, err := a.replay(ctx, op, in.ProjectID, key)
		if err != nil || replayed != nil {
			if replayed != nil {
				out = *replayed
			}
			return out, err
		}
	}

	d, err := a.draft(op, draftInput{
		Type:           in.Type,
		StrictType:     true,
		ProjectID:      in.ProjectID,
		UserID:         in.UserID,
		IdempotencyKey: key,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		Geometry:       in.Geometry,
		TotalTreeCount: in.TotalTreeCount,
		Species:        in.Species,
		Description:    in.Description,
		Metadata:       in.Metadata,
	})
	if err != nil {
		return out, err
	}

	if err := normalization.ResolveSpeciesReferences(ctx, a.deps.Catalog, d.lines()); err != nil {
		return out, err
	}
	names, err := a.speciesNames(ctx, op, normalization.ReferencedSpeciesIDs(d.lines()))
	if err != nil {
		return out, err
	}
	d.applySpeciesNames(names)

	if uid := strings.TrimSpace(in.SiteUID); uid != "" {
		if a.deps.Sites == nil {
			return out, domainagg.NewError(domainagg.CodeInternal, op, "site directory not configured", nil)
		}
		siteID, err := a.deps.Sites.ResolveSite(ctx, in.ProjectID, uid)
		if err != nil {
			return out, err
		}
		d.Intervention.SiteID = &siteID
	}

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if _, err := a.deps.Interventions.Create(dbc, []*types.Intervention{d.Intervention}); err != nil {
			return err
		}
		d.bindIntervention(d.Intervention.ID)
		if _, err := a.deps.Species.Create(dbc, d.Species); err != nil {
			return err
		}
		if d.Tree == nil {
			return nil
		}
		d.bindTreeSpecies()
		_, err := a.deps.Trees.Create(dbc, []*types.Tree{d.Tree})
		return err
	})
	if err != nil {
		// A concurrent request with the same key may have committed first.
		if key != "" && domainagg.IsCode(err, domainagg.CodeConflict) && domainagg.ReasonOf(err) != domainagg.ReasonDuplicateUID {
			if replayed, rerr := a.replay(ctx, op, in.ProjectID, key); rerr == nil && replayed != nil {
				return *replayed, nil
			}
		}
		return out, err
	}

	a.deps.Base.Log.Debug("Intervention created",
		"intervention_uid", d.Intervention.UID,
		"type", d.Intervention.Type,
		"project_id", d.Intervention.ProjectID,
		"species_lines", len(d.Species),
		"tree", d.Tree != nil,
	)
	out.Intervention = d.Intervention
	out.Species = d.Species
	out.Tree = d.Tree
	return out, nil
}

// replay returns the stored intervention for an idempotency key, nil when the
// key is unused.
func (a *interventionAggregate) replay(ctx context.Context, op string, projectID int64, key string) (*domainagg.CreateInterventionResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	inv, err := a.deps.Interventions.GetByIdempotencyKey(dbc, projectID, key)
	if err != nil {
		return nil, MapError(op, err)
	}
	if inv == nil {
		return nil, nil
	}
	species, err := a.deps.Species.ListByIntervention(dbc, inv.ID)
	if err != nil {
		return nil, MapError(op, err)
	}
	trees, err := a.deps.Trees.ListByIntervention(dbc, inv.ID)
	if err != nil {
		return nil, MapError(op, err)
	}
	out := &domainagg.CreateInterventionResult{
		Intervention: inv,
		Species:      species,
		Replayed:     true,
	}
	if len(trees) > 0 {
		out.Tree = trees[0]
	}
	return out, nil
}

// speciesNames fetches the scientific name of every referenced catalog entry.
func (a *interventionAggregate) speciesNames(ctx context.Context, op string, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	if a.deps.Catalog == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "species catalog not configured", nil)
	}
	var missing []int64
	for _, id := range ids {
		sp, err := a.deps.Catalog.Get(ctx, id)
		if err != nil {
			return nil, MapError(op, err)
		}
		if sp == nil {
			missing = append(missing, id)
			continue
		}
		names[id] = sp.ScientificName
	}
	if err := normalization.UnknownSpeciesError(missing); err != nil {
		return nil, err
	}
	return names, nil
}
