package aggregates

import (
	"context"
	"fmt"
	"strings"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/domain/catalog"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
)

func (a *interventionAggregate) ReconcileSpecies(ctx context.Context, in domainagg.ReconcileSpeciesInput) (domainagg.ReconcileSpeciesResult, error) {
	const op = "Interventions.ReconcileSpecies"
	var out domainagg.ReconcileSpeciesResult
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "intervention repositories not configured", nil)
	}
	invUID := strings.TrimSpace(in.InterventionUID)
	lineUID := strings.TrimSpace(in.SpeciesUID)
	if invUID == "" || lineUID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "intervention_uid and species_uid are required", nil)
	}
	if in.ScientificSpeciesID == nil && in.SpeciesCount == nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "nothing to reconcile", nil)
	}
	if in.SpeciesCount != nil && *in.SpeciesCount < 0 {
		return out, domainagg.NewReasonError(domainagg.CodeValidation, op, domainagg.ReasonInvalidSpeciesCount, "species count must not be negative", nil)
	}
	if in.ScientificSpeciesID != nil && a.deps.Catalog == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "species catalog not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		inv, err := a.deps.Interventions.GetByUID(dbc, invUID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("intervention %q not found", invUID), nil)
		}
		line, err := a.deps.Species.GetByUID(dbc, inv.ID, lineUID)
		if err != nil {
			return err
		}
		if line == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("intervention species %q not found", lineUID), nil)
		}

		intent := SpeciesIntent{Count: in.SpeciesCount}
		if in.ScientificSpeciesID != nil {
			sp, err := a.lookupSpecies(dbc.Ctx, op, *in.ScientificSpeciesID)
			if err != nil {
				return err
			}
			intent.Species = sp
		}

		plan, err := a.integrity.PlanSpeciesChange(dbc, op, inv, line, intent)
		if err != nil {
			return err
		}
		n, err := a.integrity.Apply(dbc, plan)
		if err != nil {
			return err
		}

		updated, err := a.deps.Species.GetByUID(dbc, inv.ID, lineUID)
		if err != nil {
			return err
		}
		out = domainagg.ReconcileSpeciesResult{
			InterventionID:  inv.ID,
			InterventionUID: inv.UID,
			ProjectID:       inv.ProjectID,
			Species:         updated,
			TreesUpdated:    n,
			ChangedFields:   plan.ChangedFields,
		}
		return nil
	})
	if err != nil {
		return domainagg.ReconcileSpeciesResult{}, err
	}

	a.deps.Base.Log.Debug("Species line reconciled",
		"intervention_uid", out.InterventionUID,
		"species_uid", lineUID,
		"changed_fields", out.ChangedFields,
		"trees_updated", out.TreesUpdated,
		"user_id", in.UserID,
	)
	return out, nil
}

func (a *interventionAggregate) lookupSpecies(ctx context.Context, op string, id int64) (*catalog.ScientificSpecies, error) {
	sp, err := a.deps.Catalog.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("scientific species %d not found", id), nil)
	}
	return sp, nil
}
