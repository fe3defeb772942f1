package aggregates

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/reforest-backend/internal/data/repos"
	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/domain/catalog"
	"github.com/yungbote/reforest-backend/internal/domain/interventions"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
)

// CascadePlan is the full set of row changes one mutation implies. It is
// computed before anything is written and applied in one pass.
type CascadePlan struct {
	Intervention *types.Intervention
	Species      *types.InterventionSpecies

	// SpeciesUpdates is CAS-guarded on Species.Version when non-empty.
	SpeciesUpdates map[string]any
	// InterventionUpdates is CAS-guarded on Intervention.Version and
	// InterventionStatuses when GuardIntervention is set.
	InterventionUpdates  map[string]any
	GuardIntervention    bool
	InterventionStatuses []string

	TreeUpdates map[string]any
	// Trees are the live rows TreeUpdates will touch.
	Trees []*types.Tree
	// treeScope selects the cascade predicate: by species line or by intervention.
	treeScope string

	ChangedFields []string
}

const (
	treeScopeSpecies      = "species"
	treeScopeIntervention = "intervention"
)

// SpeciesIntent describes a requested change to one composition line. Nil
// fields leave the current value alone.
type SpeciesIntent struct {
	Species *catalog.ScientificSpecies
	Count   *int
}

// IntegrityEnforcer keeps intervention, species and tree rows consistent by
// planning every dependent update next to the invariant check that allows it.
type IntegrityEnforcer struct {
	Interventions repos.InterventionRepo
	Species       repos.InterventionSpeciesRepo
	Trees         repos.TreeRepo
	CAS           CASGuard
	Now           func() time.Time
}

func (e IntegrityEnforcer) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

// PlanSpeciesChange rejects counts below the number of live trees tracked on
// the line and otherwise plans the line update, the tree name cascade and the
// parent total adjustment.
func (e IntegrityEnforcer) PlanSpeciesChange(dbc dbctx.Context, op string, inv *types.Intervention, line *types.InterventionSpecies, intent SpeciesIntent) (*CascadePlan, error) {
	trees, err := e.Trees.ListBySpecies(dbc, line.ID)
	if err != nil {
		return nil, err
	}

	if intent.Count != nil && *intent.Count < len(trees) {
		hids := make([]string, 0, len(trees))
		for _, t := range trees {
			hids = append(hids, t.HID)
		}
		return nil, domainagg.NewReasonError(
			domainagg.CodeInvariantViolation,
			op,
			domainagg.ReasonCountBelowTrees,
			fmt.Sprintf("species count %d is below the %d trees already tracked", *intent.Count, len(trees)),
			&domainagg.CountViolation{
				CurrentTreeCount:      len(trees),
				RequestedSpeciesCount: *intent.Count,
				TreeHIDs:              hids,
			},
		)
	}

	now := e.now()
	plan := &CascadePlan{
		Intervention:        inv,
		Species:             line,
		SpeciesUpdates:      map[string]any{},
		InterventionUpdates: map[string]any{"updated_at": now},
		treeScope:           treeScopeSpecies,
	}

	if sp := intent.Species; sp != nil {
		if line.ScientificSpeciesID == nil || *line.ScientificSpeciesID != sp.ID {
			plan.SpeciesUpdates["scientific_species_id"] = sp.ID
			plan.ChangedFields = append(plan.ChangedFields, "scientific_species_id")
		}
		if line.IsUnknown {
			plan.SpeciesUpdates["is_unknown"] = false
			plan.ChangedFields = append(plan.ChangedFields, "is_unknown")
		}
		if line.SpeciesName != sp.ScientificName {
			plan.SpeciesUpdates["species_name"] = sp.ScientificName
			plan.ChangedFields = append(plan.ChangedFields, "species_name")
		}
		if line.OtherSpecies != "" {
			plan.SpeciesUpdates["other_species"] = ""
		}
		if len(trees) > 0 {
			plan.TreeUpdates = map[string]any{"species_name": sp.ScientificName, "updated_at": now}
			plan.Trees = trees
		}
	}

	if intent.Count != nil && *intent.Count != line.SpeciesCount {
		delta := *intent.Count - line.SpeciesCount
		plan.SpeciesUpdates["species_count"] = *intent.Count
		plan.ChangedFields = append(plan.ChangedFields, "species_count")
		if !inv.Type.SingleTree() {
			plan.InterventionUpdates["total_tree_count"] = gorm.Expr("total_tree_count + ?", delta)
			plan.ChangedFields = append(plan.ChangedFields, "intervention.total_tree_count")
		}
	}

	if len(plan.SpeciesUpdates) > 0 {
		plan.SpeciesUpdates["updated_at"] = now
	}
	return plan, nil
}

// PlanOwnershipChange plans the owner swap on the intervention and the
// created_by cascade on its live trees.
func (e IntegrityEnforcer) PlanOwnershipChange(dbc dbctx.Context, inv *types.Intervention, newOwnerID int64) (*CascadePlan, error) {
	trees, err := e.Trees.ListByIntervention(dbc, inv.ID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	plan := &CascadePlan{
		Intervention: inv,
		InterventionUpdates: map[string]any{
			"user_id":    newOwnerID,
			"edited_at":  now,
			"updated_at": now,
		},
		GuardIntervention:    true,
		InterventionStatuses: interventions.NonTerminalStatuses(),
		Trees:                trees,
		treeScope:            treeScopeIntervention,
		ChangedFields:        []string{"user_id", "edited_at"},
	}
	if len(trees) > 0 {
		plan.TreeUpdates = map[string]any{"created_by_id": newOwnerID, "updated_at": now}
		plan.ChangedFields = append(plan.ChangedFields, "tree.created_by_id")
	}
	return plan, nil
}

// Apply writes a plan inside the caller's transaction and returns the number
// of trees updated. A lost compare-and-swap yields a conflict error.
func (e IntegrityEnforcer) Apply(dbc dbctx.Context, plan *CascadePlan) (int, error) {
	if plan == nil {
		return 0, nil
	}
	if plan.Species != nil && len(plan.SpeciesUpdates) > 0 {
		ok, err := e.CAS.UpdateByVersion(dbc, "intervention_species", plan.Species.ID, plan.Species.Version, plan.SpeciesUpdates)
		if err != nil {
			return 0, err
		}
		if err := RequireCASSuccess(ok, "intervention species changed concurrently"); err != nil {
			return 0, err
		}
	}

	if plan.Intervention != nil && len(plan.InterventionUpdates) > 0 {
		if plan.GuardIntervention {
			ok, err := e.CAS.UpdateByVersionAndStatus(dbc, "intervention", plan.Intervention.ID, plan.Intervention.Version, plan.InterventionStatuses, plan.InterventionUpdates)
			if err != nil {
				return 0, err
			}
			if err := RequireCASSuccess(ok, "intervention changed concurrently"); err != nil {
				return 0, err
			}
		} else if err := e.Interventions.UpdateFields(dbc, plan.Intervention.ID, plan.InterventionUpdates); err != nil {
			return 0, err
		}
	}

	if len(plan.TreeUpdates) == 0 {
		return 0, nil
	}
	var (
		n   int64
		err error
	)
	switch plan.treeScope {
	case treeScopeSpecies:
		n, err = e.Trees.UpdateBySpecies(dbc, plan.Species.ID, plan.TreeUpdates)
	case treeScopeIntervention:
		n, err = e.Trees.UpdateByIntervention(dbc, plan.Intervention.ID, plan.TreeUpdates)
	default:
		return 0, fmt.Errorf("unknown tree cascade scope %q", plan.treeScope)
	}
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
