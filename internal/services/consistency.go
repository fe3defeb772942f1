package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/reforest-backend/internal/data/aggregates"
	"github.com/yungbote/reforest-backend/internal/data/repos"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

// Issue tags reported by CheckInterventions.
const (
	IssueNotFound         = "not_found"
	IssueSpeciesSum       = "species_sum_mismatch"
	IssueCountBelowTrees  = "species_count_below_tree_count"
	IssueSingleTree       = "single_tree_count"
	IssueTreeOwner        = "tree_owner_mismatch"
	IssueOrphanedTreeLine = "tree_without_species_line"
)

type ConsistencyIssue struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// ConsistencyReport is the stored state of one intervention measured against
// its count and ownership invariants.
type ConsistencyReport struct {
	UID            string             `json:"uid"`
	InterventionID int64              `json:"intervention_id,omitempty"`
	Type           string             `json:"type,omitempty"`
	DeclaredTotal  int                `json:"declared_total"`
	SpeciesSum     int                `json:"species_sum"`
	SpeciesLines   int                `json:"species_lines"`
	TreeCount      int                `json:"tree_count"`
	Issues         []ConsistencyIssue `json:"issues,omitempty"`
}

func (r ConsistencyReport) OK() bool { return len(r.Issues) == 0 }

func (r *ConsistencyReport) add(code, format string, args ...any) {
	r.Issues = append(r.Issues, ConsistencyIssue{Code: code, Detail: fmt.Sprintf(format, args...)})
}

// ConsistencyService audits persisted interventions. It only reads.
type ConsistencyService interface {
	CheckInterventions(ctx context.Context, uids []string) ([]ConsistencyReport, error)
}

type consistencyService struct {
	log           *logger.Logger
	interventions repos.InterventionRepo
	species       repos.InterventionSpeciesRepo
	trees         repos.TreeRepo
}

func NewConsistencyService(log *logger.Logger, interventions repos.InterventionRepo, species repos.InterventionSpeciesRepo, trees repos.TreeRepo) ConsistencyService {
	return &consistencyService{
		log:           log.With("service", "ConsistencyService"),
		interventions: interventions,
		species:       species,
		trees:         trees,
	}
}

// CheckInterventions returns one report per requested uid, in request order.
func (s *consistencyService) CheckInterventions(ctx context.Context, uids []string) ([]ConsistencyReport, error) {
	const op = "Consistency.CheckInterventions"
	dbc := dbctx.Context{Ctx: ctx}

	wanted := make([]string, 0, len(uids))
	for _, uid := range uids {
		if uid = strings.TrimSpace(uid); uid != "" {
			wanted = append(wanted, uid)
		}
	}
	found, err := s.interventions.GetByUIDs(dbc, wanted)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	byUID := make(map[string]int, len(found))
	for i, inv := range found {
		byUID[inv.UID] = i
	}

	out := make([]ConsistencyReport, 0, len(wanted))
	for _, uid := range wanted {
		rep := ConsistencyReport{UID: uid}
		i, ok := byUID[uid]
		if !ok {
			rep.add(IssueNotFound, "intervention %s does not exist", uid)
			out = append(out, rep)
			continue
		}
		inv := found[i]
		rep.InterventionID = inv.ID
		rep.Type = string(inv.Type)
		rep.DeclaredTotal = inv.TotalTreeCount

		if rep.SpeciesSum, err = s.species.SumCounts(dbc, inv.ID); err != nil {
			return nil, aggregates.MapError(op, err)
		}
		lines, err := s.species.ListByIntervention(dbc, inv.ID)
		if err != nil {
			return nil, aggregates.MapError(op, err)
		}
		rep.SpeciesLines = len(lines)
		if rep.TreeCount, err = s.trees.CountByIntervention(dbc, inv.ID); err != nil {
			return nil, aggregates.MapError(op, err)
		}
		trees, err := s.trees.ListByIntervention(dbc, inv.ID)
		if err != nil {
			return nil, aggregates.MapError(op, err)
		}

		if rep.SpeciesSum != rep.DeclaredTotal {
			rep.add(IssueSpeciesSum, "species counts sum to %d, declared total is %d", rep.SpeciesSum, rep.DeclaredTotal)
		}
		if inv.Type.SingleTree() && (rep.DeclaredTotal != 1 || rep.TreeCount != 1) {
			rep.add(IssueSingleTree, "single-tree intervention has total %d and %d trees", rep.DeclaredTotal, rep.TreeCount)
		}

		perLine := map[int64]int{}
		for _, t := range trees {
			perLine[t.InterventionSpeciesID]++
			if t.CreatedByID != inv.UserID {
				rep.add(IssueTreeOwner, "tree %s belongs to user %d, intervention owner is %d", t.UID, t.CreatedByID, inv.UserID)
			}
		}
		for _, line := range lines {
			if n := perLine[line.ID]; line.SpeciesCount < n {
				rep.add(IssueCountBelowTrees, "species line %s counts %d but tracks %d trees", line.UID, line.SpeciesCount, n)
			}
			delete(perLine, line.ID)
		}
		for lineID, n := range perLine {
			rep.add(IssueOrphanedTreeLine, "%d trees reference missing species line %d", n, lineID)
		}
		if !rep.OK() {
			s.log.Warn("Intervention inconsistent", "uid", uid, "issues", len(rep.Issues))
		}
		out = append(out, rep)
	}
	return out, nil
}
