package normalization

import (
	"context"
	"fmt"
	"sort"
	"strings"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/domain/interventions"
)

const (
	opComposition = "Normalize.SpeciesComposition"
	opReferences  = "Normalize.SpeciesReferences"
	opType        = "Normalize.InterventionType"
)

// CompositionResult reports the tree count a species list yields. Error holds
// a reason tag and is empty when the composition is acceptable.
type CompositionResult struct {
	TreeCount int
	Error     string
}

func (r CompositionResult) OK() bool { return r.Error == "" }

// Err converts a failed result into a validation error, nil when OK.
func (r CompositionResult) Err() error {
	if r.OK() {
		return nil
	}
	var msg string
	switch r.Error {
	case domainagg.ReasonTreeCountMismatch:
		msg = "sum of species counts does not match total tree count"
	case domainagg.ReasonSpeciesRequired:
		msg = "at least one species line is required"
	case domainagg.ReasonInvalidSpeciesCount:
		msg = "species counts must not be negative"
	default:
		msg = r.Error
	}
	return domainagg.NewReasonError(domainagg.CodeValidation, opComposition, r.Error, msg, nil)
}

// ValidateSpeciesComposition checks a species list against the declared tree
// count. Single tree registrations always count as one tree.
func ValidateSpeciesComposition(declared int, species []domainagg.SpeciesLineInput, t interventions.InterventionType) CompositionResult {
	if t.SingleTree() {
		return CompositionResult{TreeCount: 1}
	}
	if len(species) == 0 {
		return CompositionResult{Error: domainagg.ReasonSpeciesRequired}
	}
	sum := 0
	for _, line := range species {
		if line.SpeciesCount < 0 {
			return CompositionResult{Error: domainagg.ReasonInvalidSpeciesCount}
		}
		sum += line.SpeciesCount
	}
	if sum != declared {
		return CompositionResult{Error: domainagg.ReasonTreeCountMismatch}
	}
	return CompositionResult{TreeCount: sum}
}

// ReferencedSpeciesIDs returns the distinct catalog ids named by lines, sorted.
func ReferencedSpeciesIDs(lines ...[]domainagg.SpeciesLineInput) []int64 {
	seen := map[int64]struct{}{}
	out := []int64{}
	for _, group := range lines {
		for _, line := range group {
			if line.ScientificSpeciesID == nil {
				continue
			}
			id := *line.ScientificSpeciesID
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ResolveSpeciesReferences fails with every missing catalog id in one error.
func ResolveSpeciesReferences(ctx context.Context, catalog domainagg.SpeciesCatalog, species []domainagg.SpeciesLineInput) error {
	ids := ReferencedSpeciesIDs(species)
	if len(ids) == 0 {
		return nil
	}
	if catalog == nil {
		return domainagg.NewError(domainagg.CodeInternal, opReferences, "species catalog not configured", nil)
	}
	missing, err := catalog.Missing(ctx, ids)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, opReferences, err)
	}
	return UnknownSpeciesError(missing)
}

// UnknownSpeciesError builds the unknown_species validation error, nil when
// missing is empty.
func UnknownSpeciesError(missing []int64) error {
	if len(missing) == 0 {
		return nil
	}
	sorted := append([]int64(nil), missing...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprint(id)
	}
	return domainagg.NewReasonError(domainagg.CodeValidation, opReferences, domainagg.ReasonUnknownSpecies,
		"unknown scientific species: "+strings.Join(parts, ", "), &domainagg.MissingSpecies{IDs: sorted})
}

// NormalizeSpeciesLines trims free text and treats non-positive catalog ids as
// unknown species.
func NormalizeSpeciesLines(lines []domainagg.SpeciesLineInput) []domainagg.SpeciesLineInput {
	out := make([]domainagg.SpeciesLineInput, 0, len(lines))
	for _, line := range lines {
		l := domainagg.SpeciesLineInput{
			OtherSpecies: strings.TrimSpace(line.OtherSpecies),
			SpeciesCount: line.SpeciesCount,
		}
		if line.ScientificSpeciesID != nil && *line.ScientificSpeciesID > 0 {
			id := *line.ScientificSpeciesID
			l.ScientificSpeciesID = &id
		}
		out = append(out, l)
	}
	return out
}

// ParseInterventionType is ParseType with a typed validation error.
func ParseInterventionType(raw string) (interventions.InterventionType, error) {
	t, ok := interventions.ParseType(raw)
	if !ok {
		return "", domainagg.NewReasonError(domainagg.CodeValidation, opType, domainagg.ReasonInvalidType,
			fmt.Sprintf("unknown intervention type %q", strings.TrimSpace(raw)), nil)
	}
	return t, nil
}
