package normalization

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/domain/catalog"
	"github.com/yungbote/reforest-backend/internal/domain/interventions"
)

func id(v int64) *int64 { return &v }

func TestValidateSpeciesComposition(t *testing.T) {
	single := ValidateSpeciesComposition(99, nil, interventions.TypeSingleTreeRegistration)
	require.Equal(t, CompositionResult{TreeCount: 1}, single)

	lines := []domainagg.SpeciesLineInput{
		{ScientificSpeciesID: id(5), SpeciesCount: 30},
		{ScientificSpeciesID: id(7), SpeciesCount: 20},
	}
	ok := ValidateSpeciesComposition(50, lines, interventions.TypeDirectSeeding)
	require.True(t, ok.OK())
	require.Equal(t, 50, ok.TreeCount)
	require.NoError(t, ok.Err())

	mismatch := ValidateSpeciesComposition(45, lines, interventions.TypeDirectSeeding)
	require.Equal(t, CompositionResult{TreeCount: 0, Error: "tree_count_mismatch"}, mismatch)
	require.Equal(t, domainagg.ReasonTreeCountMismatch, domainagg.ReasonOf(mismatch.Err()))

	empty := ValidateSpeciesComposition(0, nil, interventions.TypeFencing)
	require.Equal(t, domainagg.ReasonSpeciesRequired, empty.Error)

	negative := ValidateSpeciesComposition(0, []domainagg.SpeciesLineInput{{SpeciesCount: 5}, {SpeciesCount: -5}}, interventions.TypeFencing)
	require.Equal(t, domainagg.ReasonInvalidSpeciesCount, negative.Error)
}

type stubCatalog struct {
	known map[int64]bool
	err   error
	calls int
}

func (s *stubCatalog) Missing(_ context.Context, ids []int64) ([]int64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []int64
	for _, id := range ids {
		if !s.known[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *stubCatalog) Get(_ context.Context, id int64) (*catalog.ScientificSpecies, error) {
	if !s.known[id] {
		return nil, nil
	}
	return &catalog.ScientificSpecies{ID: id}, nil
}

func TestResolveSpeciesReferencesCollectsAllMissing(t *testing.T) {
	cat := &stubCatalog{known: map[int64]bool{5: true}}
	lines := []domainagg.SpeciesLineInput{
		{ScientificSpeciesID: id(9), SpeciesCount: 1},
		{ScientificSpeciesID: id(5), SpeciesCount: 1},
		{ScientificSpeciesID: id(3), SpeciesCount: 1},
		{ScientificSpeciesID: id(9), SpeciesCount: 1},
		{OtherSpecies: "local fig", SpeciesCount: 1},
	}
	err := ResolveSpeciesReferences(context.Background(), cat, lines)
	require.Error(t, err)
	require.Equal(t, 1, cat.calls)
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
	require.Equal(t, domainagg.ReasonUnknownSpecies, domainagg.ReasonOf(err))
	missing, ok := domainagg.DetailsAs[*domainagg.MissingSpecies](err)
	require.True(t, ok)
	require.Equal(t, []int64{3, 9}, missing.IDs)
	require.Contains(t, err.Error(), "3, 9")
}

func TestResolveSpeciesReferencesSkipsUnknownLines(t *testing.T) {
	cat := &stubCatalog{}
	err := ResolveSpeciesReferences(context.Background(), cat, []domainagg.SpeciesLineInput{{SpeciesCount: 4}})
	require.NoError(t, err)
	require.Zero(t, cat.calls)
}

func TestResolveSpeciesReferencesStorageFailure(t *testing.T) {
	cat := &stubCatalog{err: errors.New("connection reset")}
	err := ResolveSpeciesReferences(context.Background(), cat, []domainagg.SpeciesLineInput{{ScientificSpeciesID: id(1)}})
	require.True(t, domainagg.IsCode(err, domainagg.CodeInternal))
}

func TestNormalizeSpeciesLines(t *testing.T) {
	out := NormalizeSpeciesLines([]domainagg.SpeciesLineInput{
		{ScientificSpeciesID: id(0), OtherSpecies: "  wild olive ", SpeciesCount: 2},
		{ScientificSpeciesID: id(12), SpeciesCount: 3},
	})
	require.Nil(t, out[0].ScientificSpeciesID)
	require.Equal(t, "wild olive", out[0].OtherSpecies)
	require.Equal(t, int64(12), *out[1].ScientificSpeciesID)
}

func TestParseInterventionType(t *testing.T) {
	got, err := ParseInterventionType(" Direct-Seeding ")
	require.NoError(t, err)
	require.Equal(t, interventions.TypeDirectSeeding, got)

	_, err = ParseInterventionType("tree-hugging")
	require.Equal(t, domainagg.ReasonInvalidType, domainagg.ReasonOf(err))
}
