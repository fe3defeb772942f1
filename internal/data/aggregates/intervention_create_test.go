package aggregates_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	aggtestutil "github.com/yungbote/reforest-backend/internal/data/aggregates/testutil"
	repotestutil "github.com/yungbote/reforest-backend/internal/data/repos/testutil"
	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
)

func TestCreateSingleTreeRegistration(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.agg.Create(h.ctx, domainagg.CreateInterventionInput{
		ProjectID: h.project.ID,
		UserID:    h.owner.ID,
		Type:      "single-tree-registration",
		SiteUID:   h.site.UID,
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Geometry:  pointFeature(72.8777, 19.0760),
		Species:   []domainagg.SpeciesLineInput{{SpeciesCount: 1}},
	})
	require.NoError(t, err)
	require.False(t, res.Replayed)

	inv := res.Intervention
	require.NotZero(t, inv.ID)
	require.Equal(t, 1, inv.TotalTreeCount)
	require.Equal(t, types.StatusActive, inv.Status)
	require.Equal(t, h.site.ID, *inv.SiteID)
	require.JSONEq(t, `{"type":"Point","coordinates":[72.8777,19.076]}`, string(inv.Location))

	require.Len(t, res.Species, 1)
	require.True(t, res.Species[0].IsUnknown)
	require.Equal(t, 1, res.Species[0].SpeciesCount)

	require.NotNil(t, res.Tree)
	require.InDelta(t, 19.0760, res.Tree.Latitude, 1e-9)
	require.InDelta(t, 72.8777, res.Tree.Longitude, 1e-9)
	require.Equal(t, res.Species[0].ID, res.Tree.InterventionSpeciesID)
	require.Equal(t, "Unknown", res.Tree.SpeciesName)

	require.EqualValues(t, 1, h.count(t, &types.Tree{}, "intervention_id = ?", inv.ID))
	require.EqualValues(t, 1, h.count(t, &types.InterventionSpecies{}, "intervention_id = ?", inv.ID))
}

func TestCreateSingleTreeWithoutSpeciesGetsUnknownLine(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.agg.Create(h.ctx, domainagg.CreateInterventionInput{
		ProjectID: h.project.ID,
		UserID:    h.owner.ID,
		Type:      "single-tree-registration",
		Geometry:  pointFeature(10, 20),
	})
	require.NoError(t, err)
	require.Len(t, res.Species, 1)
	require.Equal(t, 1, res.Intervention.TotalTreeCount)
	require.NotNil(t, res.Tree)
}

func TestCreateDirectSeedingWritesNoTrees(t *testing.T) {
	h := newHarness(t, nil)
	oak := repotestutil.SeedSpecies(t, h.ctx, h.db, "Quercus robur")
	pine := repotestutil.SeedSpecies(t, h.ctx, h.db, "Pinus sylvestris")

	res, err := h.agg.Create(h.ctx, domainagg.CreateInterventionInput{
		ProjectID:      h.project.ID,
		UserID:         h.owner.ID,
		Type:           "direct-seeding",
		Geometry:       polygon(),
		TotalTreeCount: 50,
		Species: []domainagg.SpeciesLineInput{
			{ScientificSpeciesID: &oak.ID, SpeciesCount: 30},
			{ScientificSpeciesID: &pine.ID, SpeciesCount: 20},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 50, res.Intervention.TotalTreeCount)
	require.Nil(t, res.Tree)
	require.Len(t, res.Species, 2)
	require.Equal(t, "Quercus robur", res.Species[0].SpeciesName)
	require.False(t, res.Species[0].IsUnknown)

	require.EqualValues(t, 0, h.count(t, &types.Tree{}, ""))
	sum, err := h.repos.species.SumCounts(dbctx.Context{Ctx: h.ctx}, res.Intervention.ID)
	require.NoError(t, err)
	require.Equal(t, res.Intervention.TotalTreeCount, sum)
}

func TestCreateRejectsCountMismatchWithoutWriting(t *testing.T) {
	h := newHarness(t, nil)
	oak := repotestutil.SeedSpecies(t, h.ctx, h.db, "Quercus robur")
	pine := repotestutil.SeedSpecies(t, h.ctx, h.db, "Pinus sylvestris")

	_, err := h.agg.Create(h.ctx, domainagg.CreateInterventionInput{
		ProjectID:      h.project.ID,
		UserID:         h.owner.ID,
		Type:           "direct-seeding",
		Geometry:       polygon(),
		TotalTreeCount: 45,
		Species: []domainagg.SpeciesLineInput{
			{ScientificSpeciesID: &oak.ID, SpeciesCount: 30},
			{ScientificSpeciesID: &pine.ID, SpeciesCount: 20},
		},
	})
	require.Error(t, err)
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
	require.Equal(t, domainagg.ReasonTreeCountMismatch, domainagg.ReasonOf(err))
	require.EqualValues(t, 0, h.count(t, &types.Intervention{}, ""))
	require.EqualValues(t, 0, h.count(t, &types.InterventionSpecies{}, ""))
}

func TestCreateValidationFailures(t *testing.T) {
	h := newHarness(t, nil)

	cases := []struct {
		name   string
		in     domainagg.CreateInterventionInput
		code   domainagg.ErrorCode
		reason string
	}{
		{
			name: "unknown type",
			in: domainagg.CreateInterventionInput{
				Type:     "tree-hugging",
				Geometry: polygon(),
			},
			code:   domainagg.CodeValidation,
			reason: domainagg.ReasonInvalidType,
		},
		{
			name: "bad geometry",
			in: domainagg.CreateInterventionInput{
				Type:           "fencing",
				Geometry:       []byte(`{"type":"Circle"}`),
				TotalTreeCount: 1,
				Species:        []domainagg.SpeciesLineInput{{SpeciesCount: 1}},
			},
			code:   domainagg.CodeValidation,
			reason: domainagg.ReasonInvalidGeoJSON,
		},
		{
			name: "single tree needs a point feature",
			in: domainagg.CreateInterventionInput{
				Type:     "single-tree-registration",
				Geometry: polygon(),
			},
			code: domainagg.CodeValidation,
		},
		{
			name: "unknown species",
			in: domainagg.CreateInterventionInput{
				Type:           "multi-tree-registration",
				Geometry:       polygon(),
				TotalTreeCount: 3,
				Species: []domainagg.SpeciesLineInput{
					{ScientificSpeciesID: ptr(int64(9001)), SpeciesCount: 1},
					{ScientificSpeciesID: ptr(int64(9002)), SpeciesCount: 2},
				},
			},
			code:   domainagg.CodeValidation,
			reason: domainagg.ReasonUnknownSpecies,
		},
		{
			name: "missing site",
			in: domainagg.CreateInterventionInput{
				Type:           "fencing",
				SiteUID:        "site_missing",
				Geometry:       polygon(),
				TotalTreeCount: 1,
				Species:        []domainagg.SpeciesLineInput{{SpeciesCount: 1}},
			},
			code: domainagg.CodeNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.ProjectID = h.project.ID
			tc.in.UserID = h.owner.ID
			_, err := h.agg.Create(h.ctx, tc.in)
			require.Error(t, err)
			require.Equal(t, tc.code, domainagg.CodeOf(err), "err=%v", err)
			if tc.reason != "" {
				require.Equal(t, tc.reason, domainagg.ReasonOf(err))
			}
		})
	}
	require.EqualValues(t, 0, h.count(t, &types.Intervention{}, ""))

	unknown := cases[3].in
	unknown.ProjectID = h.project.ID
	unknown.UserID = h.owner.ID
	_, err := h.agg.Create(h.ctx, unknown)
	missing, ok := domainagg.DetailsAs[*domainagg.MissingSpecies](err)
	require.True(t, ok)
	require.Equal(t, []int64{9001, 9002}, missing.IDs)
}

func TestCreateReplaysIdempotencyKey(t *testing.T) {
	h := newHarness(t, nil)
	in := domainagg.CreateInterventionInput{
		ProjectID:      h.project.ID,
		UserID:         h.owner.ID,
		Type:           "single-tree-registration",
		IdempotencyKey: "req-42",
		Geometry:       pointFeature(1, 2),
	}

	first, err := h.agg.Create(h.ctx, in)
	require.NoError(t, err)
	second, err := h.agg.Create(h.ctx, in)
	require.NoError(t, err)

	require.True(t, second.Replayed)
	require.Equal(t, first.Intervention.UID, second.Intervention.UID)
	require.NotNil(t, second.Tree)
	require.Equal(t, first.Tree.UID, second.Tree.UID)
	require.EqualValues(t, 1, h.count(t, &types.Intervention{}, ""))
	require.EqualValues(t, 1, h.count(t, &types.Tree{}, ""))
}

func TestCreateRollsBackOnCommitFailure(t *testing.T) {
	runner := &aggtestutil.InjectedTxRunner{FailCommit: errors.New("commit lost")}
	h := newHarness(t, runner)
	runner.DB = h.db

	_, err := h.agg.Create(h.ctx, domainagg.CreateInterventionInput{
		ProjectID: h.project.ID,
		UserID:    h.owner.ID,
		Type:      "single-tree-registration",
		Geometry:  pointFeature(1, 2),
	})
	require.Error(t, err)
	require.True(t, domainagg.IsCode(err, domainagg.CodeInternal))
	require.ErrorContains(t, err, "commit lost")
	require.Equal(t, 1, runner.RollbackCalls)

	require.EqualValues(t, 0, h.count(t, &types.Intervention{}, ""))
	require.EqualValues(t, 0, h.count(t, &types.InterventionSpecies{}, ""))
	require.EqualValues(t, 0, h.count(t, &types.Tree{}, ""))
	require.Equal(t, []string{string(domainagg.CodeInternal)}, h.hooks.Statuses("Interventions.Create"))
}
