package aggregates_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/reforest-backend/internal/data/aggregates"
	repotestutil "github.com/yungbote/reforest-backend/internal/data/repos/testutil"
	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
)

func multiTreeRecord(uid string, count int) domainagg.BulkRecordInput {
	return domainagg.BulkRecordInput{
		UID:            uid,
		Type:           "multi-tree-registration",
		StartDate:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Geometry:       polygon(),
		TotalTreeCount: count,
		Species:        []domainagg.SpeciesLineInput{{OtherSpecies: "mixed", SpeciesCount: count}},
	}
}

func TestBulkIngestIsolatesInvalidType(t *testing.T) {
	h := newHarness(t, nil)

	records := make([]domainagg.BulkRecordInput, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, multiTreeRecord(fmt.Sprintf("inv_bulk_%02d", i), i+1))
	}
	records[3].Type = "not-a-type"

	res, err := h.agg.BulkIngest(h.ctx, domainagg.BulkIngestInput{
		ProjectID: h.project.ID,
		UserID:    h.owner.ID,
		SiteUID:   h.site.UID,
		Records:   records,
	})
	require.NoError(t, err)
	require.Equal(t, 10, res.TotalProcessed)
	require.Equal(t, 9, res.Passed)
	require.Equal(t, 1, res.Failed)
	require.True(t, res.UsedFallback)
	require.Len(t, res.FailedInterventionUID, 1)
	require.Equal(t, "inv_bulk_03", res.FailedInterventionUID[0].UID)
	require.NotEmpty(t, res.FailedInterventionUID[0].Error)
	require.NotContains(t, res.SuccessfulInterventions, "inv_bulk_03")

	stored, err := h.repos.interventions.GetByUIDs(dbctx.Context{Ctx: h.ctx}, res.SuccessfulInterventions)
	require.NoError(t, err)
	require.Len(t, stored, 9)
	for _, inv := range stored {
		sum, err := h.repos.species.SumCounts(dbctx.Context{Ctx: h.ctx}, inv.ID)
		require.NoError(t, err)
		require.Equal(t, inv.TotalTreeCount, sum, "intervention %s", inv.UID)
		require.Equal(t, h.site.ID, *inv.SiteID)
	}

	ev, ok := h.hooks.Batch(aggregates.StageInterventions)
	require.True(t, ok)
	require.True(t, ev.UsedFallback)
	require.Equal(t, 9, ev.Succeeded)
	require.Equal(t, 1, ev.Failed)

	species, ok := h.hooks.Batch(aggregates.StageSpecies)
	require.True(t, ok)
	require.False(t, species.UsedFallback)
	require.Equal(t, 9, species.Succeeded)
}

func TestBulkIngestSingleTreeRecords(t *testing.T) {
	h := newHarness(t, nil)
	oak := repotestutil.SeedSpecies(t, h.ctx, h.db, "Quercus robur")

	records := []domainagg.BulkRecordInput{
		{
			Type:     "single-tree-registration",
			Geometry: pointFeature(12.5, 41.9),
			Species:  []domainagg.SpeciesLineInput{{ScientificSpeciesID: &oak.ID, SpeciesCount: 1}},
		},
		{
			Type:     "single-tree-registration",
			Geometry: []byte(`{"type":"Feature","geometry":{"type":"Point","coordinates":[12.6,42.0,150]}}`),
		},
		{
			UID:      "inv_bad_geometry",
			Type:     "single-tree-registration",
			Geometry: polygon(),
		},
	}
	res, err := h.agg.BulkIngest(h.ctx, domainagg.BulkIngestInput{
		ProjectID: h.project.ID,
		UserID:    h.owner.ID,
		Records:   records,
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.TotalProcessed)
	require.Equal(t, 2, res.Passed)
	require.Equal(t, 1, res.Failed)
	require.False(t, res.UsedFallback)
	require.Equal(t, "inv_bad_geometry", res.FailedInterventionUID[0].UID)
	require.Len(t, res.SuccessfulInterventions, 2)

	var trees []types.Tree
	require.NoError(t, h.db.Order("id").Find(&trees).Error)
	require.Len(t, trees, 2)
	require.Equal(t, "Quercus robur", trees[0].SpeciesName)
	require.InDelta(t, 41.9, trees[0].Latitude, 1e-9)
	require.NotNil(t, trees[1].Altitude)
	require.InDelta(t, 150, *trees[1].Altitude, 1e-9)
	require.Equal(t, h.owner.ID, trees[1].CreatedByID)

	stored, err := h.repos.interventions.GetByUIDs(dbctx.Context{Ctx: h.ctx}, res.SuccessfulInterventions)
	require.NoError(t, err)
	for _, inv := range stored {
		require.Equal(t, 1, inv.TotalTreeCount)
		n, err := h.repos.trees.CountByIntervention(dbctx.Context{Ctx: h.ctx}, inv.ID)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}
}

func TestBulkIngestPrevalidationFailures(t *testing.T) {
	h := newHarness(t, nil)
	existing := multiTreeRecord("inv_existing", 2)
	_, err := h.agg.BulkIngest(h.ctx, domainagg.BulkIngestInput{
		ProjectID: h.project.ID,
		UserID:    h.owner.ID,
		Records:   []domainagg.BulkRecordInput{existing},
	})
	require.NoError(t, err)

	mismatch := multiTreeRecord("inv_mismatch", 5)
	mismatch.TotalTreeCount = 6
	unknown := multiTreeRecord("inv_unknown_species", 2)
	unknown.Species = []domainagg.SpeciesLineInput{{ScientificSpeciesID: ptr(int64(4242)), SpeciesCount: 2}}

	res, err := h.agg.BulkIngest(h.ctx, domainagg.BulkIngestInput{
		ProjectID: h.project.ID,
		UserID:    h.owner.ID,
		Records: []domainagg.BulkRecordInput{
			multiTreeRecord("inv_ok", 3),
			mismatch,
			unknown,
			multiTreeRecord("inv_ok", 3),
			existing,
		},
	})
	require.NoError(t, err)
	require.Equal(t, 5, res.TotalProcessed)
	require.Equal(t, res.TotalProcessed, res.Passed+res.Failed)
	require.Equal(t, []string{"inv_ok"}, res.SuccessfulInterventions)

	errs := map[string]string{}
	for _, f := range res.FailedInterventionUID {
		require.NotEmpty(t, f.Error)
		errs[f.UID] = f.Error
	}
	require.Contains(t, errs, "inv_mismatch")
	require.Contains(t, errs["inv_unknown_species"], "4242")
	require.Contains(t, errs, "inv_existing")
	require.Equal(t, 4, res.Failed)

	validation, ok := h.hooks.Batch(aggregates.StageValidation)
	require.True(t, ok)
	require.Equal(t, 3, validation.Failed)
}

func TestBulkIngestMissingSiteFailsWholeBatch(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.agg.BulkIngest(h.ctx, domainagg.BulkIngestInput{
		ProjectID: h.project.ID,
		UserID:    h.owner.ID,
		SiteUID:   "site_nowhere",
		Records:   []domainagg.BulkRecordInput{multiTreeRecord("", 1)},
	})
	require.Error(t, err)
	require.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
	require.EqualValues(t, 0, h.count(t, &types.Intervention{}, ""))
}

func TestBulkIngestEmptyBatch(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.agg.BulkIngest(h.ctx, domainagg.BulkIngestInput{ProjectID: h.project.ID, UserID: h.owner.ID})
	require.NoError(t, err)
	require.Zero(t, res.TotalProcessed)
	require.Empty(t, res.SuccessfulInterventions)
}
