package catalog

import (
	"context"
	"reflect"
	"testing"

	"github.com/yungbote/reforest-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
)

func TestScientificSpeciesRepoMissing(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	oak := testutil.SeedSpecies(t, ctx, db, "Quercus robur")
	gone := testutil.SeedSpecies(t, ctx, db, "Pinus sylvestris")
	if err := db.Delete(gone).Error; err != nil {
		t.Fatalf("soft delete species: %v", err)
	}

	repo := NewScientificSpeciesRepo(db, testutil.Logger(t))
	missing, err := repo.Missing(ctx, []int64{oak.ID, 999, gone.ID, 999})
	if err != nil {
		t.Fatalf("Missing: %v", err)
	}
	if want := []int64{999, gone.ID}; !reflect.DeepEqual(missing, want) {
		t.Fatalf("Missing: expected %v, got %v", want, missing)
	}

	got, err := repo.Get(ctx, oak.ID)
	if err != nil || got == nil || got.ScientificName != "Quercus robur" {
		t.Fatalf("Get: unexpected %+v err=%v", got, err)
	}
	got, err = repo.Get(ctx, gone.ID)
	if err != nil || got != nil {
		t.Fatalf("Get (deleted): expected nil, got %+v err=%v", got, err)
	}
}

func TestSiteRepoResolveSite(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	project := testutil.SeedProject(t, ctx, db, owner.ID)
	other := testutil.SeedProject(t, ctx, db, owner.ID)
	site := testutil.SeedSite(t, ctx, db, project.ID)

	repo := NewSiteRepo(db, testutil.Logger(t))
	id, err := repo.ResolveSite(ctx, project.ID, site.UID)
	if err != nil {
		t.Fatalf("ResolveSite: %v", err)
	}
	if id != site.ID {
		t.Fatalf("ResolveSite: expected %d, got %d", site.ID, id)
	}

	_, err = repo.ResolveSite(ctx, other.ID, site.UID)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("ResolveSite (other project): expected not_found, got %v", err)
	}
	_, err = repo.ResolveSite(ctx, project.ID, "site_missing")
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("ResolveSite (missing): expected not_found, got %v", err)
	}
}
