package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/reforest-backend/internal/domain"
)

func uid(prefix string) string { return prefix + uuid.NewString() }

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		UID:         uid("usr_"),
		Email:       email,
		DisplayName: "A B",
		IsActive:    true,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedInactiveUser flips is_active after insert; the column default would
// otherwise override a false value on create.
func SeedInactiveUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := SeedUser(tb, ctx, tx, email)
	if err := tx.WithContext(ctx).Model(u).Update("is_active", false).Error; err != nil {
		tb.Fatalf("deactivate user: %v", err)
	}
	u.IsActive = false
	return u
}

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID int64) *types.Project {
	tb.Helper()
	p := &types.Project{
		UID:       uid("prj_"),
		Name:      "project",
		CreatedBy: ownerID,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	SeedMember(tb, ctx, tx, p.ID, ownerID, "owner")
	return p
}

func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID, userID int64, role string) *types.ProjectMember {
	tb.Helper()
	m := &types.ProjectMember{
		ProjectID:   projectID,
		UserID:      userID,
		ProjectRole: role,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}

func SeedSite(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID int64) *types.Site {
	tb.Helper()
	s := &types.Site{
		UID:       uid("site_"),
		ProjectID: projectID,
		Name:      "site",
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed site: %v", err)
	}
	return s
}

func SeedSpecies(tb testing.TB, ctx context.Context, tx *gorm.DB, scientificName string) *types.ScientificSpecies {
	tb.Helper()
	s := &types.ScientificSpecies{
		UID:            uid("ssp_"),
		ScientificName: scientificName,
		CommonName:     scientificName,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed species: %v", err)
	}
	return s
}

// SeedIntervention writes an intervention with one species line of count
// trees and no Tree rows.
func SeedIntervention(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID, ownerID int64, status types.InterventionStatus, count int) (*types.Intervention, *types.InterventionSpecies) {
	tb.Helper()
	now := time.Now().UTC()
	inv := &types.Intervention{
		UID:                   uid("inv_"),
		HID:                   strings.ReplaceAll(uuid.NewString(), "-", ""),
		Type:                  types.TypeMultiTreeRegistration,
		UserID:                ownerID,
		ProjectID:             projectID,
		IdempotencyKey:        uuid.NewString(),
		InterventionStartDate: now,
		InterventionEndDate:   now,
		Location:              datatypes.JSON(`{"type":"Point","coordinates":[0,0]}`),
		TotalTreeCount:        count,
		Status:                status,
	}
	if err := tx.WithContext(ctx).Omit("Species").Create(inv).Error; err != nil {
		tb.Fatalf("seed intervention: %v", err)
	}
	sp := &types.InterventionSpecies{
		UID:            uid("isp_"),
		InterventionID: inv.ID,
		IsUnknown:      true,
		OtherSpecies:   "unknown",
		SpeciesCount:   count,
	}
	if err := tx.WithContext(ctx).Create(sp).Error; err != nil {
		tb.Fatalf("seed intervention species: %v", err)
	}
	return inv, sp
}

// SeedTrees attaches n live trees to a species line.
func SeedTrees(tb testing.TB, ctx context.Context, tx *gorm.DB, inv *types.Intervention, sp *types.InterventionSpecies, n int) []*types.Tree {
	tb.Helper()
	out := make([]*types.Tree, 0, n)
	for i := 0; i < n; i++ {
		t := &types.Tree{
			UID:                   uid("tree_"),
			HID:                   fmt.Sprintf("T%d-%d", sp.ID, i),
			InterventionID:        inv.ID,
			InterventionSpeciesID: sp.ID,
			CreatedByID:           inv.UserID,
			ProjectID:             inv.ProjectID,
			Latitude:              1,
			Longitude:             1,
			SpeciesName:           sp.DisplayName(),
			PlantingDate:          inv.InterventionStartDate,
		}
		out = append(out, t)
	}
	if n > 0 {
		if err := tx.WithContext(ctx).Create(&out).Error; err != nil {
			tb.Fatalf("seed trees: %v", err)
		}
	}
	return out
}

func PtrInt64(v int64) *int64 { return &v }

func PtrInt(v int) *int { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
