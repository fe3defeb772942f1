package aggregates

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/domain/interventions"
	"github.com/yungbote/reforest-backend/internal/normalization"
)

// recordDraft is one validated intervention with its dependent rows, not yet
// linked by database ids.
type recordDraft struct {
	Intervention *types.Intervention
	Species      []*types.InterventionSpecies
	Tree         *types.Tree
}

type draftInput struct {
	UID            string
	Type           string
	// StrictType rejects unknown types up front. Bulk ingest leaves the check to
	// the row hook so a bad type fails its INSERT.
	StrictType     bool
	ProjectID      int64
	UserID         int64
	SiteID         *int64
	IdempotencyKey string
	StartDate      time.Time
	EndDate        time.Time
	Geometry       json.RawMessage
	TotalTreeCount int
	Species        []domainagg.SpeciesLineInput
	Description    string
	Metadata       json.RawMessage
}

func (a *interventionAggregate) draft(op string, in draftInput) (*recordDraft, error) {
	t, known := interventions.ParseType(in.Type)
	if !known {
		if in.StrictType {
			_, err := normalization.ParseInterventionType(in.Type)
			return nil, err
		}
		t = interventions.InterventionType(strings.TrimSpace(in.Type))
	}

	location, err := normalization.NormalizeGeometry(in.Geometry)
	if err != nil {
		return nil, err
	}
	var point *normalization.PointCoordinates
	if t.SingleTree() {
		p, err := normalization.ExtractPointCoordinates(in.Geometry)
		if err != nil {
			return nil, err
		}
		point = &p
	}

	lines := normalization.NormalizeSpeciesLines(in.Species)
	if t.SingleTree() && len(lines) == 0 {
		lines = []domainagg.SpeciesLineInput{{SpeciesCount: 1}}
	}
	comp := normalization.ValidateSpeciesComposition(in.TotalTreeCount, lines, t)
	if err := comp.Err(); err != nil {
		return nil, err
	}

	now := a.now()
	start := in.StartDate.UTC()
	if start.IsZero() {
		start = now
	}
	end := in.EndDate.UTC()
	if end.IsZero() {
		end = start
	}
	if end.Before(start) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "intervention end date is before its start date", nil)
	}

	var metadata datatypes.JSON
	if raw := strings.TrimSpace(string(in.Metadata)); raw != "" && raw != "null" {
		if !json.Valid(in.Metadata) {
			return nil, domainagg.NewError(domainagg.CodeValidation, op, "metadata must be valid JSON", nil)
		}
		metadata = datatypes.JSON(in.Metadata)
	}

	uid := strings.TrimSpace(in.UID)
	if uid == "" {
		uid = a.deps.IDs.UID(PrefixIntervention)
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = a.deps.IDs.IdempotencyKey()
	}

	inv := &types.Intervention{
		UID:                   uid,
		HID:                   a.deps.IDs.HID(),
		Type:                  t,
		UserID:                in.UserID,
		ProjectID:             in.ProjectID,
		SiteID:                in.SiteID,
		IdempotencyKey:        key,
		InterventionStartDate: start,
		InterventionEndDate:   end,
		Location:              location,
		TotalTreeCount:        comp.TreeCount,
		Status:                types.StatusActive,
		Description:           strings.TrimSpace(in.Description),
		Metadata:              metadata,
	}
	if point != nil {
		lat, lon := point.Latitude, point.Longitude
		inv.Latitude = &lat
		inv.Longitude = &lon
	}

	d := &recordDraft{Intervention: inv}
	for _, line := range lines {
		row := &types.InterventionSpecies{
			UID:                 a.deps.IDs.UID(PrefixInterventionSpecies),
			ScientificSpeciesID: line.ScientificSpeciesID,
			IsUnknown:           line.ScientificSpeciesID == nil,
			OtherSpecies:        line.OtherSpecies,
			SpeciesCount:        line.SpeciesCount,
		}
		d.Species = append(d.Species, row)
	}

	if point != nil {
		d.Tree = &types.Tree{
			UID:          a.deps.IDs.UID(PrefixTree),
			HID:          a.deps.IDs.HID(),
			CreatedByID:  in.UserID,
			ProjectID:    in.ProjectID,
			Latitude:     point.Latitude,
			Longitude:    point.Longitude,
			Altitude:     point.Altitude,
			SpeciesName:  d.Species[0].DisplayName(),
			Status:       interventions.TreeStatusAlive,
			TreeType:     interventions.TreeTypeSingle,
			PlantingDate: start,
		}
	}
	return d, nil
}

// bindIntervention points every dependent row at the persisted intervention.
func (d *recordDraft) bindIntervention(id int64) {
	for _, sp := range d.Species {
		sp.InterventionID = id
	}
	if d.Tree != nil {
		d.Tree.InterventionID = id
	}
}

// bindTreeSpecies attaches the tree to the first persisted species line.
func (d *recordDraft) bindTreeSpecies() {
	if d.Tree != nil && len(d.Species) > 0 {
		d.Tree.InterventionSpeciesID = d.Species[0].ID
	}
}

// lines returns the draft's composition as inputs for catalog checks.
func (d *recordDraft) lines() []domainagg.SpeciesLineInput {
	lines := make([]domainagg.SpeciesLineInput, 0, len(d.Species))
	for _, sp := range d.Species {
		lines = append(lines, domainagg.SpeciesLineInput{ScientificSpeciesID: sp.ScientificSpeciesID, SpeciesCount: sp.SpeciesCount})
	}
	return lines
}

// applySpeciesNames snapshots catalog names onto the species lines and the tree.
func (d *recordDraft) applySpeciesNames(names map[int64]string) {
	for _, sp := range d.Species {
		if sp.ScientificSpeciesID != nil {
			sp.SpeciesName = names[*sp.ScientificSpeciesID]
		}
	}
	if d.Tree != nil && len(d.Species) > 0 {
		d.Tree.SpeciesName = d.Species[0].DisplayName()
	}
}
