package interventions

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// InterventionSpecies is one composition line of an intervention. SpeciesCount
// may never drop below the number of live Tree rows tracked against the line.
type InterventionSpecies struct {
	ID                  int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UID                 string `gorm:"column:uid;size:64;not null;uniqueIndex" json:"uid"`
	InterventionID      int64  `gorm:"column:intervention_id;not null;index" json:"intervention_id"`
	ScientificSpeciesID *int64 `gorm:"column:scientific_species_id;index" json:"scientific_species_id,omitempty"`
	IsUnknown           bool   `gorm:"column:is_unknown;not null;default:false" json:"is_unknown"`
	SpeciesName         string `gorm:"column:species_name" json:"species_name,omitempty"`
	OtherSpecies        string `gorm:"column:other_species" json:"other_species,omitempty"`
	SpeciesCount        int    `gorm:"column:species_count;not null;default:0" json:"species_count"`
	Version             int    `gorm:"column:version;not null;default:0" json:"version"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (InterventionSpecies) TableName() string { return "intervention_species" }

func (s *InterventionSpecies) BeforeCreate(_ *gorm.DB) error {
	if s.InterventionID == 0 {
		return fmt.Errorf("intervention species %s: missing intervention_id", s.UID)
	}
	if s.SpeciesCount < 0 {
		return fmt.Errorf("intervention species %s: species_count must be >= 0", s.UID)
	}
	return nil
}

// DisplayName is the name snapshotted onto trees planted against this line.
func (s InterventionSpecies) DisplayName() string {
	if s.SpeciesName != "" {
		return s.SpeciesName
	}
	if s.OtherSpecies != "" {
		return s.OtherSpecies
	}
	return "Unknown"
}
