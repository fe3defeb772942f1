package interventions

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Tree is an individually tracked plant. Only single-tree interventions create one.
type Tree struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UID                   string     `gorm:"column:uid;size:64;not null;uniqueIndex" json:"uid"`
	HID                   string     `gorm:"column:hid;size:32;not null;uniqueIndex" json:"hid"`
	InterventionID        int64      `gorm:"column:intervention_id;not null;index" json:"intervention_id"`
	InterventionSpeciesID int64      `gorm:"column:intervention_species_id;not null;index" json:"intervention_species_id"`
	CreatedByID           int64      `gorm:"column:created_by_id;not null;index" json:"created_by_id"`
	ProjectID             int64      `gorm:"column:project_id;not null;index" json:"project_id"`
	Latitude              float64    `gorm:"column:latitude;not null" json:"latitude"`
	Longitude             float64    `gorm:"column:longitude;not null" json:"longitude"`
	Altitude              *float64   `gorm:"column:altitude" json:"altitude,omitempty"`
	SpeciesName           string     `gorm:"column:species_name" json:"species_name,omitempty"`
	Status                TreeStatus `gorm:"column:status;size:16;not null;default:alive" json:"status"`
	TreeType              string     `gorm:"column:tree_type;size:16;not null;default:single" json:"tree_type"`
	PlantingDate          time.Time  `gorm:"column:planting_date;not null" json:"planting_date"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Tree) TableName() string { return "tree" }

func (t *Tree) BeforeCreate(_ *gorm.DB) error {
	if t.InterventionID == 0 || t.InterventionSpeciesID == 0 {
		return fmt.Errorf("tree %s: missing intervention or species reference", t.UID)
	}
	if t.Status == "" {
		t.Status = TreeStatusAlive
	}
	if t.TreeType == "" {
		t.TreeType = TreeTypeSingle
	}
	return nil
}
