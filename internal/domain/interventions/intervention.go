package interventions

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Intervention is a recorded field-work event. For every type except
// single-tree-registration, TotalTreeCount equals the sum of its species counts;
// single-tree interventions always carry TotalTreeCount == 1 and one Tree.
type Intervention struct {
	ID             int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UID            string           `gorm:"column:uid;size:64;not null;uniqueIndex" json:"uid"`
	HID            string           `gorm:"column:hid;size:32;not null;uniqueIndex" json:"hid"`
	Type           InterventionType `gorm:"column:type;size:48;not null;index" json:"type"`
	UserID         int64            `gorm:"column:user_id;not null;index" json:"user_id"`
	ProjectID      int64            `gorm:"column:project_id;not null;index" json:"project_id"`
	SiteID         *int64           `gorm:"column:site_id;index" json:"site_id,omitempty"`
	IdempotencyKey string           `gorm:"column:idempotency_key;size:64;not null;uniqueIndex" json:"idempotency_key"`

	InterventionStartDate time.Time `gorm:"column:intervention_start_date;not null" json:"intervention_start_date"`
	InterventionEndDate   time.Time `gorm:"column:intervention_end_date;not null" json:"intervention_end_date"`

	// Canonical GeoJSON geometry (never a Feature wrapper).
	Location  datatypes.JSON `gorm:"column:location" json:"location"`
	Latitude  *float64       `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude *float64       `gorm:"column:longitude" json:"longitude,omitempty"`

	TotalTreeCount int            `gorm:"column:total_tree_count;not null;default:0" json:"total_tree_count"`
	Status         Status         `gorm:"column:status;size:16;not null;default:active;index" json:"status"`
	Description    string         `gorm:"column:description" json:"description,omitempty"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	EditedAt *time.Time `gorm:"column:edited_at" json:"edited_at,omitempty"`
	Version  int        `gorm:"column:version;not null;default:0" json:"version"`

	Species []InterventionSpecies `gorm:"foreignKey:InterventionID" json:"species,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Intervention) TableName() string { return "intervention" }

// BeforeCreate enforces the type enum and count sign at the row level so a bad
// row fails its INSERT on every driver, batch or not.
func (i *Intervention) BeforeCreate(_ *gorm.DB) error {
	if !i.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, string(i.Type))
	}
	if i.TotalTreeCount < 0 {
		return fmt.Errorf("intervention %s: total_tree_count must be >= 0", i.UID)
	}
	if i.Status == "" {
		i.Status = StatusActive
	}
	if !i.Status.Valid() {
		return fmt.Errorf("intervention %s: invalid status %q", i.UID, i.Status)
	}
	return nil
}
