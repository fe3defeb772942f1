package catalog

import (
	"time"

	"gorm.io/gorm"
)

// ScientificSpecies is a read-mostly catalog entry.
type ScientificSpecies struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UID            string `gorm:"column:uid;size:64;not null;uniqueIndex" json:"uid"`
	ScientificName string `gorm:"column:scientific_name;not null;index" json:"scientific_name"`
	CommonName     string `gorm:"column:common_name" json:"common_name,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ScientificSpecies) TableName() string { return "scientific_species" }

type Project struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UID       string `gorm:"column:uid;size:64;not null;uniqueIndex" json:"uid"`
	Name      string `gorm:"column:name;not null" json:"name"`
	CreatedBy int64  `gorm:"column:created_by_id;not null;index" json:"created_by_id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "project" }

type Site struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UID       string `gorm:"column:uid;size:64;not null;uniqueIndex" json:"uid"`
	ProjectID int64  `gorm:"column:project_id;not null;index" json:"project_id"`
	Name      string `gorm:"column:name;not null" json:"name"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Site) TableName() string { return "site" }
