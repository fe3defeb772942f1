package user

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UID         string `gorm:"column:uid;size:64;not null;uniqueIndex" json:"uid"`
	Email       string `gorm:"column:email;not null;uniqueIndex" json:"email"`
	DisplayName string `gorm:"column:display_name" json:"display_name"`
	IsActive    bool   `gorm:"column:is_active;not null;default:true" json:"is_active"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
