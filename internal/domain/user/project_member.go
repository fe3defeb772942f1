package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleOwner       = "owner"
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleContributor = "contributor"
	RoleObserver    = "observer"
)

var roleRank = map[string]int{
	RoleObserver:    1,
	RoleContributor: 2,
	RoleManager:     3,
	RoleAdmin:       4,
	RoleOwner:       5,
}

// KnownRole reports whether role names a project role.
func KnownRole(role string) bool {
	_, ok := roleRank[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

// RoleAtLeast reports whether role ranks at or above min. Unknown roles rank lowest.
func RoleAtLeast(role, min string) bool {
	r, ok := roleRank[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		return false
	}
	return r >= roleRank[min]
}

type ProjectMember struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID   int64  `gorm:"column:project_id;not null;uniqueIndex:idx_project_member_project_user,priority:1" json:"project_id"`
	UserID      int64  `gorm:"column:user_id;not null;uniqueIndex:idx_project_member_project_user,priority:2;index" json:"user_id"`
	ProjectRole string `gorm:"column:project_role;size:16;not null" json:"project_role"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProjectMember) TableName() string { return "project_member" }
