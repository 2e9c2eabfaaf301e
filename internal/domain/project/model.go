package project

import (
	"time"

	"github.com/linskybing/zeera/internal/domain/user"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Project groups issues. Key is empty until explicitly set or derived on first issue creation.
type Project struct {
	PID         uint      `gorm:"primaryKey;column:p_id;autoIncrement" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Key         string    `gorm:"column:project_key;size:10" json:"key"`
	CreatedBy   uint      `gorm:"not null" json:"createdBy"`
	IsDeleted   bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	MemberCount int64 `gorm:"-" json:"memberCount,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

// Member links a user to a project with a project-scoped role.
type Member struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_project_member" json:"projectId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_project_member;index" json:"userId"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joinedAt"`

	User *user.User `gorm:"foreignKey:UserID;references:UID;-:migration" json:"user,omitempty"`
}

func (Member) TableName() string {
	return "project_members"
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}
