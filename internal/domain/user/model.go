package user

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is a registered account. Email is stored lowercased.
type User struct {
	UID          uint       `gorm:"primaryKey;column:u_id;autoIncrement" json:"id"`
	Name         string     `gorm:"size:100;not null" json:"name"`
	Email        string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password     string     `gorm:"not null" json:"-"`
	Role         string     `gorm:"size:20;not null;default:'member'" json:"role"`
	IsActive     bool       `gorm:"not null" json:"isActive"`
	RefreshToken string     `gorm:"type:text" json:"-"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
