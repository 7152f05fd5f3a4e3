package model

import (
	"time"
)

type UserRole string

const (
	Learner UserRole = "learner"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string     `gorm:"size:100;not null" json:"name"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;default:'learner'" json:"role"`
	Disabled  bool       `gorm:"default:false" json:"disabled"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
	Profile   *Profile   `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

func (User) TableName() string {
	return "users"
}
