package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleCashier UserRole = "cashier"
	RoleMixer   UserRole = "mixer"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCashier, RoleMixer:
		return true
	}
	return false
}

// UserNameConstraint: login is by name, so names are unique.
const UserNameConstraint = "ux_users_name"

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BranchID  *uuid.UUID `gorm:"type:uuid;index"` // nil para admin
	Branch    *Branch
	Name      string   `gorm:"size:80;uniqueIndex:ux_users_name;not null"` // login por nombre
	PinHash   string   `gorm:"size:255;not null"`
	Role      UserRole `gorm:"size:20;not null"`
	Active    bool     `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
