package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BranchNameConstraint keeps branch names unique.
const BranchNameConstraint = "ux_branches_name"

type Branch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:ux_branches_name"`
	Address   string    `gorm:"size:255"`
	Phone     string    `gorm:"size:50"` // opcional
	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}

func (b *Branch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
