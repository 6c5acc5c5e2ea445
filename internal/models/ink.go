package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ink: a catalog entry referenced by mix items through its short code.
type Ink struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string    `gorm:"size:50;uniqueIndex;not null" json:"code"` // siempre en mayúsculas
	Name      string    `gorm:"size:120;not null" json:"name"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Ink) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
