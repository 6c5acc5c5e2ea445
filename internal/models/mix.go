package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FolioConstraint is the unique index backing per-branch folio numbering.
const FolioConstraint = "ux_mixes_branch_folio"

// Mix: one custom paint formula prepared at a branch. Never updated after
// creation.
type Mix struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BranchID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_mixes_branch_folio,priority:1;index:idx_mixes_branch_created,priority:1"`
	Branch    *Branch
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	User      *User
	MixCode   string    `gorm:"size:40;not null"` // solo para mostrar, puede repetirse
	FolioNum  int64     `gorm:"not null;uniqueIndex:ux_mixes_branch_folio,priority:2"`
	Note      *string   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index:idx_mixes_branch_created,priority:2"`

	Items []MixItem `gorm:"foreignKey:MixID;constraint:OnDelete:CASCADE"`
}

func (m *Mix) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Amount column is numeric(12,3).
const (
	AmountPrecision = 12
	AmountScale     = 3
)

// MixItem: one ink line of a mix.
type MixItem struct {
	ID     uint            `gorm:"primaryKey"`
	MixID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	InkID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	Ink    *Ink            `gorm:"foreignKey:InkID"`
	Amount decimal.Decimal `gorm:"type:numeric(12,3);not null"`
}
